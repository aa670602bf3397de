package notify

import (
	"context"
	"encoding/json"

	"github.com/pitabwire/util"

	"github.com/voxpense/voxpense/pkg/events"
)

// forwardedTypes lists the event types relayed to notification sinks.
// Capture lifecycle chatter stays internal.
var forwardedTypes = map[events.EventType]struct{}{
	events.RecordAdded:   {},
	events.RecordDeleted: {},
	events.ParseFailed:   {},
	events.CaptureError:  {},
	events.VocabReloaded: {},
	events.WebhookTest:   {},
}

// Subscriber implements queue.SubscribeWorker to route queue events
// to the configured notification sinks.
type Subscriber struct {
	Notifier *Notifier
}

// Handle is called by frame's pub/sub for each event message.
func (ns *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		util.Log(ctx).WithError(err).Error("notify subscriber: unmarshal envelope")
		return err
	}

	if _, ok := forwardedTypes[env.Type]; !ok {
		return nil
	}

	ns.Notifier.Fanout(ctx, env)
	return nil
}
