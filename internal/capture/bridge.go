// Package capture hosts live expense-capture sessions for remote clients.
// The speech engine runs on the client device; the client relays its
// recognition callbacks to this service over the REST API.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/voxpense/voxpense/pkg/session"
)

// EventType names one relayed recognition event.
type EventType string

const (
	// EventFinal carries a finalized utterance.
	EventFinal EventType = "final"
	// EventError carries a recognition error code.
	EventError EventType = "error"
	// EventEnd marks the end of a recognition turn.
	EventEnd EventType = "end"
)

// Event is one recognition event relayed by a capture client.
type Event struct {
	Type EventType
	Text string
	Code string
}

// ErrNotActive means an event arrived for a capture that is not listening.
var ErrNotActive = errors.New("capture not active")

// BridgeRecognizer adapts relayed client events to the session's
// Recognizer contract. Start arms it, Abort detaches it, and Deliver
// forwards one relayed event to the bound handler. The mutex is held
// across dispatch so relayed events are never delivered concurrently.
type BridgeRecognizer struct {
	mu      sync.Mutex
	handler session.Handler
	cfg     session.Config
	active  bool
}

// Start binds the handler for a new recognition turn. Re-binding while
// active is allowed; single-flight is the session's concern.
func (b *BridgeRecognizer) Start(cfg session.Config, h session.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
	b.cfg = cfg
	b.active = true
	return nil
}

// Stop requests a graceful finish. The client owns the engine, so the
// turn stays active until its end event arrives.
func (b *BridgeRecognizer) Stop() error {
	return nil
}

// Abort discards the turn immediately. Any events still in flight from
// the client are dropped.
func (b *BridgeRecognizer) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = nil
	b.active = false
	return nil
}

// Config returns the configuration the capture client should apply.
func (b *BridgeRecognizer) Config() session.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// Deliver forwards one relayed event to the bound handler.
func (b *BridgeRecognizer) Deliver(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active || b.handler == nil {
		return ErrNotActive
	}

	switch ev.Type {
	case EventFinal:
		b.handler.HandleFinal(ev.Text)
	case EventError:
		b.handler.HandleError(ev.Code)
	case EventEnd:
		// The turn is over; the next one re-arms via Start.
		h := b.handler
		b.active = false
		h.HandleEnd()
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}
