package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	CaptureStarted  EventType = "capture.started"
	CaptureStopped  EventType = "capture.stopped"
	CaptureError    EventType = "capture.error"
	TranscriptFinal EventType = "transcript.final"
	ParseFailed     EventType = "parse.failed"
	RecordAdded     EventType = "record.added"
	RecordDeleted   EventType = "record.deleted"
	VocabReloaded   EventType = "vocab.reloaded"
	SystemError     EventType = "error"
	WebhookTest     EventType = "webhook.test"
)

// Envelope is the standard event wrapper published to the event bus.
// SessionID carries the capture ID for capture-scoped events and is
// empty for system-wide ones.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	SessionID string            `json:"session_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CaptureStartedData is the payload for capture.started events.
type CaptureStartedData struct {
	ClientKey  string `json:"client_key"`
	Language   string `json:"language"`
	Continuous bool   `json:"continuous"`
	Profile    string `json:"profile,omitempty"`
}

// CaptureStoppedData is the payload for capture.stopped events.
type CaptureStoppedData struct {
	Reason string `json:"reason"` // "end", "stop_failed" or "closed"
}

// CaptureErrorData is the payload for capture.error events.
type CaptureErrorData struct {
	Category string `json:"category"`
	Code     string `json:"code,omitempty"`
}

// TranscriptFinalData is the payload for transcript.final events.
type TranscriptFinalData struct {
	Transcript string `json:"transcript"`
}

// ParseFailedData is the payload for parse.failed events.
type ParseFailedData struct {
	Category   string `json:"category"`
	Message    string `json:"message"`
	Transcript string `json:"transcript,omitempty"`
}

// RecordAddedData is the payload for record.added events. Amount is the
// decimal rendered as a string to avoid float drift in transit.
type RecordAddedData struct {
	RecordID    string `json:"record_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Transcript  string `json:"transcript,omitempty"`
}

// RecordDeletedData is the payload for record.deleted events.
type RecordDeletedData struct {
	RecordID string `json:"record_id"`
}

// VocabReloadedData is the payload for vocab.reloaded events.
type VocabReloadedData struct {
	Profiles []string `json:"profiles"`
}

// WebhookTestData is the payload for webhook.test events.
type WebhookTestData struct {
	SinkURL string `json:"sink_url"`
	Message string `json:"message"`
}
