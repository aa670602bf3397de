package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeSerialization(t *testing.T) {
	data := &RecordAddedData{
		RecordID:    "rec-1",
		Description: "coffee",
		Amount:      "10.5",
		Transcript:  "spent $10.50 on coffee",
	}

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}

	env := Envelope{
		ID:        "test-id",
		Type:      RecordAdded,
		Source:    "capture",
		SessionID: "cap-123",
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}

	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if decoded.Type != RecordAdded {
		t.Errorf("type = %q, want %q", decoded.Type, RecordAdded)
	}
	if decoded.Source != "capture" {
		t.Errorf("source = %q, want %q", decoded.Source, "capture")
	}
	if decoded.SessionID != "cap-123" {
		t.Errorf("session_id = %q, want %q", decoded.SessionID, "cap-123")
	}

	var payload RecordAddedData
	if err := json.Unmarshal(decoded.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Amount != "10.5" {
		t.Errorf("amount = %q, want %q", payload.Amount, "10.5")
	}
}

func TestEventTypeConstants(t *testing.T) {
	types := []EventType{
		CaptureStarted, CaptureStopped, CaptureError,
		TranscriptFinal, ParseFailed,
		RecordAdded, RecordDeleted,
		VocabReloaded, SystemError, WebhookTest,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		if et == "" {
			t.Error("empty event type constant")
		}
		if seen[et] {
			t.Errorf("duplicate event type: %q", et)
		}
		seen[et] = true
	}
}

func TestPublisherLocalFanOut(t *testing.T) {
	p := NewPublisher(nil, "test", "")

	ch := p.Subscribe("sub-1", 4)
	defer p.Unsubscribe("sub-1")

	if err := p.Emit(t.Context(), TranscriptFinal, "cap-1", TranscriptFinalData{Transcript: "$5 gum"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	select {
	case env := <-ch:
		if env.Type != TranscriptFinal {
			t.Errorf("type = %q, want %q", env.Type, TranscriptFinal)
		}
		if env.SessionID != "cap-1" {
			t.Errorf("session_id = %q, want %q", env.SessionID, "cap-1")
		}
		if env.ID == "" {
			t.Error("envelope ID not assigned")
		}
	default:
		t.Fatal("no envelope delivered to subscriber")
	}
}

func TestPublisherUnsubscribeCloses(t *testing.T) {
	p := NewPublisher(nil, "test", "")

	ch := p.Subscribe("sub-1", 1)
	p.Unsubscribe("sub-1")

	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}

	// Emitting after unsubscribe must not panic or block.
	if err := p.Emit(t.Context(), SystemError, "", map[string]string{"error": "x"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
}

func TestPublisherClose(t *testing.T) {
	p := NewPublisher(nil, "test", "")

	ch := p.Subscribe("sub-1", 1)
	p.Close()

	if _, open := <-ch; open {
		t.Error("channel still open after Close")
	}

	late := p.Subscribe("sub-2", 1)
	if _, open := <-late; open {
		t.Error("subscription after Close should be closed immediately")
	}
}
