package session

import (
	"errors"
	"fmt"
	"testing"
)

type recordedCallbacks struct {
	transcripts []string
	failures    []RecognitionError
	transitions []string
}

func (rc *recordedCallbacks) callbacks() Callbacks {
	return Callbacks{
		Transcript: func(text string) { rc.transcripts = append(rc.transcripts, text) },
		Failure:    func(rerr RecognitionError) { rc.failures = append(rc.failures, rerr) },
		Transition: func(from, to State, cause string) {
			rc.transitions = append(rc.transitions, fmt.Sprintf("%s>%s:%s", from, to, cause))
		},
	}
}

func TestSessionStartTwiceIsSingleFlight(t *testing.T) {
	rec := &ScriptedRecognizer{}
	rc := &recordedCallbacks{}
	s := NewSession("cap-1", rec, Config{Language: "en-US"}, rc.callbacks())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if got := s.State(); got != StateListening {
		t.Errorf("state = %q, want %q", got, StateListening)
	}
	if rec.Starts() != 1 {
		t.Errorf("recognizer started %d times, want 1", rec.Starts())
	}
	if len(rc.transitions) != 1 {
		t.Errorf("transitions = %v, want exactly one", rc.transitions)
	}
	if got := rec.LastConfig().Language; got != "en-US" {
		t.Errorf("language = %q, want %q", got, "en-US")
	}
}

func TestSessionFinalResultKeepsListening(t *testing.T) {
	rec := &ScriptedRecognizer{}
	rc := &recordedCallbacks{}
	s := NewSession("cap-1", rec, Config{}, rc.callbacks())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitFinal("spent $5 on tea")

	if got := s.State(); got != StateListening {
		t.Errorf("state = %q, want %q", got, StateListening)
	}
	if got := s.Transcript(); got != "spent $5 on tea" {
		t.Errorf("transcript = %q, want %q", got, "spent $5 on tea")
	}
	if len(rc.transcripts) != 1 || rc.transcripts[0] != "spent $5 on tea" {
		t.Errorf("transcript callbacks = %v", rc.transcripts)
	}
}

func TestSessionEndReturnsToIdle(t *testing.T) {
	rec := &ScriptedRecognizer{}
	rc := &recordedCallbacks{}
	s := NewSession("cap-1", rec, Config{}, rc.callbacks())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitEnd()

	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
	want := []string{"idle>listening:start", "listening>idle:end"}
	if len(rc.transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", rc.transitions, want)
	}
	for i := range want {
		if rc.transitions[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, rc.transitions[i], want[i])
		}
	}
}

func TestSessionErrorEventEndsTurn(t *testing.T) {
	rec := &ScriptedRecognizer{}
	rc := &recordedCallbacks{}
	s := NewSession("cap-1", rec, Config{}, rc.callbacks())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitError("network")

	if got := s.State(); got != StateError {
		t.Errorf("state = %q, want %q", got, StateError)
	}
	if len(rc.failures) != 1 || rc.failures[0].Category != CategoryNetwork {
		t.Errorf("failures = %v, want one network failure", rc.failures)
	}
	lastErr := s.LastError()
	if lastErr == nil || lastErr.Category != CategoryNetwork {
		t.Errorf("LastError = %v, want network", lastErr)
	}

	// A late final result after the error is dropped.
	rec.EmitFinal("too late")
	if got := s.Transcript(); got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}

	// The engine's end callback returns the session to idle.
	rec.EmitEnd()
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}

func TestSessionRestartAfterErrorClearsState(t *testing.T) {
	rec := &ScriptedRecognizer{}
	rc := &recordedCallbacks{}
	s := NewSession("cap-1", rec, Config{}, rc.callbacks())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitFinal("five dollars gum")
	rec.EmitError("no-speech")

	// Start is allowed directly from the error state.
	if err := s.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := s.State(); got != StateListening {
		t.Errorf("state = %q, want %q", got, StateListening)
	}
	if got := s.Transcript(); got != "" {
		t.Errorf("transcript = %q, want empty after restart", got)
	}
	if s.LastError() != nil {
		t.Errorf("LastError = %v, want nil after restart", s.LastError())
	}
}

func TestSessionStopFromIdleIsNoop(t *testing.T) {
	rec := &ScriptedRecognizer{}
	s := NewSession("cap-1", rec, Config{}, Callbacks{})

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.Stops() != 0 {
		t.Errorf("recognizer stopped %d times, want 0", rec.Stops())
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}

func TestSessionStopWaitsForEnd(t *testing.T) {
	rec := &ScriptedRecognizer{}
	s := NewSession("cap-1", rec, Config{}, Callbacks{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.Stops() != 1 {
		t.Errorf("recognizer stopped %d times, want 1", rec.Stops())
	}
	// The state change is driven by the engine's end event.
	if got := s.State(); got != StateListening {
		t.Errorf("state = %q, want %q before end", got, StateListening)
	}
	rec.EmitEnd()
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q after end", got, StateIdle)
	}
}

func TestSessionStopSyncFailureForcesIdle(t *testing.T) {
	rec := &ScriptedRecognizer{StopErr: errors.New("engine busy")}
	s := NewSession("cap-1", rec, Config{}, Callbacks{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err == nil {
		t.Fatal("Stop: expected error")
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}

func TestSessionStartFailureRevertsToIdle(t *testing.T) {
	rec := &ScriptedRecognizer{StartErr: errors.New("mic unavailable")}
	s := NewSession("cap-1", rec, Config{}, Callbacks{})

	if err := s.Start(); err == nil {
		t.Fatal("Start: expected error")
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}

func TestSessionUnsupportedCapability(t *testing.T) {
	s := NewSession("cap-1", nil, Config{}, Callbacks{})

	if err := s.Start(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Start error = %v, want ErrUnsupported", err)
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
	// Terminal: the session never becomes listenable.
	if err := s.Start(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("second Start error = %v, want ErrUnsupported", err)
	}
}

func TestSessionCloseDetaches(t *testing.T) {
	rec := &ScriptedRecognizer{}
	rc := &recordedCallbacks{}
	s := NewSession("cap-1", rec, Config{}, rc.callbacks())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if rec.Aborts() != 1 {
		t.Errorf("recognizer aborted %d times, want 1", rec.Aborts())
	}

	// Nothing fires after disposal.
	got := len(rc.transcripts)
	rec.EmitFinal("late result")
	rec.EmitEnd()
	if len(rc.transcripts) != got {
		t.Errorf("transcript callback fired after close")
	}

	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after close = %v, want ErrClosed", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrClosed) {
		t.Errorf("Stop after close = %v, want ErrClosed", err)
	}
}

func TestSessionCloseFromIdle(t *testing.T) {
	rec := &ScriptedRecognizer{}
	s := NewSession("cap-1", rec, Config{}, Callbacks{})

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}
