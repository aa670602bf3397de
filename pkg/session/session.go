// Package session implements the speech-capture lifecycle: a small state
// machine wrapping a host speech-recognition capability, with at most one
// active capture turn per session and a closed taxonomy of recognition
// failures.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// State is the capture session lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	// StateProcessing is reported by the pipeline layer while a parsed
	// command is in flight; the session itself never enters it.
	StateProcessing State = "processing"
	StateError      State = "error"
)

var (
	// ErrUnsupported means no recognizer capability is available.
	ErrUnsupported = errors.New("speech recognition unsupported")
	// ErrClosed means the session has been disposed.
	ErrClosed = errors.New("session closed")
)

// Callbacks are the session's outbound notifications. Nil fields are
// skipped. Callbacks fire after the session lock is released, so they
// may call back into the session.
type Callbacks struct {
	// Transcript receives each finalized utterance while listening.
	Transcript func(text string)
	// Failure receives classified recognition errors.
	Failure func(rerr RecognitionError)
	// Transition observes every state change.
	Transition func(from, to State, cause string)
}

// Session drives one speech-capture lifecycle over a Recognizer. It
// implements Handler for the host callbacks; all state changes flow
// through the public methods or those handlers, serialized on the
// session mutex. A second Start while listening is a logged no-op.
type Session struct {
	mu sync.Mutex

	id  string
	rec Recognizer
	cfg Config
	cb  Callbacks

	state      State
	transcript string
	lastErr    *RecognitionError
	closed     bool
}

// NewSession creates an idle capture session. A nil recognizer produces a
// session whose Start always fails with ErrUnsupported.
func NewSession(id string, rec Recognizer, cfg Config, cb Callbacks) *Session {
	return &Session{
		id:    id,
		rec:   rec,
		cfg:   cfg,
		cb:    cb,
		state: StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the recognition configuration the session was built with.
func (s *Session) Config() Config { return s.cfg }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the most recent finalized utterance, if any.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// LastError returns the most recent recognition failure, or nil.
func (s *Session) LastError() *RecognitionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return nil
	}
	rerr := *s.lastErr
	return &rerr
}

// setStateLocked changes state and returns the notification to run once
// the lock is released. Must be called with the mutex held.
func (s *Session) setStateLocked(to State, cause string) func() {
	from := s.state
	if from == to {
		return func() {}
	}
	s.state = to
	cb := s.cb.Transition
	id := s.id
	return func() {
		slog.Debug("capture state changed",
			slog.String("session_id", id),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("cause", cause))
		if cb != nil {
			cb(from, to, cause)
		}
	}
}

// Start begins a capture turn. Allowed from idle and error states; while
// listening it is a no-op with a warning. Prior transcript and error are
// cleared. Returns ErrUnsupported when no recognizer is available and
// ErrClosed after disposal.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.rec == nil {
		s.mu.Unlock()
		return ErrUnsupported
	}
	if s.state == StateListening {
		id := s.id
		s.mu.Unlock()
		slog.Warn("capture already listening, start ignored", slog.String("session_id", id))
		return nil
	}
	s.transcript = ""
	s.lastErr = nil
	notify := s.setStateLocked(StateListening, "start")
	rec, cfg := s.rec, s.cfg
	s.mu.Unlock()
	notify()

	if err := rec.Start(cfg, s); err != nil {
		s.mu.Lock()
		revert := s.setStateLocked(StateIdle, "start_failed")
		s.mu.Unlock()
		revert()
		return fmt.Errorf("start recognizer: %w", err)
	}
	return nil
}

// Stop requests a graceful end of the current turn. From idle or error it
// is a no-op; the state change is normally driven by the engine's end
// callback. A synchronous stop failure forces idle immediately.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateListening {
		s.mu.Unlock()
		return nil
	}
	rec := s.rec
	s.mu.Unlock()

	if err := rec.Stop(); err != nil {
		s.mu.Lock()
		notify := s.setStateLocked(StateIdle, "stop_failed")
		s.mu.Unlock()
		notify()
		return fmt.Errorf("stop recognizer: %w", err)
	}
	return nil
}

// Close disposes the session from any state: aborts an in-flight capture,
// detaches the callbacks and releases the recognizer so later host events
// are dropped. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	rec := s.rec
	s.rec = nil
	s.cb = Callbacks{}
	s.state = StateIdle
	id := s.id
	s.mu.Unlock()

	slog.Debug("capture session closed", slog.String("session_id", id))
	if rec != nil {
		if err := rec.Abort(); err != nil {
			return fmt.Errorf("abort recognizer: %w", err)
		}
	}
	return nil
}

// HandleFinal implements Handler. The finalized utterance is recorded and
// forwarded; the session stays listening until the engine reports end.
func (s *Session) HandleFinal(text string) {
	s.mu.Lock()
	if s.closed || s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.transcript = text
	s.lastErr = nil
	cb := s.cb.Transcript
	s.mu.Unlock()

	if cb != nil {
		cb(text)
	}
}

// HandleError implements Handler. The raw code is classified and the
// session enters the error state; the turn is over and only a fresh Start
// (or the engine's end callback) leaves it.
func (s *Session) HandleError(code string) {
	s.mu.Lock()
	if s.closed || s.state != StateListening {
		s.mu.Unlock()
		return
	}
	rerr := Translate(code)
	s.lastErr = &rerr
	notify := s.setStateLocked(StateError, "error")
	cb := s.cb.Failure
	id := s.id
	s.mu.Unlock()

	if rerr.Category == CategoryUnknown {
		slog.Warn("unrecognized engine error code",
			slog.String("session_id", id), slog.String("code", code))
	}
	notify()
	if cb != nil {
		cb(rerr)
	}
}

// HandleEnd implements Handler. Ends the turn: listening or error state
// returns to idle.
func (s *Session) HandleEnd() {
	s.mu.Lock()
	if s.closed || (s.state != StateListening && s.state != StateError) {
		s.mu.Unlock()
		return
	}
	notify := s.setStateLocked(StateIdle, "end")
	s.mu.Unlock()
	notify()
}
