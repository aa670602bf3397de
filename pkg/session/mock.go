package session

import "sync"

// ScriptedRecognizer is a deterministic in-memory Recognizer for tests
// and offline simulation. The Emit methods invoke the handler bound by
// Start synchronously on the calling goroutine; after Abort they are
// dropped.
type ScriptedRecognizer struct {
	// StartErr, StopErr and AbortErr are returned by the corresponding
	// methods when set.
	StartErr error
	StopErr  error
	AbortErr error

	mu      sync.Mutex
	handler Handler
	cfg     Config
	starts  int
	stops   int
	aborts  int
}

// Start implements Recognizer.
func (r *ScriptedRecognizer) Start(cfg Config, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if r.StartErr != nil {
		return r.StartErr
	}
	r.cfg = cfg
	r.handler = h
	return nil
}

// Stop implements Recognizer. It does not emit end on its own; tests
// drive that explicitly with EmitEnd.
func (r *ScriptedRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return r.StopErr
}

// Abort implements Recognizer and detaches the handler.
func (r *ScriptedRecognizer) Abort() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborts++
	if r.AbortErr != nil {
		return r.AbortErr
	}
	r.handler = nil
	return nil
}

// EmitFinal delivers a finalized result to the bound handler.
func (r *ScriptedRecognizer) EmitFinal(text string) {
	if h := r.boundHandler(); h != nil {
		h.HandleFinal(text)
	}
}

// EmitError delivers a raw engine error code to the bound handler.
func (r *ScriptedRecognizer) EmitError(code string) {
	if h := r.boundHandler(); h != nil {
		h.HandleError(code)
	}
}

// EmitEnd delivers end-of-turn to the bound handler.
func (r *ScriptedRecognizer) EmitEnd() {
	if h := r.boundHandler(); h != nil {
		h.HandleEnd()
	}
}

func (r *ScriptedRecognizer) boundHandler() Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

// Starts returns how many times Start was called.
func (r *ScriptedRecognizer) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

// Stops returns how many times Stop was called.
func (r *ScriptedRecognizer) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

// Aborts returns how many times Abort was called.
func (r *ScriptedRecognizer) Aborts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborts
}

// LastConfig returns the configuration passed to the last Start.
func (r *ScriptedRecognizer) LastConfig() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}
