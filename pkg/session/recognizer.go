package session

// Config mirrors the host speech engine's start options.
type Config struct {
	Language       string `json:"language"`
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interim_results"`
}

// Handler receives recognition callbacks from the host engine. For any
// one recognizer the callbacks are delivered in order and never
// concurrently with each other.
type Handler interface {
	// HandleFinal delivers one finalized recognition result.
	HandleFinal(text string)
	// HandleError delivers a raw engine error code. The engine still
	// reports end-of-turn separately.
	HandleError(code string)
	// HandleEnd marks the end of one capture turn.
	HandleEnd()
}

// Recognizer abstracts the host speech-recognition capability. Start
// binds the handler and begins a capture turn. Stop requests a graceful
// finish; the engine may still deliver a final result before reporting
// end. Abort discards the turn and suppresses further callbacks.
type Recognizer interface {
	Start(cfg Config, h Handler) error
	Stop() error
	Abort() error
}
