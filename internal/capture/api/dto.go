package api

// CreateCaptureRequest is the request body for creating a capture.
// Unset booleans inherit the service defaults.
type CreateCaptureRequest struct {
	ClientKey      string `json:"client_key"`
	Language       string `json:"language,omitempty"`
	Continuous     *bool  `json:"continuous,omitempty"`
	InterimResults *bool  `json:"interim_results,omitempty"`
	Profile        string `json:"profile,omitempty"`
}

// HostEventRequest is the request body for one relayed recognition event.
type HostEventRequest struct {
	Type string `json:"type"`           // "final", "error" or "end"
	Text string `json:"text,omitempty"` // finalized transcript
	Code string `json:"code,omitempty"` // recognition error code
}

// RecognitionErrorResponse describes a classified recognition failure.
type RecognitionErrorResponse struct {
	Category string `json:"category"`
	Code     string `json:"code,omitempty"`
}

// CaptureResponse is the API response for a capture.
type CaptureResponse struct {
	ID             string                    `json:"id"`
	ClientKey      string                    `json:"client_key"`
	State          string                    `json:"state"`
	Profile        string                    `json:"profile,omitempty"`
	Language       string                    `json:"language"`
	Continuous     bool                      `json:"continuous"`
	InterimResults bool                      `json:"interim_results"`
	Transcript     string                    `json:"transcript,omitempty"`
	LastError      *RecognitionErrorResponse `json:"last_error,omitempty"`
	CreatedAt      string                    `json:"created_at"`
}

// RecordResponse is the API response for a stored expense.
type RecordResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Transcript  string `json:"transcript,omitempty"`
	CaptureID   string `json:"capture_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// SummaryResponse reports aggregate spend since a point in time.
type SummaryResponse struct {
	Since string `json:"since"`
	Count int64  `json:"count"`
	Total string `json:"total"`
}

// VocabularyResponse describes one loaded vocabulary profile.
type VocabularyResponse struct {
	Name            string   `json:"name"`
	CurrencySymbols []string `json:"currency_symbols"`
	CurrencyWords   []string `json:"currency_words"`
	Delimiters      []string `json:"delimiters"`
	Fillers         []string `json:"fillers"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
