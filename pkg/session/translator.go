package session

import "fmt"

// Category classifies a recognition failure independently of the host
// engine's raw code strings.
type Category string

const (
	CategoryNoSpeech            Category = "no_speech"
	CategoryAudioCapture        Category = "audio_capture"
	CategoryPermissionDenied    Category = "permission_denied"
	CategoryNetwork             Category = "network"
	CategoryAborted             Category = "aborted"
	CategoryServiceDenied       Category = "service_denied"
	CategoryBadGrammar          Category = "bad_grammar"
	CategoryUnsupportedLanguage Category = "unsupported_language"
	CategoryUnsupported         Category = "unsupported"
	CategoryUnknown             Category = "unknown"
)

// categoryByCode maps raw engine error codes to categories. The codes
// follow the Web Speech API error names.
var categoryByCode = map[string]Category{
	"no-speech":              CategoryNoSpeech,
	"audio-capture":          CategoryAudioCapture,
	"not-allowed":            CategoryPermissionDenied,
	"network":                CategoryNetwork,
	"aborted":                CategoryAborted,
	"service-not-allowed":    CategoryServiceDenied,
	"bad-grammar":            CategoryBadGrammar,
	"language-not-supported": CategoryUnsupportedLanguage,
}

// Translate maps a raw engine error code to a RecognitionError. Every
// input maps to exactly one category; unmapped codes become
// CategoryUnknown with the raw code preserved for diagnosis.
func Translate(code string) RecognitionError {
	if cat, ok := categoryByCode[code]; ok {
		return RecognitionError{Category: cat, Code: code}
	}
	return RecognitionError{Category: CategoryUnknown, Code: code}
}

// RecognitionError is a classified recognition failure.
type RecognitionError struct {
	Category Category `json:"category"`
	Code     string   `json:"code,omitempty"`
}

func (e RecognitionError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("recognition failed: %s", e.Category)
	}
	return fmt.Sprintf("recognition failed: %s (code %q)", e.Category, e.Code)
}
