package session

import (
	"strings"
	"testing"
)

func TestTranslateKnownCodes(t *testing.T) {
	tests := []struct {
		code string
		want Category
	}{
		{"no-speech", CategoryNoSpeech},
		{"audio-capture", CategoryAudioCapture},
		{"not-allowed", CategoryPermissionDenied},
		{"network", CategoryNetwork},
		{"aborted", CategoryAborted},
		{"service-not-allowed", CategoryServiceDenied},
		{"bad-grammar", CategoryBadGrammar},
		{"language-not-supported", CategoryUnsupportedLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rerr := Translate(tt.code)
			if rerr.Category != tt.want {
				t.Errorf("Translate(%q).Category = %q, want %q", tt.code, rerr.Category, tt.want)
			}
			if rerr.Code != tt.code {
				t.Errorf("Translate(%q).Code = %q, want raw code preserved", tt.code, rerr.Code)
			}
		})
	}
}

func TestTranslateIsTotal(t *testing.T) {
	for _, code := range []string{"", "gibberish", "NO-SPEECH", "network ", "segfault"} {
		rerr := Translate(code)
		if rerr.Category != CategoryUnknown {
			t.Errorf("Translate(%q).Category = %q, want %q", code, rerr.Category, CategoryUnknown)
		}
		if rerr.Code != code {
			t.Errorf("Translate(%q).Code = %q, want raw code preserved", code, rerr.Code)
		}
	}
}

func TestRecognitionErrorString(t *testing.T) {
	rerr := Translate("network")
	if msg := rerr.Error(); !strings.Contains(msg, "network") {
		t.Errorf("Error() = %q, want it to mention the category", msg)
	}

	bare := RecognitionError{Category: CategoryUnsupported}
	if msg := bare.Error(); strings.Contains(msg, "code") {
		t.Errorf("Error() = %q, want no code mention when empty", msg)
	}
}
