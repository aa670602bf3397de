package transcript

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountExtractorPriority(t *testing.T) {
	e, err := NewAmountExtractor(nil)
	if err != nil {
		t.Fatalf("NewAmountExtractor: %v", err)
	}

	tests := []struct {
		name  string
		input string
		value string
		span  string
	}{
		{"symbol beats currency word", "$5 or 10 dollars", "5", "$5"},
		{"currency word beats bare", "give 10 dollars 20", "10", "10 dollars"},
		{"bare fallback", "item 42 please", "42", "42"},
		{"singular currency word", "15 euro taxi", "15", "15 euro"},
		{"plural preferred over singular prefix", "paid 7 euros today", "7", "7 euros"},
		{"zero skipped within pattern", "$0 then $7", "7", "$7"},
		{"zero falls through to next pattern", "0 dollars but 9", "9", "9"},
		{"thousands separator", "about 2,500 usd wired", "2500", "2,500 usd"},
		{"fraction", "coffee $10.50 yesterday", "10.50", "$10.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := e.Extract(tt.input)
			if !ok {
				t.Fatalf("Extract(%q): no match", tt.input)
			}
			want := decimal.RequireFromString(tt.value)
			if !m.Value.Equal(want) {
				t.Errorf("value = %s, want %s", m.Value, want)
			}
			if m.Span != tt.span {
				t.Errorf("span = %q, want %q", m.Span, tt.span)
			}
		})
	}
}

func TestAmountExtractorNoMatch(t *testing.T) {
	e, err := NewAmountExtractor(nil)
	if err != nil {
		t.Fatalf("NewAmountExtractor: %v", err)
	}

	for _, input := range []string{"", "hello there", "no digits at all", "$0", "0 dollars"} {
		if m, ok := e.Extract(input); ok {
			t.Errorf("Extract(%q) = %+v, want no match", input, m)
		}
	}
}

func TestAmountExtractorSpanOffsets(t *testing.T) {
	e, err := NewAmountExtractor(nil)
	if err != nil {
		t.Fatalf("NewAmountExtractor: %v", err)
	}

	text := "spent $10.50 on coffee"
	m, ok := e.Extract(text)
	if !ok {
		t.Fatal("no match")
	}
	if got := text[m.Start:m.End]; got != m.Span {
		t.Errorf("text[start:end] = %q, span = %q", got, m.Span)
	}
	if m.Span != "$10.50" {
		t.Errorf("span = %q, want %q", m.Span, "$10.50")
	}
}

func TestAmountExtractorWordBoundary(t *testing.T) {
	e, err := NewAmountExtractor(nil)
	if err != nil {
		t.Fatalf("NewAmountExtractor: %v", err)
	}

	// "dollarstore" must not count as a currency word.
	m, ok := e.Extract("4 dollarstore items")
	if !ok {
		t.Fatal("no match")
	}
	if m.Span != "4" {
		t.Errorf("span = %q, want %q", m.Span, "4")
	}
}
