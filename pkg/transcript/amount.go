package transcript

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// numberExpr is the shared numeric sub-pattern: digits with optional
// comma-grouped thousands and an optional fraction of one or two digits.
// The dot is the only decimal separator.
const numberExpr = `\d+(?:,\d{3})*(?:\.\d{1,2})?`

// AmountMatch is one successfully extracted monetary amount. Span is the
// literal substring consumed, including any currency symbol or word, so
// the caller can remove it from the text unambiguously.
type AmountMatch struct {
	Value decimal.Decimal
	Span  string
	Start int
	End   int
}

// amountPattern is one entry in the ordered extraction chain.
type amountPattern struct {
	name string
	re   *regexp.Regexp
}

// AmountExtractor finds monetary amounts using an ordered pattern chain:
// currency-symbol-prefixed numbers first, then numbers followed by a
// currency word, then any bare number as the fallback. Within a pattern
// the occurrences are tried left to right; the first strictly positive
// value wins and lower-priority patterns are never consulted.
type AmountExtractor struct {
	patterns []amountPattern
}

// NewAmountExtractor compiles the pattern chain for the given vocabulary.
func NewAmountExtractor(v *Vocabulary) (*AmountExtractor, error) {
	v = v.withDefaults()

	var patterns []amountPattern
	if alt := quotedAlternation(v.CurrencySymbols); alt != "" {
		re, err := regexp.Compile(`(?:` + alt + `)(` + numberExpr + `)`)
		if err != nil {
			return nil, fmt.Errorf("compile symbol pattern: %w", err)
		}
		patterns = append(patterns, amountPattern{name: "symbol", re: re})
	}
	if alt := quotedAlternation(v.CurrencyWords); alt != "" {
		re, err := regexp.Compile(`\b(` + numberExpr + `)\s*(?:` + alt + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compile currency-word pattern: %w", err)
		}
		patterns = append(patterns, amountPattern{name: "currency_word", re: re})
	}
	re, err := regexp.Compile(`\b(` + numberExpr + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile bare-number pattern: %w", err)
	}
	patterns = append(patterns, amountPattern{name: "bare", re: re})

	return &AmountExtractor{patterns: patterns}, nil
}

// Extract returns the first positive amount in text, which must already be
// lower-cased. The second return is false when no pattern yields a match.
// Candidates whose normalized value is zero or negative fall through to
// the next occurrence, then to the next pattern.
func (e *AmountExtractor) Extract(text string) (AmountMatch, bool) {
	for _, p := range e.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			val, err := parseAmountValue(text[loc[2]:loc[3]])
			if err != nil || !val.IsPositive() {
				continue
			}
			return AmountMatch{
				Value: val,
				Span:  text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			}, true
		}
	}
	return AmountMatch{}, false
}

// parseAmountValue normalizes a matched numeric string to a decimal,
// stripping thousands separators.
func parseAmountValue(num string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(num, ",", ""))
}

// quotedAlternation builds a regex alternation from literal tokens,
// longest first so plural forms win over their singular prefixes.
func quotedAlternation(tokens []string) string {
	cleaned := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	sort.Slice(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) > len(cleaned[j])
		}
		return cleaned[i] < cleaned[j]
	})
	for i, t := range cleaned {
		cleaned[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(cleaned, "|")
}
