// Package transcript parses spoken expense utterances into structured
// commands: a strictly positive monetary amount plus a short description.
// Amounts are matched through an ordered chain of numeric idioms and the
// description is whatever meaningful text remains once the amount span,
// delimiter keywords and filler words are removed.
package transcript

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse failures. Callers branch with errors.Is.
var (
	// ErrEmptyUtterance reports an empty or whitespace-only utterance.
	ErrEmptyUtterance = errors.New("empty utterance")
	// ErrNoAmount reports that no numeric idiom yielded a positive amount.
	ErrNoAmount = errors.New("no amount found")
	// ErrNoDescription reports that no usable text remained after trimming.
	ErrNoDescription = errors.New("no description found")
)

// Command is a fully parsed spoken expense. Immutable once returned.
type Command struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Parser turns one raw transcript into a Command. Safe for concurrent use.
type Parser struct {
	amounts      *AmountExtractor
	descriptions *DescriptionExtractor
}

// NewParser compiles a parser from the given vocabulary. A nil vocabulary
// uses the built-in defaults.
func NewParser(v *Vocabulary) (*Parser, error) {
	amounts, err := NewAmountExtractor(v)
	if err != nil {
		return nil, err
	}
	return &Parser{
		amounts:      amounts,
		descriptions: NewDescriptionExtractor(v),
	}, nil
}

// Parse extracts the amount and description from one finalized utterance.
// Matching is case-insensitive and ignores surrounding whitespace.
func (p *Parser) Parse(raw string) (Command, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return Command{}, ErrEmptyUtterance
	}

	m, ok := p.amounts.Extract(text)
	if !ok {
		return Command{}, ErrNoAmount
	}

	residual := text[:m.Start] + " " + text[m.End:]
	desc, ok := p.descriptions.Extract(residual)
	if !ok {
		return Command{}, ErrNoDescription
	}

	return Command{Amount: m.Value, Description: desc}, nil
}
