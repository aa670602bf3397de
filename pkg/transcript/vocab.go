package transcript

import "strings"

// Vocabulary holds the word sets the parser is compiled from. Matching is
// case-insensitive; entries are lower-cased on compile. Empty fields fall
// back to the built-in English defaults.
type Vocabulary struct {
	Name            string   `yaml:"name"`
	CurrencySymbols []string `yaml:"currency_symbols"`
	CurrencyWords   []string `yaml:"currency_words"`
	Delimiters      []string `yaml:"delimiters"`
	Fillers         []string `yaml:"fillers"`
}

// DefaultVocabulary returns the built-in English vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Name:            "default",
		CurrencySymbols: []string{"$", "£", "€"},
		CurrencyWords: []string{
			"dollars", "dollar", "usd", "bucks",
			"pounds", "pound", "gbp", "quid",
			"euros", "euro", "eur",
		},
		Delimiters: []string{"on", "for"},
		Fillers: []string{
			"spent", "add", "log", "cost", "expense",
			"was", "is", "buy", "get", "paid", "bought",
			"a", "an", "the", "i", "my",
		},
	}
}

// withDefaults fills any empty field from the default vocabulary.
// Safe on a nil receiver.
func (v *Vocabulary) withDefaults() *Vocabulary {
	if v == nil {
		return DefaultVocabulary()
	}
	def := DefaultVocabulary()
	out := &Vocabulary{
		Name:            v.Name,
		CurrencySymbols: v.CurrencySymbols,
		CurrencyWords:   v.CurrencyWords,
		Delimiters:      v.Delimiters,
		Fillers:         v.Fillers,
	}
	if out.Name == "" {
		out.Name = def.Name
	}
	if len(out.CurrencySymbols) == 0 {
		out.CurrencySymbols = def.CurrencySymbols
	}
	if len(out.CurrencyWords) == 0 {
		out.CurrencyWords = def.CurrencyWords
	}
	if len(out.Delimiters) == 0 {
		out.Delimiters = def.Delimiters
	}
	if len(out.Fillers) == 0 {
		out.Fillers = def.Fillers
	}
	return out
}

// wordSet lower-cases a word list into a lookup set.
func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
