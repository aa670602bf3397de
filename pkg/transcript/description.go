package transcript

import "strings"

// punctCutset is trimmed from word edges and from the final description.
const punctCutset = ".,!?;:\"'()[]{}-"

// DescriptionExtractor isolates the expense description from the residual
// text left after the amount span is removed. The text strictly after the
// first delimiter keyword wins; without a delimiter the whole residual is
// the candidate. Filler words are stripped from both ends.
type DescriptionExtractor struct {
	delimiters map[string]struct{}
	fillers    map[string]struct{}
}

// NewDescriptionExtractor builds an extractor for the given vocabulary.
func NewDescriptionExtractor(v *Vocabulary) *DescriptionExtractor {
	v = v.withDefaults()
	return &DescriptionExtractor{
		delimiters: wordSet(v.Delimiters),
		fillers:    wordSet(v.Fillers),
	}
}

// Extract returns the cleaned description from the residual text. The
// second return is false when nothing usable remains after trimming.
func (e *DescriptionExtractor) Extract(residual string) (string, bool) {
	words := strings.Fields(residual)

	for i, w := range words {
		if _, ok := e.delimiters[trimWordPunct(w)]; ok {
			words = words[i+1:]
			break
		}
	}

	start, end := 0, len(words)
	for start < end && e.isFiller(words[start]) {
		start++
	}
	for end > start && e.isFiller(words[end-1]) {
		end--
	}

	desc := strings.Trim(strings.Join(words[start:end], " "), punctCutset+" ")
	if desc == "" {
		return "", false
	}
	return desc, true
}

func (e *DescriptionExtractor) isFiller(w string) bool {
	t := trimWordPunct(w)
	if t == "" {
		return true
	}
	_, ok := e.fillers[t]
	return ok
}

func trimWordPunct(w string) string {
	return strings.Trim(w, punctCutset)
}
