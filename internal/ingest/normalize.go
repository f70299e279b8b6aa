package ingest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Normalizer rewrites German abbreviations and number-dot sequences so the
// downstream sentence splitter does not mistake their dots for sentence
// boundaries. "z.B." becomes "zB", "20. Jän" becomes "20 Jän"; a dot that
// actually ends a sentence (digit-dot at end of input included) survives.
type Normalizer struct {
	patterns []*regexp.Regexp
	subs     []string
}

// numberDotPattern matches "digits + dot + non-digit": an ordinal or date
// number whose dot is not a sentence terminator. The trailing non-digit is
// kept, only the dot is dropped.
var numberDotPattern = regexp.MustCompile(`[0-9]+\.[^\d]`)

// NewNormalizer builds a normalizer from a list of abbreviation forms.
// Entries without a dot need no rewriting and are ignored.
func NewNormalizer(abbreviations []string) *Normalizer {
	n := &Normalizer{}
	for _, word := range abbreviations {
		if !strings.Contains(word, ".") {
			continue
		}
		n.patterns = append(n.patterns, regexp.MustCompile(regexp.QuoteMeta(word)))
		n.subs = append(n.subs, strings.ReplaceAll(word, ".", ""))
	}
	return n
}

// LoadAbbreviations reads a whitespace-separated abbreviation list, e.g.
// the jfilter/german-abbreviations derived file.
func LoadAbbreviations(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abbreviations %s: %w", path, err)
	}
	return strings.Fields(string(data)), nil
}

// Normalize applies the abbreviation pass and then the number-dot pass.
// It is idempotent: the first pass removes every dot the patterns can see.
func (n *Normalizer) Normalize(text string) string {
	for i, p := range n.patterns {
		text = p.ReplaceAllLiteralString(text, n.subs[i])
	}
	return numberDotPattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.Replace(match, ".", "", 1)
	})
}
