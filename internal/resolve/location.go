package resolve

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LocationClassifier maps free text to one of a fixed, ordered set of
// municipality names. Matching is by containment and the first hit wins.
type LocationClassifier struct {
	names    []string
	fallback string
}

// NewLocationClassifier creates a classifier over names, in order
func NewLocationClassifier(names []string, fallback string) *LocationClassifier {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	return &LocationClassifier{names: cleaned, fallback: fallback}
}

// Classify returns the first known municipality contained in raw, or the fallback
func (c *LocationClassifier) Classify(raw string) string {
	text := Clean(raw)
	if text == "" {
		return c.fallback
	}

	// cases.Caser keeps state, so one per call
	titled := cases.Title(language.English).String(text)
	for _, name := range c.names {
		if strings.Contains(titled, name) {
			return name
		}
	}
	return c.fallback
}

// Default returns the fallback location
func (c *LocationClassifier) Default() string {
	return c.fallback
}
