package normalize

import "strings"

// Default topical marker.
const DefaultTagLabel = "COVID-19"

// DefaultKeywords returns the terms that mark an article as topical.
func DefaultKeywords() []string {
	return []string{"2019-ncov", "covid-19", "sars-cov-2"}
}

// Tagger labels an article when any of its sections mentions a keyword.
type Tagger struct {
	keywords []string
	label    string
}

// NewTagger creates a Tagger. Keywords are matched case-insensitively as
// substrings. Empty arguments fall back to the defaults.
func NewTagger(label string, keywords []string) *Tagger {
	if label == "" {
		label = DefaultTagLabel
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}

	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Tagger{keywords: lowered, label: label}
}

// Label returns the tag applied to matching articles.
func (t *Tagger) Label() string {
	return t.label
}

// Tag returns the label if any section matches, or nil.
// The same value applies to the article and every one of its sections.
func (t *Tagger) Tag(sections []string) *string {
	for _, text := range sections {
		lower := strings.ToLower(text)
		for _, k := range t.keywords {
			if strings.Contains(lower, k) {
				label := t.label
				return &label
			}
		}
	}
	return nil
}
