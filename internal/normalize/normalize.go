// Package normalize cleans raw metadata fields into stored values.
//
// None of the normalizers return errors: a value that cannot be cleaned
// becomes absent (nil) or passes through unchanged.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DOIResolver is the prefix prepended to bare DOIs.
const DOIResolver = "https://doi.org/"

// monthLayouts are the PubMed-style "year month [day]" forms.
var monthLayouts = []string{"2006 Jan 2", "2006 January 2", "2006 Jan", "2006 January"}

// yearWord matches a year followed by a month range or season, such as
// "2020 Jan-Feb" or "2020 Spring".
var yearWord = regexp.MustCompile(`^(\d{4})\s+([A-Za-z]{3,})`)

// quoted matches single-quoted list items, trimming whitespace inside the quotes.
var quoted = regexp.MustCompile(`'\s*([^']*?)\s*'`)

// Date parses a free-form publish date. A bare year is widened to January 1st
// and a year with a month to the first of that month. A year followed by a
// month range keeps its leading month; one followed by any other word keeps
// only the year. Returns nil if the value is empty, malformed or ambiguous.
func Date(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if isYear(value) {
		value += "-01-01"
	}

	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}

	if m := yearWord.FindStringSubmatch(value); m != nil {
		if t, err := time.Parse("2006 Jan", m[1]+" "+m[2][:3]); err == nil {
			return &t
		}
		if t, err := time.Parse("2006", m[1]); err == nil {
			return &t
		}
	}

	t, err := dateparse.ParseStrict(value)
	if err != nil {
		return nil
	}
	return &t
}

func isYear(value string) bool {
	if len(value) != 4 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Authors flattens a serialized author list such as "['Smith, J.', 'Doe, A.']"
// into "Smith, J.; Doe, A.". Values that don't look like a list pass through.
func Authors(value string) string {
	if !strings.Contains(value, "[") {
		return value
	}

	matches := quoted.FindAllStringSubmatch(value, -1)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}
	return strings.Join(names, "; ")
}

// Reference builds a link from a DOI. Bare DOIs are prefixed with the doi.org
// resolver; values that are already links pass through. Empty input is nil.
func Reference(doi string) *string {
	if doi == "" {
		return nil
	}
	if !strings.HasPrefix(doi, "http") && !strings.HasPrefix(doi, "doi.org") {
		doi = DOIResolver + doi
	}
	return &doi
}
