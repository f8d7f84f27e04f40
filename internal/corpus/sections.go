package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformedArticle is returned when a full-text document exists but can't be parsed.
var ErrMalformedArticle = errors.New("malformed article document")

// document is the subset of a full-text file the pipeline reads.
type document struct {
	BodyText *[]paragraph `json:"body_text"`
}

type paragraph struct {
	Text *string `json:"text"`
}

// ReadSections returns the body paragraphs of an article in document order.
// A missing document is not an error: many articles are metadata-only.
func ReadSections(layout Layout, id string) ([]string, error) {
	if id == "" {
		return nil, nil
	}

	data, err := os.ReadFile(layout.ArticlePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading article %s: %w", id, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArticle, id, err)
	}
	if doc.BodyText == nil {
		return nil, fmt.Errorf("%w: %s: missing body_text", ErrMalformedArticle, id)
	}

	sections := make([]string, 0, len(*doc.BodyText))
	for i, p := range *doc.BodyText {
		if p.Text == nil {
			return nil, fmt.Errorf("%w: %s: body_text[%d] has no text", ErrMalformedArticle, id, i)
		}
		sections = append(sections, *p.Text)
	}
	return sections, nil
}
