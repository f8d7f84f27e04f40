// Package article defines the core domain types for corpus articles.
package article

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Article is one row of the articles relation.
type Article struct {
	ID          string     // Stable hash-derived identifier
	Source      string     // Provenance label (source_x)
	Published   *time.Time // nil if missing or unparsable
	Publication string     // Journal or venue
	Authors     string     // "; "-joined author list
	Title       string
	Tags        *string // Topical label, nil if untagged
	Reference   *string // Resolved DOI link, nil if no DOI
}

// Section is one row of the sections relation.
type Section struct {
	ID      int64 // Global, run-wide sequence number
	Article string
	Text    string
	Tags    *string
}

// Row returns the article's values in articles column order.
func (a Article) Row() []any {
	return []any{a.ID, a.Source, a.Published, a.Publication, a.Authors, a.Title, a.Tags, a.Reference}
}

// Row returns the section's values in sections column order.
func (s Section) Row() []any {
	return []any{s.ID, s.Article, s.Text, s.Tags}
}

// ResolveID returns the article identifier for a metadata row.
// An explicit content hash is used verbatim; otherwise the id is the
// hex SHA-1 of the UTF-8 title.
func ResolveID(sha, title string) string {
	if sha != "" {
		return sha
	}
	sum := sha1.Sum([]byte(title))
	return hex.EncodeToString(sum[:])
}

// EmptyTitleID is the id assigned to rows with neither hash nor title.
var EmptyTitleID = ResolveID("", "")
