// Package corpus reads the raw literature corpus: the metadata table and the
// per-article full-text documents.
//
// A corpus root is laid out as:
//
//	<root>/metadata.csv        one row per article, processed in file order
//	<root>/articles/<id>.json  optional full text, named by article id
package corpus

import "path/filepath"

const (
	MetadataFile = "metadata.csv"
	ArticlesDir  = "articles"
	ArticleExt   = ".json"
)

// Layout resolves paths inside a corpus root.
type Layout struct {
	Root string
}

// NewLayout returns the layout for a corpus root directory.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// MetadataPath returns the path to metadata.csv.
func (l Layout) MetadataPath() string {
	return filepath.Join(l.Root, MetadataFile)
}

// ArticlePath returns the path to the full-text document for an article id.
func (l Layout) ArticlePath(id string) string {
	return filepath.Join(l.Root, ArticlesDir, id+ArticleExt)
}
