package pipeline

import (
	"errors"

	"github.com/cord19q/cord19q/internal/article"
	"github.com/cord19q/cord19q/internal/corpus"
	"github.com/cord19q/cord19q/internal/normalize"
	"github.com/cord19q/cord19q/internal/storage"
	"go.uber.org/zap"
)

// document is a fully normalized metadata row, ready to be written.
type document struct {
	seq      int
	article  article.Article
	sections []string // title first, then body paragraphs
	readErr  error
	untitled bool
}

// prepare resolves and normalizes a row. It only reads from the corpus and
// can run on any goroutine.
func (p *Pipeline) prepare(row corpus.Row) document {
	id := article.ResolveID(row.SHA, row.Title)

	body, err := corpus.ReadSections(p.layout, id)
	sections := make([]string, 0, 1+len(body))
	sections = append(sections, row.Title)
	sections = append(sections, body...)

	return document{
		article: article.Article{
			ID:          id,
			Source:      row.Source,
			Published:   normalize.Date(row.PublishTime),
			Publication: row.Journal,
			Authors:     normalize.Authors(row.Authors),
			Title:       row.Title,
			Tags:        p.tagger.Tag(sections),
			Reference:   normalize.Reference(row.DOI),
		},
		sections: sections,
		readErr:  err,
		untitled: row.SHA == "" && row.Title == "",
	}
}

// write persists a document. Only the writer goroutine calls it; section
// ids are assigned here so they follow input order.
func (p *Pipeline) write(doc document) {
	a := doc.article

	if doc.readErr != nil {
		p.stats.SideCarFailures++
		p.log.Warn("skipping full text", zap.String("article", a.ID), zap.Error(doc.readErr))
	}
	if doc.untitled {
		p.stats.UntitledArticles++
		p.log.Debug("article has no title or hash", zap.String("article", a.ID))
	}

	if err := p.db.WriteArticle(a); err != nil {
		p.rejected(a.ID, err)
	} else {
		p.stats.ArticlesWritten++
	}

	p.stats.Articles++
	if p.opts.ProgressEvery > 0 && p.stats.Articles%p.opts.ProgressEvery == 0 && p.opts.Progress != nil {
		p.opts.Progress(p.stats.Articles)
	}

	for _, text := range doc.sections {
		s := article.Section{ID: p.nextSection, Article: a.ID, Text: text, Tags: a.Tags}
		p.nextSection++
		p.stats.Sections++

		if err := p.db.WriteSection(s); err != nil {
			p.rejected(a.ID, err)
			continue
		}
		p.stats.SectionsWritten++
	}
}

func (p *Pipeline) rejected(articleID string, err error) {
	p.stats.Rejected++
	fields := []zap.Field{zap.String("article", articleID), zap.Error(err)}
	var se *storage.Error
	if errors.As(err, &se) {
		fields = append(fields, zap.String("table", se.Table), zap.String("key", se.Key))
	}
	p.log.Warn("error inserting row", fields...)
}
