// Package pipeline rebuilds the article database from a corpus root.
//
// A run moves strictly forward through Init, SchemaReady, Streaming,
// Committed and Closed. There is no checkpointing: a run that fails part way
// leaves a partial database that must be discarded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cord19q/cord19q/internal/corpus"
	"github.com/cord19q/cord19q/internal/normalize"
	"github.com/cord19q/cord19q/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is a stage of a pipeline run.
type State int

const (
	Init State = iota
	SchemaReady
	Streaming
	Committed
	Closed
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case SchemaReady:
		return "SchemaReady"
	case Streaming:
		return "Streaming"
	case Committed:
		return "Committed"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidState is returned when a stage is invoked out of order.
var ErrInvalidState = errors.New("invalid pipeline state")

// Meta keys recorded in the _meta table.
const (
	MetaRunID      = "run_id"
	MetaCorpusRoot = "corpus_root"
	MetaBuiltAt    = "built_at"
	MetaArticles   = "articles"
	MetaSections   = "sections"
)

// Options configures a run.
type Options struct {
	CorpusRoot    string
	DBPath        string
	Tables        storage.Tables    // zero value uses storage.DefaultTables
	Tagger        *normalize.Tagger // nil uses the default COVID-19 tagger
	Workers       int               // <= 1 processes rows sequentially
	ProgressEvery int               // 0 disables progress reports
	Progress      func(articles int)
	Logger        *zap.Logger
	Now           func() time.Time
}

// Stats summarizes a run.
type Stats struct {
	RunID            string
	Articles         int // metadata rows processed
	ArticlesWritten  int
	Sections         int // section ids assigned
	SectionsWritten  int
	Rejected         int // rows the store refused
	SideCarFailures  int // malformed full-text documents
	UntitledArticles int // rows with neither hash nor title
	SchemaErrors     int
}

// Pipeline drives one rebuild. It is not safe for concurrent use.
type Pipeline struct {
	opts   Options
	layout corpus.Layout
	tagger *normalize.Tagger
	log    *zap.Logger

	state       State
	meta        *corpus.MetadataReader
	db          *storage.DB
	nextSection int64
	stats       Stats
}

// New creates a pipeline in the Init state.
func New(opts Options) *Pipeline {
	if opts.Tables.Articles.Name == "" {
		opts.Tables = storage.DefaultTables()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	tagger := opts.Tagger
	if tagger == nil {
		tagger = normalize.NewTagger("", nil)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		opts:   opts,
		layout: corpus.NewLayout(opts.CorpusRoot),
		tagger: tagger,
		log:    log,
		state:  Init,
		stats:  Stats{RunID: uuid.NewString()},
	}
}

// State returns the current stage.
func (p *Pipeline) State() State {
	return p.state
}

// Stats returns the counters accumulated so far.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Run performs a full rebuild and returns its statistics.
func (p *Pipeline) Run(ctx context.Context) (stats Stats, err error) {
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := p.Prepare(); err != nil {
		return p.stats, err
	}
	if err := p.Stream(ctx); err != nil {
		return p.stats, err
	}
	if err := p.Commit(); err != nil {
		return p.stats, err
	}
	return p.stats, nil
}

// Prepare opens the metadata, replaces the database with an empty one and
// creates the tables. Table creation failures are logged, not fatal.
func (p *Pipeline) Prepare() error {
	if p.state != Init {
		return fmt.Errorf("%w: prepare in %s", ErrInvalidState, p.state)
	}

	meta, err := corpus.OpenMetadata(p.layout)
	if err != nil {
		return err
	}
	p.meta = meta

	db, err := storage.Create(p.opts.DBPath, p.opts.Tables)
	if err != nil {
		return err
	}
	p.db = db

	for _, err := range db.CreateTables() {
		p.stats.SchemaErrors++
		var se *storage.Error
		if errors.As(err, &se) {
			p.log.Error("failed to create table",
				zap.String("table", se.Table),
				zap.String("statement", se.Statement),
				zap.Strings("types", se.Types),
				zap.Error(se.Err))
			continue
		}
		p.log.Error("failed to create table", zap.Error(err))
	}

	p.transition(SchemaReady)
	return nil
}

// Stream reads every metadata row in file order and writes its article and
// sections inside a single transaction.
func (p *Pipeline) Stream(ctx context.Context) error {
	if p.state != SchemaReady {
		return fmt.Errorf("%w: stream in %s", ErrInvalidState, p.state)
	}
	p.transition(Streaming)

	if err := p.db.Begin(); err != nil {
		return err
	}

	if p.opts.Workers > 1 {
		return p.streamParallel(ctx, p.opts.Workers)
	}
	return p.streamSequential(ctx)
}

func (p *Pipeline) streamSequential(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := p.meta.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		p.write(p.prepare(row))
	}
}

// Commit records run metadata and commits the transaction.
func (p *Pipeline) Commit() error {
	if p.state != Streaming {
		return fmt.Errorf("%w: commit in %s", ErrInvalidState, p.state)
	}

	meta := []struct{ key, value string }{
		{MetaRunID, p.stats.RunID},
		{MetaCorpusRoot, p.opts.CorpusRoot},
		{MetaBuiltAt, p.opts.Now().UTC().Format(time.RFC3339)},
		{MetaArticles, strconv.Itoa(p.stats.ArticlesWritten)},
		{MetaSections, strconv.Itoa(p.stats.SectionsWritten)},
	}
	for _, m := range meta {
		if err := p.db.SetMeta(m.key, m.value); err != nil {
			p.log.Warn("failed to record run metadata", zap.String("key", m.key), zap.Error(err))
		}
	}

	if err := p.db.Commit(); err != nil {
		return err
	}
	p.transition(Committed)
	return nil
}

// Close releases the metadata file and the database. It is safe to call
// in any state and more than once.
func (p *Pipeline) Close() error {
	if p.state == Closed {
		return nil
	}

	var errs []error
	if p.meta != nil {
		errs = append(errs, p.meta.Close())
		p.meta = nil
	}
	if p.db != nil {
		errs = append(errs, p.db.Close())
		p.db = nil
	}
	p.transition(Closed)
	return errors.Join(errs...)
}

func (p *Pipeline) transition(s State) {
	p.log.Debug("pipeline state", zap.Stringer("from", p.state), zap.Stringer("to", s))
	p.state = s
}
