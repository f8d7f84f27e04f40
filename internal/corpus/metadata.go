package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingColumn is returned when metadata.csv lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Metadata column names.
const (
	ColumnSHA         = "sha"
	ColumnSource      = "source_x"
	ColumnPublishTime = "publish_time"
	ColumnJournal     = "journal"
	ColumnAuthors     = "authors"
	ColumnTitle       = "title"
	ColumnDOI         = "doi"
)

// RequiredColumns lists the columns every metadata file must carry.
func RequiredColumns() []string {
	return []string{ColumnSHA, ColumnSource, ColumnPublishTime, ColumnJournal, ColumnAuthors, ColumnTitle, ColumnDOI}
}

// Row is one raw metadata record.
type Row struct {
	Line        int // 1-based record number, header excluded
	SHA         string
	Source      string
	PublishTime string
	Journal     string
	Authors     string
	Title       string
	DOI         string
}

// MetadataReader streams metadata rows in file order.
type MetadataReader struct {
	r      *csv.Reader
	closer io.Closer
	index  map[string]int
	line   int
}

// OpenMetadata opens metadata.csv under the corpus root and validates its header.
func OpenMetadata(layout Layout) (*MetadataReader, error) {
	f, err := os.Open(layout.MetadataPath())
	if err != nil {
		return nil, fmt.Errorf("opening metadata: %w", err)
	}

	mr, err := NewMetadataReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	mr.closer = f
	return mr, nil
}

// NewMetadataReader reads metadata from r. The header is consumed immediately.
func NewMetadataReader(r io.Reader) (*MetadataReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("reading metadata header: empty file")
		}
		return nil, fmt.Errorf("reading metadata header: %w", err)
	}

	// A repeated column name resolves to its last occurrence.
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[name] = i
	}

	var missing []string
	for _, name := range RequiredColumns() {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return &MetadataReader{r: cr, index: index}, nil
}

// Next returns the next row, or io.EOF when the file is exhausted.
func (m *MetadataReader) Next() (Row, error) {
	record, err := m.r.Read()
	if err != nil {
		if err == io.EOF {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("reading metadata record %d: %w", m.line+1, err)
	}
	m.line++

	field := func(name string) string {
		if i := m.index[name]; i < len(record) {
			return record[i]
		}
		return ""
	}

	return Row{
		Line:        m.line,
		SHA:         field(ColumnSHA),
		Source:      field(ColumnSource),
		PublishTime: field(ColumnPublishTime),
		Journal:     field(ColumnJournal),
		Authors:     field(ColumnAuthors),
		Title:       field(ColumnTitle),
		DOI:         field(ColumnDOI),
	}, nil
}

// Close releases the underlying file, if any.
func (m *MetadataReader) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}
