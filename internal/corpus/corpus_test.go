package corpus

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "cord_uid,sha,source_x,title,doi,abstract,publish_time,authors,journal\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLayout(t *testing.T) {
	l := NewLayout("/data/cord19")

	assert.Equal(t, filepath.Join("/data/cord19", "metadata.csv"), l.MetadataPath())
	assert.Equal(t, filepath.Join("/data/cord19", "articles", "abc.json"), l.ArticlePath("abc"))
}

func TestReadSections(t *testing.T) {
	l := NewLayout(t.TempDir())
	writeFile(t, l.ArticlePath("a1"), `{
		"paper_id": "a1",
		"body_text": [
			{"text": "First paragraph.", "section": "Intro"},
			{"text": "Second paragraph.", "section": "Methods"}
		]
	}`)

	got, err := ReadSections(l, "a1")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"First paragraph.", "Second paragraph."}, got); diff != "" {
		t.Errorf("ReadSections mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSectionsMissingFile(t *testing.T) {
	l := NewLayout(t.TempDir())

	got, err := ReadSections(l, "nope")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadSections(l, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadSectionsEmptyBody(t *testing.T) {
	l := NewLayout(t.TempDir())
	writeFile(t, l.ArticlePath("a1"), `{"body_text": []}`)

	got, err := ReadSections(l, "a1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadSectionsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"body_text": [`},
		{"missing body_text", `{"paper_id": "a1"}`},
		{"paragraph without text", `{"body_text": [{"text": "ok"}, {"section": "x"}]}`},
		{"wrong type", `{"body_text": "text"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLayout(t.TempDir())
			writeFile(t, l.ArticlePath("a1"), tt.content)

			got, err := ReadSections(l, "a1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedArticle), "expected ErrMalformedArticle, got %v", err)
			assert.Contains(t, err.Error(), "a1")
			assert.Nil(t, got)
		})
	}
}

func TestMetadataReader(t *testing.T) {
	input := header +
		`u1,abc,PMC,First title,10.1/a,Abs,2020,"['Smith, J.', 'Doe, A.']",Nature` + "\n" +
		`u2,,Elsevier,"Second, title",,,2019-05-01,Roe R,Lancet` + "\n"

	mr, err := NewMetadataReader(strings.NewReader(input))
	require.NoError(t, err)

	var rows []Row
	for {
		row, err := mr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}

	want := []Row{
		{Line: 1, SHA: "abc", Source: "PMC", PublishTime: "2020", Journal: "Nature",
			Authors: "['Smith, J.', 'Doe, A.']", Title: "First title", DOI: "10.1/a"},
		{Line: 2, SHA: "", Source: "Elsevier", PublishTime: "2019-05-01", Journal: "Lancet",
			Authors: "Roe R", Title: "Second, title", DOI: ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, mr.Close())
}

func TestMetadataReaderShortRow(t *testing.T) {
	mr, err := NewMetadataReader(strings.NewReader(header + "u1,abc,PMC,Only title\n"))
	require.NoError(t, err)

	row, err := mr.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", row.SHA)
	assert.Equal(t, "Only title", row.Title)
	assert.Empty(t, row.Journal)
	assert.Empty(t, row.DOI)
}

func TestMetadataReaderBOM(t *testing.T) {
	input := "\ufeffsha,source_x,publish_time,journal,authors,title,doi\nabc,PMC,2020,J,A,T,D\n"

	mr, err := NewMetadataReader(strings.NewReader(input))
	require.NoError(t, err)

	row, err := mr.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", row.SHA)
}

func TestMetadataReaderDuplicateColumn(t *testing.T) {
	input := "sha,source_x,publish_time,journal,authors,title,doi,title\nabc,PMC,2020,J,A,First,D,Second\n"

	mr, err := NewMetadataReader(strings.NewReader(input))
	require.NoError(t, err)

	row, err := mr.Next()
	require.NoError(t, err)
	assert.Equal(t, "Second", row.Title)
}

func TestMetadataReaderMissingColumns(t *testing.T) {
	_, err := NewMetadataReader(strings.NewReader("sha,title\nabc,T\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "source_x")
	assert.Contains(t, err.Error(), "doi")
}

func TestMetadataReaderEmpty(t *testing.T) {
	_, err := NewMetadataReader(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestOpenMetadata(t *testing.T) {
	l := NewLayout(t.TempDir())

	_, err := OpenMetadata(l)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	writeFile(t, l.MetadataPath(), header)
	mr, err := OpenMetadata(l)
	require.NoError(t, err)
	defer mr.Close()

	_, err = mr.Next()
	assert.Equal(t, io.EOF, err)
}
