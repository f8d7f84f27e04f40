// Package schema defines the relational layout of the article store.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ColumnType is the storage type of a column.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	Boolean
	DateTime
)

// String returns the lower-case name of the type.
func (t ColumnType) String() string {
	switch t {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	case DateTime:
		return "datetime"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// sqliteType maps a ColumnType to its SQLite declaration.
func (t ColumnType) sqliteType() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Boolean:
		return "BOOLEAN"
	case DateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func (t ColumnType) valid() bool {
	return t >= Text && t <= DateTime
}

// validIdentifier matches valid SQLite identifiers (alphanumeric + underscore, must start with letter or underscore).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Column is a single named, typed column.
type Column struct {
	Name    string
	Type    ColumnType
	Primary bool
}

// Table is an ordered list of columns. Column order is the insert order.
type Table struct {
	Name    string
	Columns []Column
}

// Articles returns the definition of the articles relation.
func Articles() Table {
	return Table{
		Name: "articles",
		Columns: []Column{
			{Name: "id", Type: Text, Primary: true},
			{Name: "source", Type: Text},
			{Name: "published", Type: DateTime},
			{Name: "publication", Type: Text},
			{Name: "authors", Type: Text},
			{Name: "title", Type: Text},
			{Name: "tags", Type: Text},
			{Name: "reference", Type: Text},
		},
	}
}

// Sections returns the definition of the sections relation.
func Sections() Table {
	return Table{
		Name: "sections",
		Columns: []Column{
			{Name: "id", Type: Integer, Primary: true},
			{Name: "article", Type: Text},
			{Name: "text", Type: Text},
			{Name: "tags", Type: Text},
		},
	}
}

// Meta returns the definition of the key/value table recording run metadata.
func Meta() Table {
	return Table{
		Name: "_meta",
		Columns: []Column{
			{Name: "key", Type: Text, Primary: true},
			{Name: "value", Type: Text},
		},
	}
}

// Validate checks that the table is well formed.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if !validIdentifier.MatchString(t.Name) {
		return fmt.Errorf("table name %q is not a valid identifier", t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s must have at least one column", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	var primary []string
	for _, c := range t.Columns {
		if !validIdentifier.MatchString(c.Name) {
			return fmt.Errorf("column name %q is not a valid identifier", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if !c.Type.valid() {
			return fmt.Errorf("column %q has invalid type %s", c.Name, c.Type)
		}
		if c.Primary {
			primary = append(primary, c.Name)
		}
	}

	if len(primary) == 0 {
		return fmt.Errorf("table %s must have exactly one primary key column", t.Name)
	}
	if len(primary) > 1 {
		return fmt.Errorf("table %s has multiple primary keys: %s", t.Name, strings.Join(primary, ", "))
	}
	return nil
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// TypeSet returns the distinct column types used by the table, sorted.
func (t Table) TypeSet() []string {
	set := make(map[string]bool)
	for _, c := range t.Columns {
		set[c.Type.String()] = true
	}
	types := make([]string, 0, len(set))
	for name := range set {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// CreateStatement generates a CREATE TABLE IF NOT EXISTS statement.
func (t Table) CreateStatement() string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		col := fmt.Sprintf("%s %s", c.Name, c.Type.sqliteType())
		if c.Primary {
			col += " PRIMARY KEY"
		}
		cols[i] = col
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Name, strings.Join(cols, ", "))
}

// InsertStatement generates a parameterized INSERT statement in column order.
func (t Table) InsertStatement() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(t.ColumnNames(), ", "), placeholders)
}
