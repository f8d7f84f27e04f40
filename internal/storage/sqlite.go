// Package storage persists articles and sections to a SQLite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cord19q/cord19q/internal/article"
	"github.com/cord19q/cord19q/internal/schema"
	_ "modernc.org/sqlite"
)

// Tables groups the relations a DB writes to.
type Tables struct {
	Articles schema.Table
	Sections schema.Table
	Meta     schema.Table
}

// DefaultTables returns the standard articles/sections/_meta definitions.
func DefaultTables() Tables {
	return Tables{
		Articles: schema.Articles(),
		Sections: schema.Sections(),
		Meta:     schema.Meta(),
	}
}

// DB wraps a SQLite database connection owned by a single writer.
type DB struct {
	db     *sql.DB
	path   string
	tables Tables
	tx     *sql.Tx
	stmts  map[string]*sql.Stmt
}

// Create removes any existing database at path and opens a fresh one.
// The parent directory is created if needed.
func Create(path string, tables Tables) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &Error{Kind: IOError, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	for _, p := range []string{path, path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, &Error{Kind: IOError, Err: fmt.Errorf("removing existing database: %w", err)}
		}
	}

	db, err := Open(path, tables)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Open opens the database at path without removing it.
func Open(path string, tables Tables) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Kind: IOError, Err: fmt.Errorf("opening database: %w", err)}
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &Error{Kind: IOError, Err: fmt.Errorf("opening database: %w", err)}
	}

	return &DB{db: db, path: path, tables: tables, stmts: make(map[string]*sql.Stmt)}, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Tables returns the table definitions the DB writes to.
func (d *DB) Tables() Tables {
	return d.tables
}

// CreateTable creates a table if it doesn't exist.
// Failures are reported as SchemaError with the attempted statement.
func (d *DB) CreateTable(t schema.Table) error {
	stmt := t.CreateStatement()
	if err := t.Validate(); err != nil {
		return &Error{Kind: SchemaError, Table: t.Name, Statement: stmt, Types: t.TypeSet(), Err: err}
	}
	if _, err := d.db.Exec(stmt); err != nil {
		return &Error{Kind: SchemaError, Table: t.Name, Statement: stmt, Types: t.TypeSet(), Err: err}
	}
	return nil
}

// CreateTables creates every table independently. A failure for one table
// does not prevent the others from being created.
func (d *DB) CreateTables() []error {
	var errs []error
	for _, t := range []schema.Table{d.tables.Articles, d.tables.Sections, d.tables.Meta} {
		if err := d.CreateTable(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Begin starts the transaction all subsequent writes go through.
func (d *DB) Begin() error {
	if d.tx != nil {
		return &Error{Kind: IOError, Err: errors.New("transaction already started")}
	}
	tx, err := d.db.Begin()
	if err != nil {
		return &Error{Kind: IOError, Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	d.tx = tx
	return nil
}

// Commit flushes all writes made since Begin.
func (d *DB) Commit() error {
	if d.tx == nil {
		return &Error{Kind: IOError, Err: errors.New("no transaction to commit")}
	}
	d.closeStatements()
	err := d.tx.Commit()
	d.tx = nil
	if err != nil {
		return &Error{Kind: IOError, Err: fmt.Errorf("committing: %w", err)}
	}
	return nil
}

// Close rolls back any open transaction and closes the connection.
func (d *DB) Close() error {
	d.closeStatements()
	if d.tx != nil {
		d.tx.Rollback()
		d.tx = nil
	}
	return d.db.Close()
}

func (d *DB) closeStatements() {
	for name, stmt := range d.stmts {
		stmt.Close()
		delete(d.stmts, name)
	}
}

// WriteArticle inserts one article row.
func (d *DB) WriteArticle(a article.Article) error {
	return d.insert(d.tables.Articles, a.ID, a.Row())
}

// WriteSection inserts one section row.
func (d *DB) WriteSection(s article.Section) error {
	return d.insert(d.tables.Sections, strconv.FormatInt(s.ID, 10), s.Row())
}

// SetMeta records a run metadata value.
func (d *DB) SetMeta(key, value string) error {
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)", d.tables.Meta.Name)
	if _, err := d.exec(stmt, key, value); err != nil {
		return &Error{Kind: RowRejected, Table: d.tables.Meta.Name, Key: key, Err: err}
	}
	return nil
}

// insert coerces row per the table's column types and executes the insert.
func (d *DB) insert(t schema.Table, key string, row []any) error {
	values, err := t.Values(row)
	if err != nil {
		return &Error{Kind: RowRejected, Table: t.Name, Key: key, Err: err}
	}

	stmt, err := d.statement(t)
	if err != nil {
		return &Error{Kind: RowRejected, Table: t.Name, Key: key, Err: err}
	}
	if _, err := stmt.Exec(values...); err != nil {
		return &Error{Kind: RowRejected, Table: t.Name, Key: key, Err: err}
	}
	return nil
}

// statement returns a prepared insert for t, bound to the open transaction.
func (d *DB) statement(t schema.Table) (*sql.Stmt, error) {
	if stmt, ok := d.stmts[t.Name]; ok {
		return stmt, nil
	}

	var stmt *sql.Stmt
	var err error
	if d.tx != nil {
		stmt, err = d.tx.Prepare(t.InsertStatement())
	} else {
		stmt, err = d.db.Prepare(t.InsertStatement())
	}
	if err != nil {
		return nil, fmt.Errorf("preparing %s insert: %w", t.Name, err)
	}
	d.stmts[t.Name] = stmt
	return stmt, nil
}

func (d *DB) exec(query string, args ...any) (sql.Result, error) {
	if d.tx != nil {
		return d.tx.Exec(query, args...)
	}
	return d.db.Exec(query, args...)
}

// Count returns the number of rows in a table.
func (d *DB) Count(table string) (int, error) {
	var count int
	err := d.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}

// GetMeta returns a run metadata value, or "" if unset.
func (d *DB) GetMeta(key string) (string, error) {
	var value sql.NullString
	err := d.db.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE key = ?", d.tables.Meta.Name), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// GetArticle retrieves an article by id. Returns nil if not found.
func (d *DB) GetArticle(id string) (*article.Article, error) {
	var a article.Article
	var source, publication, authors, title, tags, reference sql.NullString
	var published any

	err := d.db.QueryRow(`
		SELECT id, source, published, publication, authors, title, tags, reference
		FROM `+d.tables.Articles.Name+` WHERE id = ?`, id).
		Scan(&a.ID, &source, &published, &publication, &authors, &title, &tags, &reference)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	a.Source = source.String
	a.Publication = publication.String
	a.Authors = authors.String
	a.Title = title.String
	a.Tags = nullableValue(tags)
	a.Reference = nullableValue(reference)

	a.Published, err = storedTime(published)
	if err != nil {
		return nil, fmt.Errorf("parsing published for %s: %w", a.ID, err)
	}
	return &a, nil
}

// ListArticleIDs returns article ids in insertion order.
func (d *DB) ListArticleIDs() ([]string, error) {
	rows, err := d.db.Query(`SELECT id FROM ` + d.tables.Articles.Name + ` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSections returns all sections ordered by id.
func (d *DB) ListSections() ([]article.Section, error) {
	rows, err := d.db.Query(`SELECT id, article, text, tags FROM ` + d.tables.Sections.Name + ` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	defer rows.Close()

	var sections []article.Section
	for rows.Next() {
		var s article.Section
		var articleID, text, tags sql.NullString
		if err := rows.Scan(&s.ID, &articleID, &text, &tags); err != nil {
			return nil, err
		}
		s.Article = articleID.String
		s.Text = text.String
		s.Tags = nullableValue(tags)
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// nullableValue converts a sql.NullString to a string pointer, NULL as nil.
func nullableValue(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// storedTime converts a DATETIME column value. The driver may return either a
// parsed time or the stored text.
func storedTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func parseStoredTime(s string) (*time.Time, error) {
	for _, layout := range []string{schema.DateTimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized datetime %q", s)
}
