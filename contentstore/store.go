// Package contentstore is a local content backend. It keeps CMS documents in
// SQLite and serves them over the same search API the prismic client speaks,
// so the site can run and be tested without a hosted repository.
package contentstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/prismic"
)

// ErrInvalidDocument is returned when a document cannot be stored.
var ErrInvalidDocument = errors.New("contentstore: invalid document")

// Store wraps a SQLite database of CMS documents.
type Store struct {
	db *sql.DB

	mu  sync.RWMutex
	ref string
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and migrates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the API read while fixtures are loaded; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, ref: uuid.NewString()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

//go:embed migrations/*.sql
var migrations embed.FS

var migrateMu sync.Mutex

// ensureSchema applies the embedded goose migrations.
func (s *Store) ensureSchema() error {
	// goose keeps its dialect and base FS in package state
	migrateMu.Lock()
	defer migrateMu.Unlock()
	goose.SetBaseFS(migrations)
	goose.SetLogger(log.New(io.Discard, "", 0))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("contentstore: migrate: %w", err)
	}
	return nil
}

// Ref returns the current master ref. It changes whenever content changes.
func (s *Store) Ref() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ref
}

func (s *Store) bumpRef() {
	s.mu.Lock()
	s.ref = uuid.NewString()
	s.mu.Unlock()
}

// SaveDocument upserts a document. A missing ID is generated.
func (s *Store) SaveDocument(ctx context.Context, doc prismic.Document) error {
	if doc.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidDocument)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	data := doc.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s data is not JSON", ErrInvalidDocument, doc.ID)
	}
	var publishedAt sql.NullInt64
	if doc.FirstPublicationDate.Valid {
		publishedAt = sql.NullInt64{Int64: doc.FirstPublicationDate.Time.Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO documents (id, uid, type, first_publication_date, last_publication_date, published_at, data) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UID, doc.Type, timestampColumn(doc.FirstPublicationDate), timestampColumn(doc.LastPublicationDate), publishedAt, string(data))
	if err != nil {
		return fmt.Errorf("contentstore: save %s: %w", doc.ID, err)
	}
	s.bumpRef()
	return nil
}

// DeleteDocument removes a document by ID.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	s.bumpRef()
	return nil
}

// Query selects documents. Zero fields do not filter.
type Query struct {
	ID       string
	Type     string
	UID      string
	Page     int
	PageSize int
}

// Search returns one page of matching documents, newest first. Documents
// without a publication date sort last.
func (s *Store) Search(ctx context.Context, q Query) ([]prismic.Document, int, error) {
	var where []string
	var args []any
	if q.ID != "" {
		where = append(where, "id = ?")
		args = append(args, q.ID)
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, q.Type)
	}
	if q.UID != "" {
		where = append(where, "uid = ?")
		args = append(args, q.UID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uid, type, first_publication_date, last_publication_date, data FROM documents`+clause+
			` ORDER BY published_at IS NULL, published_at DESC, id LIMIT ? OFFSET ?`,
		append(args, q.PageSize, (q.Page-1)*q.PageSize)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []prismic.Document
	for rows.Next() {
		var doc prismic.Document
		var first, last sql.NullString
		var data string
		if err := rows.Scan(&doc.ID, &doc.UID, &doc.Type, &first, &last, &data); err != nil {
			return nil, 0, err
		}
		if doc.FirstPublicationDate, err = parseTimestampColumn(first); err != nil {
			return nil, 0, err
		}
		if doc.LastPublicationDate, err = parseTimestampColumn(last); err != nil {
			return nil, 0, err
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func timestampColumn(t prismic.Timestamp) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Time.Format(prismic.TimestampLayout), Valid: true}
}

func parseTimestampColumn(v sql.NullString) (prismic.Timestamp, error) {
	if !v.Valid {
		return prismic.Timestamp{}, nil
	}
	var ts prismic.Timestamp
	b, _ := json.Marshal(v.String)
	if err := ts.UnmarshalJSON(b); err != nil {
		return prismic.Timestamp{}, err
	}
	return ts, nil
}
