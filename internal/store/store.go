// Package store persists segmented documents, reading progress and reading
// statistics in SQLite. Progress is stored only as a word count; pacing and
// RSVP positions are derived from it when read.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	format       TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	blocks_json  TEXT NOT NULL,
	block_count  INTEGER NOT NULL,
	total_words  INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);

CREATE TABLE IF NOT EXISTS progress (
	doc_id     TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	word_count INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reading_stats (
	doc_id     TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	words_read INTEGER NOT NULL DEFAULT 0,
	sessions   INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
`

// Store wraps the SQLite database. Decoded documents are cached in memory
// because every position lookup needs the full block sequence.
type Store struct {
	db   *sql.DB
	docs *cache.Cache
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{db: db, docs: cache.New(10*time.Minute, 20*time.Minute)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Document is a segmented document.
type Document struct {
	ID          string         `json:"doc_id"`
	Title       string         `json:"title"`
	Format      string         `json:"format"`
	ContentHash string         `json:"content_hash"`
	Blocks      []blocks.Block `json:"-"`
	BlockCount  int            `json:"block_count"`
	TotalWords  int            `json:"total_words"`
	CreatedAt   time.Time      `json:"created_at"`
}

// PutDocument inserts or replaces a document. Replacing keeps its progress.
func (s *Store) PutDocument(ctx context.Context, d *Document) error {
	data, err := blocks.Marshal(d.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.BlockCount = len(d.Blocks)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, format, content_hash, blocks_json, block_count, total_words, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			format = excluded.format,
			content_hash = excluded.content_hash,
			blocks_json = excluded.blocks_json,
			block_count = excluded.block_count,
			total_words = excluded.total_words`,
		d.ID, d.Title, d.Format, d.ContentHash, string(data), d.BlockCount, d.TotalWords,
		d.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put document %s: %w", d.ID, err)
	}
	s.docs.Delete(d.ID)
	return nil
}

// GetDocument loads a document with its blocks. The returned Blocks slice
// is shared with the cache and must not be modified.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	if x, found := s.docs.Get(id); found {
		d := *x.(*Document)
		return &d, nil
	}

	var (
		d       Document
		data    string
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, format, content_hash, blocks_json, block_count, total_words, created_at
		FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &d.Format, &d.ContentHash, &data, &d.BlockCount, &d.TotalWords, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	d.Blocks, err = blocks.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	cached := d
	s.docs.Set(id, &cached, cache.DefaultExpiration)
	return &d, nil
}

// ListDocuments returns document metadata without blocks, newest first.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, format, content_hash, block_count, total_words, created_at
		FROM documents ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d       Document
			created string
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Format, &d.ContentHash, &d.BlockCount, &d.TotalWords, &created); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// FindByHash returns the id of a document with the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE content_hash = ? LIMIT 1`, hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find by hash: %w", err)
	}
	return id, nil
}

// DeleteDocument removes a document together with its progress and stats.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	s.docs.Delete(id)
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Progress is the persisted reading position of one document.
type Progress struct {
	DocID     string    `json:"doc_id"`
	WordCount int       `json:"word_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetProgress returns the saved word count for a document.
func (s *Store) GetProgress(ctx context.Context, docID string) (*Progress, error) {
	var (
		p       Progress
		updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT doc_id, word_count, updated_at FROM progress WHERE doc_id = ?`, docID).
		Scan(&p.DocID, &p.WordCount, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress %s: %w", docID, err)
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &p, nil
}

// PutProgress saves the word count for a document.
func (s *Store) PutProgress(ctx context.Context, p Progress) error {
	return putProgress(ctx, s.db, p)
}

// SaveReading writes a progress update and, when st is non-nil, the matching
// reading stats in one transaction. Neither is saved if either write fails.
func (s *Store) SaveReading(ctx context.Context, p Progress, st *Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := putProgress(ctx, tx, p); err != nil {
		tx.Rollback()
		return err
	}
	if st != nil {
		if err := putStats(ctx, tx, *st); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reading %s: %w", p.DocID, err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putProgress(ctx context.Context, db execer, p Progress) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO progress (doc_id, word_count, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET word_count = excluded.word_count, updated_at = excluded.updated_at`,
		p.DocID, p.WordCount, p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put progress %s: %w", p.DocID, err)
	}
	return nil
}

// Stats aggregates reading activity for a document.
type Stats struct {
	DocID     string    `json:"doc_id"`
	WordsRead int       `json:"words_read"`
	Sessions  int       `json:"sessions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetStats returns reading statistics for a document.
func (s *Store) GetStats(ctx context.Context, docID string) (*Stats, error) {
	var (
		st      Stats
		updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT doc_id, words_read, sessions, updated_at FROM reading_stats WHERE doc_id = ?`, docID).
		Scan(&st.DocID, &st.WordsRead, &st.Sessions, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stats %s: %w", docID, err)
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &st, nil
}

// PutStats saves reading statistics for a document.
func (s *Store) PutStats(ctx context.Context, st Stats) error {
	return putStats(ctx, s.db, st)
}

func putStats(ctx context.Context, db execer, st Stats) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO reading_stats (doc_id, words_read, sessions, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			words_read = excluded.words_read,
			sessions = excluded.sessions,
			updated_at = excluded.updated_at`,
		st.DocID, st.WordsRead, st.Sessions, st.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put stats %s: %w", st.DocID, err)
	}
	return nil
}
