package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"minirag/internal/domain"
	"minirag/internal/port"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers "sqlite".
)

// SQLiteStore uses the legacy embeddings.db layout with tables docs, cache and
// history, so a database written by earlier versions of the bot opens directly.
type SQLiteStore struct {
	db *sql.DB
	// writeMu serializes writers; WAL mode lets readers proceed meanwhile.
	writeMu sync.Mutex
}

var _ port.Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS docs (
	id        INTEGER PRIMARY KEY,
	title     TEXT,
	text      TEXT,
	embedding BLOB,
	dim       INTEGER
);

CREATE TABLE IF NOT EXISTS cache (
	key       TEXT PRIMARY KEY,
	embedding BLOB,
	dim       INTEGER
);

CREATE TABLE IF NOT EXISTS history (
	user_id TEXT,
	ts      INTEGER,
	role    TEXT,
	text    TEXT
);

CREATE INDEX IF NOT EXISTS history_user_ts ON history(user_id, ts);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);
`

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, domain.NewStorageError("open", fmt.Errorf("open sqlite: %w", err))
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, domain.NewStorageError("open", fmt.Errorf("init schema: %w", err))
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, title, text string, embedding []float32) (int64, error) {
	blob, err := EncodeEmbedding(embedding)
	if err != nil {
		return 0, domain.NewStorageError("save document", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO docs (title, text, embedding, dim) VALUES (?, ?, ?, ?)`,
		title, text, blob, len(embedding))
	if err != nil {
		return 0, domain.NewStorageError("save document", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.NewStorageError("save document", err)
	}
	return id, nil
}

func (s *SQLiteStore) LoadDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, text, embedding, dim FROM docs ORDER BY id`)
	if err != nil {
		return nil, domain.NewStorageError("load documents", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			d     domain.Document
			title sql.NullString
			text  sql.NullString
			blob  []byte
		)
		if err := rows.Scan(&d.ID, &title, &text, &blob, &d.Dim); err != nil {
			return nil, domain.NewStorageError("load documents", err)
		}
		d.Embedding, err = DecodeEmbedding(blob, d.Dim)
		if err != nil {
			return nil, domain.NewStorageError("load documents", fmt.Errorf("document %d: %w", d.ID, err))
		}
		d.Title = title.String
		d.Text = text.String
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("load documents", err)
	}
	return docs, nil
}

func (s *SQLiteStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs`).Scan(&n)
	return n, domain.NewStorageError("count documents", err)
}

func (s *SQLiteStore) GetEmbedding(ctx context.Context, key string) ([]float32, bool, error) {
	var (
		blob []byte
		dim  int
	)
	err := s.db.QueryRowContext(ctx, `SELECT embedding, dim FROM cache WHERE key = ?`, key).Scan(&blob, &dim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("cache get", err)
	}
	emb, err := DecodeEmbedding(blob, dim)
	if err != nil {
		return nil, false, domain.NewStorageError("cache get", err)
	}
	return emb, true, nil
}

func (s *SQLiteStore) SetEmbedding(ctx context.Context, key string, embedding []float32) error {
	blob, err := EncodeEmbedding(embedding)
	if err != nil {
		return domain.NewStorageError("cache set", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache (key, embedding, dim) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET embedding = excluded.embedding, dim = excluded.dim
	`, key, blob, len(embedding))
	return domain.NewStorageError("cache set", err)
}

func (s *SQLiteStore) ClearCache(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM cache`)
	return domain.NewStorageError("cache clear", err)
}

func (s *SQLiteStore) CountCacheEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache`).Scan(&n)
	return n, domain.NewStorageError("count cache", err)
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.UserID == "" {
		return domain.NewStorageError("append history", fmt.Errorf("empty user id"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (user_id, ts, role, text) VALUES (?, ?, ?, ?)`,
		entry.UserID, entry.Timestamp.UnixNano(), entry.Role, entry.Text)
	return domain.NewStorageError("append history", err)
}

func (s *SQLiteStore) RecentHistory(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	entries := []domain.HistoryEntry{}
	if userID == "" || limit <= 0 {
		return entries, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, role, text FROM history
		WHERE user_id = ?
		ORDER BY ts DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, domain.NewStorageError("recent history", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ts   int64
			role string
			text string
		)
		if err := rows.Scan(&ts, &role, &text); err != nil {
			return nil, domain.NewStorageError("recent history", err)
		}
		entries = append(entries, domain.HistoryEntry{
			UserID:    userID,
			Timestamp: historyTime(ts),
			Role:      role,
			Text:      text,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("recent history", err)
	}
	return entries, nil
}

// historyTime decodes a history ts column. Rows are written in unix
// nanoseconds; legacy databases hold unix seconds, which
// are always below 1e12.
func historyTime(ts int64) time.Time {
	if ts < 1e12 {
		return time.Unix(ts, 0)
	}
	return time.Unix(0, ts)
}

func (s *SQLiteStore) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, domain.NewStorageError("meta get", err)
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return domain.NewStorageError("meta set", err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
