package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var (
	_ Durable     = (*SQLiteStore)(nil)
	_ ObjectStore = (*SQLiteStore)(nil)
)

// SQLiteStore persists the session keys and shared files in a single SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
// Parent directories are created if needed. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("storage initialised")
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS shared_files (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			last_modified TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT '{}',
			data BLOB NOT NULL,
			created_at TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) PutObject(ctx context.Context, id string, obj Object) error {
	meta, err := json.Marshal(obj.Meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if obj.Meta == nil {
		meta = []byte("{}")
	}
	if obj.Data == nil {
		obj.Data = []byte{}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shared_files (id, name, mime_type, size, last_modified, meta, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			size = excluded.size,
			last_modified = excluded.last_modified,
			meta = excluded.meta,
			data = excluded.data
	`, id, obj.Name, obj.MIMEType, obj.Size, obj.LastModified.UTC().Format(time.RFC3339Nano), string(meta), obj.Data,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing shared file: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetObject(ctx context.Context, id string) (*Object, error) {
	var (
		obj             Object
		meta            string
		lastModifiedStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, mime_type, size, last_modified, meta, data FROM shared_files WHERE id = ?
	`, id).Scan(&obj.Name, &obj.MIMEType, &obj.Size, &lastModifiedStr, &meta, &obj.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading shared file: %w", err)
	}

	obj.LastModified, err = time.Parse(time.RFC3339Nano, lastModifiedStr)
	if err != nil {
		return nil, fmt.Errorf("parsing last_modified: %w", err)
	}

	if err := json.Unmarshal([]byte(meta), &obj.Meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if len(obj.Meta) == 0 {
		obj.Meta = nil
	}
	return &obj, nil
}

func (s *SQLiteStore) DeleteObject(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shared_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting shared file: %w", err)
	}
	return nil
}
