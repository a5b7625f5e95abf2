package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const slotSchema = `CREATE TABLE IF NOT EXISTS slots (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteCache implements Cache with a single key/value table (pure Go driver modernc.org/sqlite).
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the database at path, creating its parent
// directory, and applies the schema.
func NewSQLiteCache(ctx context.Context, path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite backend requires a path", ErrStorage)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create sqlite dir: %w", ErrStorage, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStorage, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, slotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply sqlite schema: %w", ErrStorage, err)
	}
	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO slots(key, value, updated_at) VALUES(?,?,?)`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (c *SQLiteCache) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
