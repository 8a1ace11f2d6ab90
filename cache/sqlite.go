package cache

import (
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);`

// SQLite is a persistent dataset cache backed by an embedded SQLite file.
// SQLite only supports one writer at a time, so writes go through a single
// connection guarded by a mutex.
type SQLite struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// OpenSQLite opens (creating if needed) the cache database with WAL mode.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open cache database")
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "Can't ping cache database")
	}
	if _, err := conn.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "Can't tune cache database")
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "Can't create cache schema")
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the database connection.
func (c *SQLite) Close() error {
	return c.conn.Close()
}

// Get returns the cached payload. Expired rows count as misses and are
// deleted lazily.
func (c *SQLite) Get(key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := c.conn.QueryRow("SELECT value, expires_at FROM datasets WHERE key = ?", key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "Can't read cache entry")
	}
	if expiresAt != 0 && time.Now().Unix() >= expiresAt {
		c.writeMu.Lock()
		_, _ = c.conn.Exec("DELETE FROM datasets WHERE key = ?", key)
		c.writeMu.Unlock()
		return nil, false, nil
	}
	return value, true, nil
}

// Put upserts the payload under the key. A ttl of zero stores it without
// expiry.
func (c *SQLite) Put(key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Exec(
		"INSERT INTO datasets (key, value, expires_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at",
		key, value, expiresAt,
	)
	if err != nil {
		return errors.Wrap(err, "Can't write cache entry")
	}
	return nil
}
