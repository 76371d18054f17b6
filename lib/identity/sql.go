package identity

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const Schema = `
CREATE TABLE IF NOT EXISTS seen (
	id TEXT PRIMARY KEY,
	first_seen INTEGER NOT NULL
);
`

// SQLStore keeps the set in a "seen" table, recording when each id was
// first emitted.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func isRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// OpenSQLStore opens a local sqlite file, or a remote libsql database when
// dsn is a libsql:// or http(s):// url.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("a database was not specified")
	}

	driver := "sqlite"
	if isRemote(dsn) {
		driver = "libsql"
	} else if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity database: %w", err)
	}
	if driver == "sqlite" {
		// see https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		if dsn != ":memory:" {
			_, err = db.Exec("PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return nil, err
			}
		}
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an already opened database and ensures the schema.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize identity schema: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context) Set {
	set := NewSet()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM seen")
	if err != nil {
		slog.WarnContext(ctx, "failed to query identity store, starting empty", "err", err)
		return set
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.WarnContext(ctx, "failed to scan identity row, starting empty", "err", err)
			return NewSet()
		}
		set.Add(id)
	}
	if err := rows.Err(); err != nil {
		slog.WarnContext(ctx, "failed to read identity store, starting empty", "err", err)
		return NewSet()
	}
	return set
}

func (s *SQLStore) Save(ctx context.Context, set Set) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin identity transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	for _, id := range set.Sorted() {
		_, err := tx.ExecContext(
			ctx,
			"INSERT INTO seen (id, first_seen) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
			id, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert id %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// FirstSeen returns when id was first saved.
func (s *SQLStore) FirstSeen(ctx context.Context, id string) (time.Time, bool, error) {
	var unix int64
	err := s.db.QueryRowContext(ctx, "SELECT first_seen FROM seen WHERE id = ?", id).Scan(&unix)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(unix, 0), true, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
