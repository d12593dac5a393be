package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open opens the SQLite database at path. Write transactions take the
// database lock on BEGIN, so concurrent read-modify-write transactions on the
// same card serialize instead of failing on upgrade; waiting writers retry
// for the busy timeout. ":memory:" opens a single-connection in-memory
// database.
func Open(path string) (*sql.DB, error) {
	params := "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"

	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	var dsn string
	switch {
	case path == ":memory:":
		dsn = "file::memory:?" + params
	case strings.HasPrefix(path, "file:"):
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + params
	default:
		dsn = "file:" + path + "?" + params + "&_journal_mode=WAL"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory {
		// Each connection would otherwise see its own empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}

// InitDB applies the embedded goose migrations.
func InitDB(ctx context.Context, conn *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
