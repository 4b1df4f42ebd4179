package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/vocab-review/internal/config"
	"github.com/phrazzld/vocab-review/internal/platform/migrate"
	_ "modernc.org/sqlite" // sqlite driver
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// connectionPragmas are appended to a DSN that carries no query string.
const connectionPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the SQLite schema migrations.
func Migrations() migrate.Source {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at build time
		panic(fmt.Sprintf("sqlite: invalid embedded migrations: %v", err))
	}
	return migrate.Source{Dialect: "sqlite3", FS: sub}
}

// DSN turns a database path into a DSN with foreign keys and a busy timeout
// enabled. A DSN that already has a query string is returned unchanged.
func DSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?" + connectionPragmas
}

// Open opens the SQLite database at cfg.URL.
//
// SQLite allows a single writer, so the pool is limited to one connection and
// transactions are serialized in-process.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "sqlite"))

	db, err := sql.Open(DriverName, DSN(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established", slog.String("path", cfg.URL))
	return db, nil
}

// toMicros encodes a timestamp as unix microseconds in UTC.
func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func nullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMicros(*t), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMicros(v.Int64)
	return &t
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
