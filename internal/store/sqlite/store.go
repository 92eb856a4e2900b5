// Package sqlite implements the billing repository on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"abo/internal/logger"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a services.Repository backed by a SQLite database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

var (
	_ services.Repository        = (*Store)(nil)
	_ services.CatalogRepository = (*Store)(nil)
)

// Open opens (or creates) the database at path and applies all migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	const op = "Open"

	// - foreign_keys=ON: enforce references
	// - busy_timeout=5000: wait on a locked database instead of failing
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open SQLite database: %w", op, err)
	}

	// SQLite doesn't support multiple writers; a single connection also
	// keeps an in-memory database alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping SQLite database: %w", op, err)
	}

	s := &Store{db: db, log: logger.WithComponent("sqlite-store")}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug().Str("path", path).Msg("Database opened")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, file := range upFiles {
		migration, err := migrationsFS.ReadFile("migrations/" + file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		// Statements are idempotent (IF NOT EXISTS).
		if _, err := s.db.ExecContext(ctx, string(migration)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

func nullDate(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatDate(*t)
}

func parseDate(s string) (time.Time, error) {
	return models.ParseDate(s)
}

func parseNullDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

func parseNullID(ns sql.NullString) (uuid.UUID, bool, error) {
	if !ns.Valid || ns.String == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// isUniqueViolation reports whether err was caused by a UNIQUE constraint
// on the given table.column.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
