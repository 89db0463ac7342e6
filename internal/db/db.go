// Package db opens the SQLite store, applies the embedded migrations and
// binds the sqlc queries to a connection or a transaction.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/codr1/StaycationHaven/internal/config"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pragmas applied to every connection unless the DSN already sets them.
var defaultPragmas = [][2]string{
	{"_fk", "1"},
	{"_busy_timeout", "5000"},
}

type DB struct {
	*sql.DB
	Queries *dbgen.Queries
}

// Open connects to the SQLite file named by dsn with the default pragmas
// but does not migrate it.
func Open(dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	return sqlDB, nil
}

// New opens dsn and brings its schema up to date.
func New(dsn string) (*DB, error) {
	sqlDB, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrateUp(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return Wrap(sqlDB), nil
}

func NewFromConfig(cfg *config.Config) (*DB, error) {
	if cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if dir := filepath.Dir(cfg.Database.Filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return New(cfg.Database.Filename)
}

// Wrap binds queries to an open connection without migrating. Tests pass
// sqlmock connections here.
func Wrap(sqlDB *sql.DB) *DB {
	return &DB{DB: sqlDB, Queries: dbgen.New(sqlDB)}
}

// withPragmas appends each default pragma the DSN does not mention.
func withPragmas(dsn string) string {
	var extra []string
	for _, p := range defaultPragmas {
		if strings.Contains(dsn, p[0]+"=") {
			continue
		}
		extra = append(extra, p[0]+"="+url.QueryEscape(p[1]))
	}
	if len(extra) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(extra, "&")
}

// NewMigrator returns a migrate instance over the embedded migrations.
func NewMigrator(sqlDB *sql.DB) (*migrate.Migrate, error) {
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return m, nil
}

func migrateUp(sqlDB *sql.DB) error {
	m, err := NewMigrator(sqlDB)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// RunInTx calls fn with a DB whose queries run inside one transaction. The
// transaction commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (db *DB) RunInTx(ctx context.Context, fn func(*DB) error) (err error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && err != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err = fn(&DB{DB: db.DB, Queries: dbgen.New(tx)}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
