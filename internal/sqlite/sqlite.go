// Package sqlite persists all alert engine state: rules, their evaluation
// history, notification channels, and the dashboard panels rules can borrow
// queries from.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/gaugehq/gauge/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB provides access to the SQLite state database. Reads go through a
// connection pool, writes through a single connection: WAL mode allows
// concurrent readers but only one writer at a time.
type DB struct {
	readDB  *sql.DB
	writeDB *sql.DB
	log     *slog.Logger
}

// Options holds configuration for creating a DB instance.
type Options struct {
	Logger *slog.Logger
	Config config.SQLiteConfig
}

// New opens the state database, applies pragmas, runs migrations, and
// returns a DB ready for use.
func New(opts Options) (*DB, error) {
	log := opts.Logger.With("component", "sqlite")
	path := opts.Config.Path

	if err := runMigrations(path, log); err != nil {
		return nil, err
	}

	readDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(25)
	readDB.SetMaxIdleConns(10)
	readDB.SetConnMaxLifetime(30 * time.Minute)
	if err := setPragmas(readDB); err != nil {
		readDB.Close()
		return nil, err
	}

	// _txlock=immediate acquires the write lock up front so write
	// transactions never deadlock against each other.
	writeDB, err := sql.Open("sqlite", path+"?_txlock=immediate")
	if err != nil {
		readDB.Close()
		return nil, fmt.Errorf("error opening write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	if err := setPragmas(writeDB); err != nil {
		readDB.Close()
		writeDB.Close()
		return nil, err
	}

	log.Debug("sqlite initialized", "path", path)
	return &DB{readDB: readDB, writeDB: writeDB, log: log}, nil
}

func setPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA journal_size_limit = 5000000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -16000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("error setting pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// runMigrations applies the embedded migrations over a dedicated
// connection.
func runMigrations(path string, log *slog.Logger) error {
	migrationDB, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("error opening migration database: %w", err)
	}
	defer migrationDB.Close()

	if _, err := migrationDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("error setting busy_timeout on migration database: %w", err)
	}

	migrationFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("error creating migrations filesystem: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("error creating migration source driver: %w", err)
	}
	driver, err := sqlite3.WithInstance(migrationDB, &sqlite3.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("error creating sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("migrations up to date")
			return nil
		}
		return fmt.Errorf("error applying migrations: %w", err)
	}
	log.Debug("database migrations applied")
	return nil
}

// Close shuts down both connections.
func (db *DB) Close() error {
	var errs []error
	if err := db.writeDB.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := db.readDB.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
