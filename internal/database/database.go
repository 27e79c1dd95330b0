package database

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver ("pgx")
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver ("sqlite")
)

// Dialect identifies the SQL engine behind a connection pool.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// New creates a new database connection pool from a connection string.
// "postgres://" and "postgresql://" URLs use pgx; "sqlite://path" or a bare
// file path use the embedded SQLite engine.
func New(databaseURL string) (*sqlx.DB, Dialect, error) {
	driver, dsn, dialect := parseURL(databaseURL)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	switch dialect {
	case Postgres:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	case SQLite:
		if strings.HasPrefix(dsn, ":memory:") {
			// Every connection would otherwise see its own empty database.
			db.SetMaxOpenConns(1)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	return db, dialect, nil
}

func parseURL(databaseURL string) (driver, dsn string, dialect Dialect) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL, Postgres
	}

	path := strings.TrimPrefix(databaseURL, "sqlite://")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn = path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	return "sqlite", dsn, SQLite
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sqlx.DB, dialect Dialect) error {
	stmt := sqliteSchema
	if dialect == Postgres {
		stmt = postgresSchema
	}
	_, err := db.Exec(stmt)
	return err
}

// seq gives every post a strictly increasing insertion number so that posts
// sharing a created_at value still list in a stable order.
const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		is_verified BOOLEAN NOT NULL DEFAULT 0,
		is_superuser BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS posts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		caption TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC, seq DESC);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_id TEXT,
		created_at DATETIME NOT NULL
	);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS posts (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		caption TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC, seq DESC);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_id TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	`
