// Package store owns the database connection pool, the schema and the
// transaction scopes that repositories write through.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkrupp/homecase-blog/internal/infra/logging"
)

// Config holds configuration for the database connection pool.
type Config struct {
	// Driver selects the dialect: "sqlite", "postgres" (lib/pq) or "pgx"
	Driver string `env:"DRIVER" default:"sqlite"`

	// DSN is a file path for sqlite or a connection string for postgres and pgx
	DSN string `env:"DSN" default:"var/storage/blog.db"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" default:"5m"`

	// BusyTimeout is how long sqlite waits for the write lock held by
	// another scope before failing with ErrBusy
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" default:"5s"`

	// ScopeTimeout bounds the lifetime of a transaction scope. A scope still
	// open when it elapses is rolled back and reported. Zero disables it.
	ScopeTimeout time.Duration `env:"SCOPE_TIMEOUT" default:"30s"`
}

// DB is the process-wide connection pool. Every Scope borrows one of its
// connections until it is resolved.
type DB struct {
	sql     *sql.DB
	dialect dialect
	cfg     Config
	log     logging.Logger
}

// Open connects to the configured database, pings it and applies the schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	log := logging.GetLogger("store").With(logging.Group("db", "driver", cfg.Driver))

	s, err := sql.Open(d.name, d.prepare(cfg))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s.SetMaxOpenConns(cfg.MaxOpenConns)
	s.SetMaxIdleConns(cfg.MaxIdleConns)
	s.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.PingContext(pingCtx); err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{sql: s, dialect: d, cfg: cfg, log: log}

	if err := db.migrate(ctx); err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.DebugContext(ctx, "database ready")

	return db, nil
}

// Close closes the pool. Open scopes fail on their next statement.
func (db *DB) Close() error {
	if err := db.sql.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.dialect.name
}

func (db *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id       ` + db.dialect.serialKey + `,
			name     TEXT NOT NULL,
			username TEXT NOT NULL UNIQUE,
			email    TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id     ` + db.dialect.serialKey + `,
			title  TEXT   NOT NULL,
			body   TEXT   NOT NULL,
			author BIGINT NOT NULL REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id         ` + db.dialect.serialKey + `,
			body       TEXT   NOT NULL,
			post_id    BIGINT NOT NULL REFERENCES posts(id),
			user_id    BIGINT NOT NULL REFERENCES users(id),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			CHECK (created_at <= updated_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_user_id ON comments(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}

	return nil
}
