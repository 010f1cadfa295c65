// Package storetest provides fixtures that give each test its own database
// and a transaction scope that is rolled back when the test ends.
package storetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkrupp/homecase-blog/internal/store"
)

// Config returns a configuration for a fresh SQLite database inside dir.
func Config(dir string) store.Config {
	return store.Config{
		Driver:          store.DriverSQLite,
		DSN:             filepath.Join(dir, "blog.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		BusyTimeout:     5 * time.Second,
		ScopeTimeout:    time.Minute,
	}
}

// Open creates a migrated database in a temporary directory and closes it
// when the test ends.
func Open(t testing.TB) *store.DB {
	t.Helper()

	db, err := store.Open(context.Background(), Config(t.TempDir()))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// Begin opens a scope on db and rolls it back when the test ends, whatever
// state the test left it in. A scope that cannot be opened fails the test
// immediately.
func Begin(t testing.TB, db *store.DB) *store.Scope {
	t.Helper()

	scope, err := db.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin transaction scope: %v", err)
	}

	t.Cleanup(func() {
		store.RollbackQuietly(context.Background(), scope)
	})

	return scope
}
