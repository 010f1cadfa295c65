package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-blog/internal/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Tx)(nil)
)

// Conn issues statements either on a scope's transaction or directly on the
// pool. Queries use ? placeholders regardless of the driver.
type Conn struct {
	q querier
	d dialect
}

// Exec runs a statement that returns no rows.
func (c Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.q.ExecContext(ctx, c.d.rebind(query), args...)
	if err != nil {
		return nil, c.d.classify(err)
	}

	return res, nil
}

// Query runs a statement returning rows. Scan errors are not classified.
func (c Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.q.QueryContext(ctx, c.d.rebind(query), args...)
	if err != nil {
		return nil, c.d.classify(err)
	}

	return rows, nil
}

// QueryRow runs a statement returning at most one row and scans it into dest.
// Constraint failures, including those raised by INSERT ... RETURNING, come
// back classified.
func (c Conn) QueryRow(ctx context.Context, dest []any, query string, args ...any) error {
	if err := c.q.QueryRowContext(ctx, c.d.rebind(query), args...).Scan(dest...); err != nil {
		return c.d.classify(err)
	}

	return nil
}

// Run executes fn as one atomic unit.
//
// With a nil scope fn runs in a short transaction of its own that commits
// when fn succeeds. With a scope fn runs under a savepoint inside the
// scope's transaction: on failure only fn's statements are undone and the
// scope stays usable; on success they remain pending until the scope is
// committed or rolled back. fn must not call Run or Read on the same scope.
func (db *DB) Run(ctx context.Context, scope *Scope, fn func(ctx context.Context, c Conn) error) error {
	if scope == nil {
		return db.runAutoCommit(ctx, fn)
	}

	return scope.run(ctx, fn)
}

// Read executes fn without a savepoint, on the scope's transaction when one
// is given and on the pool otherwise.
func (db *DB) Read(ctx context.Context, scope *Scope, fn func(ctx context.Context, c Conn) error) error {
	if scope == nil {
		return fn(ctx, Conn{q: db.sql, d: db.dialect})
	}

	scope.mu.Lock()
	defer scope.mu.Unlock()

	if err := scope.checkOpen(); err != nil {
		return err
	}

	return fn(scope.Context(ctx), Conn{q: scope.tx, d: db.dialect})
}

func (db *DB) runAutoCommit(ctx context.Context, fn func(ctx context.Context, c Conn) error) (err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", db.dialect.classify(err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, Conn{q: tx, d: db.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", db.dialect.classify(err))
	}

	return nil
}

func (s *Scope) checkOpen() error {
	if s.state != ScopeOpen {
		return fmt.Errorf("scope %s: %w (state %s)", s.id, domain.ErrTransactionState, s.state)
	}

	return nil
}

func (s *Scope) run(ctx context.Context, fn func(ctx context.Context, c Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	ctx = s.Context(ctx)
	conn := Conn{q: s.tx, d: s.db.dialect}

	s.savepoints++
	name := fmt.Sprintf("sp_%d", s.savepoints)

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	if err := fn(ctx, conn); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}

		_, _ = s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)

		return err
	}

	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}

	return nil
}
