package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/homecase-blog/internal/domain"
	context_ "github.com/mkrupp/homecase-blog/internal/infra/context"
)

// ScopeState is the lifecycle position of a Scope.
type ScopeState int

const (
	ScopeOpen ScopeState = iota
	ScopeCommitted
	ScopeRolledBack
)

func (s ScopeState) String() string {
	switch s {
	case ScopeOpen:
		return "open"
	case ScopeCommitted:
		return "committed"
	case ScopeRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("ScopeState(%d)", int(s))
	}
}

// Scope is a database transaction handed explicitly to repository calls.
// Writes made through it are invisible to other connections until Commit and
// are discarded by Rollback. A scope is resolved exactly once and must not be
// used from several goroutines at the same time.
type Scope struct {
	id      string
	tx      *sql.Tx
	db      *DB
	started time.Time

	mu         sync.Mutex
	state      ScopeState
	savepoints int

	stop   func() bool
	cancel context.CancelFunc
}

// Begin opens a new scope on a connection borrowed from the pool.
// The scope outlives ctx cancellation and is bounded by Config.ScopeTimeout instead.
func (db *DB) Begin(ctx context.Context) (*Scope, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("new scope id: %w", err)
	}

	var (
		txCtx  = context.WithoutCancel(ctx)
		cancel context.CancelFunc
	)

	if db.cfg.ScopeTimeout > 0 {
		txCtx, cancel = context.WithTimeout(txCtx, db.cfg.ScopeTimeout)
	} else {
		txCtx, cancel = context.WithCancel(txCtx)
	}

	tx, err := db.sql.BeginTx(txCtx, nil)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("begin transaction: %w", db.dialect.classify(err))
	}

	scope := &Scope{
		id:      id.String(),
		tx:      tx,
		db:      db,
		started: time.Now(),
		state:   ScopeOpen,
		cancel:  cancel,
	}
	scope.stop = context.AfterFunc(txCtx, scope.expire)

	db.log.DebugContext(scope.Context(ctx), "scope begun")

	return scope, nil
}

// ID returns the UUIDv7 identifying the scope in logs.
func (s *Scope) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Scope) State() ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Context returns ctx tagged with the scope ID for logging.
func (s *Scope) Context(ctx context.Context) context.Context {
	return context_.WithScopeID(ctx, s.id)
}

// Commit makes every write of the scope visible and releases its connection.
func (s *Scope) Commit(ctx context.Context) error {
	return s.resolve(ctx, ScopeCommitted, s.tx.Commit)
}

// Rollback discards every write of the scope and releases its connection.
// It returns ErrTransactionState if the scope was already resolved.
func (s *Scope) Rollback(ctx context.Context) error {
	return s.resolve(ctx, ScopeRolledBack, s.tx.Rollback)
}

func (s *Scope) resolve(ctx context.Context, target ScopeState, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.Context(ctx)

	if s.state != ScopeOpen {
		return fmt.Errorf("%s scope %s: %w (state %s)", verb(target), s.id, domain.ErrTransactionState, s.state)
	}

	s.stop()
	defer s.cancel()

	err := fn()

	// database/sql marks the transaction done even when COMMIT fails.
	s.state = target
	if err != nil && target == ScopeCommitted {
		s.state = ScopeRolledBack
	}

	if err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			err = errors.Join(domain.ErrTransactionState, err)
		}

		return fmt.Errorf("%s scope %s: %w", verb(target), s.id, err)
	}

	s.db.log.DebugContext(ctx, "scope resolved", "state", s.state.String(), "age", time.Since(s.started))

	return nil
}

func verb(target ScopeState) string {
	if target == ScopeCommitted {
		return "commit"
	}

	return "rollback"
}

// expire runs when the scope timeout elapses. database/sql has already
// rolled the transaction back at that point.
func (s *Scope) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ScopeOpen {
		return
	}

	s.state = ScopeRolledBack
	_ = s.tx.Rollback()
	s.cancel()

	s.db.log.ErrorContext(s.Context(context.Background()), "transaction scope expired",
		"age", time.Since(s.started),
		"timeout", s.db.cfg.ScopeTimeout,
	)
}

// RollbackQuietly is the best-effort cleanup for a scope whose outcome no
// longer matters, such as a test fixture's teardown. It never returns an
// error: rolling back an already resolved scope is logged at debug level and
// driver failures at warn level, so cleanup never masks an earlier failure.
func RollbackQuietly(ctx context.Context, scope *Scope) {
	if scope == nil {
		return
	}

	err := scope.Rollback(ctx)

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrTransactionState):
		scope.db.log.DebugContext(scope.Context(ctx), "cleanup rollback skipped", "error", err)
	default:
		scope.db.log.WarnContext(scope.Context(ctx), "cleanup rollback failed", "error", err)
	}
}
