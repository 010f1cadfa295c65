package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/homecase-blog/internal/domain"
)

// Supported values for Config.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

var (
	// ErrUnknownDriver is returned by Open for a driver name without a dialect.
	ErrUnknownDriver = errors.New("unknown database driver")
	// ErrUniqueViolation is returned when an insert collides with a unique index.
	ErrUniqueViolation = errors.New("unique constraint violated")
	// ErrBusy is returned when the database lock could not be taken within
	// Config.BusyTimeout. On SQLite this happens while another scope writes.
	ErrBusy = errors.New("database busy")
)

// dialect captures what differs between the supported databases: the
// placeholder syntax, auto-increment keys, connection options and how
// constraint failures are reported.
type dialect struct {
	name      string
	serialKey string
	numbered  bool
	prepare   func(cfg Config) string
	classify  func(err error) error
}

//nolint:gochecknoglobals
var dialects = map[string]dialect{
	DriverSQLite: {
		name:      DriverSQLite,
		serialKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		prepare:   func(cfg Config) string { return sqliteDSN(cfg.DSN, cfg.BusyTimeout) },
		classify:  classifySQLite,
	},
	DriverPostgres: {
		name:      DriverPostgres,
		serialKey: "BIGSERIAL PRIMARY KEY",
		numbered:  true,
		prepare:   func(cfg Config) string { return cfg.DSN },
		classify:  classifyPq,
	},
	DriverPgx: {
		name:      DriverPgx,
		serialKey: "BIGSERIAL PRIMARY KEY",
		numbered:  true,
		prepare:   func(cfg Config) string { return cfg.DSN },
		classify:  classifyPgx,
	},
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	return d, nil
}

// rebind rewrites ? placeholders into $1, $2, ... for numbered dialects.
// Queries in this module never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)

			continue
		}

		n++
		b.WriteString("$" + strconv.Itoa(n))
	}

	return b.String()
}

// sqliteDSN switches on foreign key enforcement, which SQLite leaves off per
// connection, and WAL so readers outside an open scope are not blocked by its
// writes. SQLite allows a single writer: transactions begin IMMEDIATE, so a
// scope holds the write lock from Begin on and a second scope waits up to
// busy before failing with ErrBusy. A deferred scope that read first could
// not upgrade after another scope committed.
func sqliteDSN(dsn string, busy time.Duration) string {
	pragmas := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
		busy.Milliseconds())

	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragmas
	}

	return dsn + "?" + pragmas
}

func classifySQLite(err error) error {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return err
	}

	// Extended codes such as SQLITE_BUSY_SNAPSHOT keep the primary code in the low byte.
	if primary := liteErr.Code() & 0xff; primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED {
		return errors.Join(ErrBusy, err)
	}

	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return errors.Join(domain.ErrForeignKey, err)
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return errors.Join(ErrUniqueViolation, err)
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
		return errors.Join(domain.ErrValidation, err)
	default:
		return err
	}
}

// SQLSTATE classes shared by lib/pq and pgx.
const (
	sqlStateNotNull    = "23502"
	sqlStateForeignKey = "23503"
	sqlStateUnique     = "23505"
	sqlStateCheck      = "23514"
)

func classifySQLState(code string, err error) error {
	switch code {
	case sqlStateForeignKey:
		return errors.Join(domain.ErrForeignKey, err)
	case sqlStateUnique:
		return errors.Join(ErrUniqueViolation, err)
	case sqlStateNotNull, sqlStateCheck:
		return errors.Join(domain.ErrValidation, err)
	default:
		return err
	}
}

func classifyPq(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	return classifySQLState(string(pqErr.Code), err)
}

func classifyPgx(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	return classifySQLState(pgErr.Code, err)
}
