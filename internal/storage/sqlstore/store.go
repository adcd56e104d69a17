// Package sqlstore implements the backend contract over database/sql. The
// sqlite and postgres packages supply the connection and dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/auth"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/storage"
)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
	// IsUniqueViolation reports whether err is a unique-constraint failure.
	IsUniqueViolation func(err error) bool
}

// Options tune session lifetimes and providers.
type Options struct {
	SessionTTL time.Duration
	RefreshTTL time.Duration
	OAuth      *auth.OAuth
	Now        func() time.Time
}

// Store is the shared backend implementation.
type Store struct {
	db      *sql.DB
	dialect Dialect
	issuer  *auth.Issuer
	opts    Options
}

const jwtSecretName = "jwt"

// tsLayout is fixed width so text columns sort chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// New returns a Store that is unusable until Attach succeeds.
func New(d Dialect, opts Options) *Store {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = constants.DefaultSessionTTLMin * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = constants.RefreshTokenTTLDays * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{dialect: d, opts: opts}
}

// Attach binds an open, migrated database and loads (or creates) the token
// signing secret.
func (s *Store) Attach(ctx context.Context, db *sql.DB) error {
	secret, err := loadOrCreateSecret(ctx, db, s.dialect)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(secret, s.opts.SessionTTL)
	if err != nil {
		return err
	}
	s.db = db
	s.issuer = issuer.WithClock(s.opts.Now)
	return nil
}

// Detach forgets the database handle. The caller owns closing it.
func (s *Store) Detach() {
	s.db = nil
	s.issuer = nil
}

// DB returns the attached handle, or nil.
func (s *Store) DB() *sql.DB {
	return s.db
}

func loadOrCreateSecret(ctx context.Context, db *sql.DB, d Dialect) ([]byte, error) {
	var secret []byte
	err := db.QueryRowContext(ctx, rebind(d, "SELECT value FROM auth_secrets WHERE name = ?"), jwtSecretName).Scan(&secret)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load signing secret: %w", err)
	}

	fresh, err := auth.GenerateSecret()
	if err != nil {
		return nil, err
	}
	// Another process may win the race; re-read whatever landed.
	if _, err := db.ExecContext(ctx,
		rebind(d, "INSERT INTO auth_secrets (name, value) VALUES (?, ?) ON CONFLICT (name) DO NOTHING"),
		jwtSecretName, fresh); err != nil {
		return nil, fmt.Errorf("failed to store signing secret: %w", err)
	}
	if err := db.QueryRowContext(ctx, rebind(d, "SELECT value FROM auth_secrets WHERE name = ?"), jwtSecretName).Scan(&secret); err != nil {
		return nil, fmt.Errorf("failed to load signing secret: %w", err)
	}
	return secret, nil
}

func (s *Store) ready() error {
	if s.db == nil || s.issuer == nil {
		return storage.NewError(storage.KindUnavailable, "storage not loaded", nil)
	}
	return nil
}

func (s *Store) now() time.Time {
	// Postgres keeps microseconds; match it so reads equal writes.
	return s.opts.Now().UTC().Truncate(time.Microsecond)
}

// rebind rewrites ? placeholders for dialects that number them.
func rebind(d Dialect, query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) exec(ctx context.Context, q querier, query string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, rebind(s.dialect, query), args...)
}

func (s *Store) query(ctx context.Context, q querier, query string, args ...interface{}) (*sql.Rows, error) {
	return q.QueryContext(ctx, rebind(s.dialect, query), args...)
}

func (s *Store) queryRow(ctx context.Context, q querier, query string, args ...interface{}) *sql.Row {
	return q.QueryRowContext(ctx, rebind(s.dialect, query), args...)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.classify(err, "")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.classify(err, "")
	}
	return nil
}

// classify maps driver errors to storage kinds. duplicateMsg is used for
// unique violations.
func (s *Store) classify(err error, duplicateMsg string) error {
	if err == nil {
		return nil
	}
	var se *storage.Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err):
		if duplicateMsg == "" {
			duplicateMsg = "duplicate key value violates unique constraint"
		}
		return storage.NewError(storage.KindDuplicate, duplicateMsg, err)
	case errors.Is(err, sql.ErrNoRows):
		return storage.NewError(storage.KindNotFound, "not found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn):
		return storage.NewError(storage.KindUnavailable, "database unavailable", err)
	default:
		return storage.NewError(storage.KindInternal, "database error", err)
	}
}

func timeArg(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// timestamp scans both native time columns and the text form SQLite stores.
type timestamp struct {
	time.Time
}

func (ts *timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		ts.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	ts.Time = t.UTC()
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
