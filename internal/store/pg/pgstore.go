package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"authcore.org/internal/auth"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the substores run
// unchanged inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements auth.Store on PostgreSQL.
type Store struct {
	db *sql.DB
	q  querier
}

var _ auth.Store = (*Store)(nil)

// Open connects to PostgreSQL via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping verifies connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Users() auth.UserStore                                   { return userStore{s.q} }
func (s *Store) Applications() auth.ApplicationStore                     { return applicationStore{s.q} }
func (s *Store) AuthClients() auth.AuthClientStore                       { return authClientStore{s.q} }
func (s *Store) Memberships() auth.MembershipStore                       { return membershipStore{s.q} }
func (s *Store) RefreshTokens() auth.RefreshTokenStore                   { return refreshTokenStore{s.q} }
func (s *Store) PasswordResetTokens() auth.PasswordResetTokenStore       { return resetTokenStore{s.q} }
func (s *Store) EmailVerificationCodes() auth.EmailVerificationCodeStore { return verificationCodeStore{s.q} }

// InTx runs fn against a store view bound to one transaction. A view that
// is already transactional is reused, so workflows can compose units of
// work without nesting database transactions.
func (s *Store) InTx(ctx context.Context, fn func(auth.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapConstraint translates a unique violation into the conflict sentinel.
func mapConstraint(err error) error {
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrConflict
	}
	return err
}
