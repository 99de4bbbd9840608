package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	triauth "github.com/triauth/triauth"
)

const accountColumns = `id, email, username, phone, name, password_hash,
	is_active, is_staff, is_superuser,
	email_verified, email_verified_at, email_code, email_code_expiry,
	phone_verified, phone_verified_at, phone_code, phone_code_expiry,
	last_login, date_joined`

// Querier is the subset of pgxpool.Pool the store needs. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store defines a public type used by triauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
//	Docs: docs/store.md
type Store struct {
	db Querier
}

// NewStore describes the newstore operation and its observable behavior.
//
// NewStore may return an error when input validation, dependency calls, or security checks fail.
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// NewStoreFromQuerier builds a store over any [Querier]. Intended for tests.
func NewStoreFromQuerier(db Querier) *Store {
	return &Store{db: db}
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Create(ctx context.Context, account *triauth.Account) (*triauth.Account, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO accounts (
			email, username, phone, name, password_hash,
			is_active, is_staff, is_superuser, date_joined
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+accountColumns,
		account.Email,
		account.Username,
		account.Phone,
		account.Name,
		account.PasswordHash,
		account.IsActive,
		account.IsStaff,
		account.IsSuperuser,
		account.DateJoined,
	)

	created, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, triauth.ErrIdentifierTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return created, nil
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
// GetByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) GetByID(ctx context.Context, id int64) (*triauth.Account, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, triauth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account by id: %w", err)
	}

	return account, nil
}

// GetByIdentifier resolves an identifier against email, username, and phone,
// case-insensitively. When case-variant duplicates exist the lowest id wins,
// which keeps resolution deterministic.
//
// GetByIdentifier may return an error when input validation, dependency calls, or security checks fail.
// GetByIdentifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*triauth.Account, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE (email <> '' AND LOWER(email) = LOWER($1))
		   OR (username <> '' AND LOWER(username) = LOWER($1))
		   OR (phone <> '' AND LOWER(phone) = LOWER($1))
		ORDER BY id
		LIMIT 1
	`, identifier)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, triauth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account by identifier: %w", err)
	}

	return account, nil
}

// UpdatePasswordHash describes the updatepasswordhash operation and its observable behavior.
//
// UpdatePasswordHash may return an error when input validation, dependency calls, or security checks fail.
// UpdatePasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2 WHERE id = $1
	`, id, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return triauth.ErrAccountNotFound
	}
	return nil
}

// UpdateLastLogin describes the updatelastlogin operation and its observable behavior.
//
// UpdateLastLogin may return an error when input validation, dependency calls, or security checks fail.
// UpdateLastLogin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts SET last_login = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return triauth.ErrAccountNotFound
	}
	return nil
}

// SetCode stores a pending code on the account row, replacing any previous
// one for the channel.
//
// SetCode may return an error when input validation, dependency calls, or security checks fail.
// SetCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) SetCode(ctx context.Context, id int64, ch triauth.Channel, code string, expiry time.Time) error {
	var stmt string
	switch ch {
	case triauth.ChannelEmail:
		stmt = `UPDATE accounts SET email_code = $2, email_code_expiry = $3 WHERE id = $1`
	case triauth.ChannelPhone:
		stmt = `UPDATE accounts SET phone_code = $2, phone_code_expiry = $3 WHERE id = $1`
	default:
		return fmt.Errorf("unknown channel %q", ch)
	}

	tag, err := s.db.Exec(ctx, stmt, id, code, expiry)
	if err != nil {
		return fmt.Errorf("set %s code: %w", ch, err)
	}
	if tag.RowsAffected() == 0 {
		return triauth.ErrAccountNotFound
	}
	return nil
}

// ConsumeCode clears the pending code and marks the channel verified, but
// only when the stored code still equals the supplied one. The conditional
// WHERE clause is what makes codes single-use under concurrent verification.
//
// ConsumeCode may return an error when input validation, dependency calls, or security checks fail.
// ConsumeCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) ConsumeCode(ctx context.Context, id int64, ch triauth.Channel, code string, at time.Time) (bool, error) {
	var stmt string
	switch ch {
	case triauth.ChannelEmail:
		stmt = `
			UPDATE accounts
			SET email_code = '', email_code_expiry = 'epoch',
			    email_verified = TRUE, email_verified_at = $3
			WHERE id = $1 AND email_code = $2 AND email_code <> ''`
	case triauth.ChannelPhone:
		stmt = `
			UPDATE accounts
			SET phone_code = '', phone_code_expiry = 'epoch',
			    phone_verified = TRUE, phone_verified_at = $3
			WHERE id = $1 AND phone_code = $2 AND phone_code <> ''`
	default:
		return false, fmt.Errorf("unknown channel %q", ch)
	}

	tag, err := s.db.Exec(ctx, stmt, id, code, at)
	if err != nil {
		return false, fmt.Errorf("consume %s code: %w", ch, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) UpdateProfile(ctx context.Context, id int64, patch triauth.ProfilePatch) (*triauth.Account, error) {
	sets := make([]string, 0, 4)
	args := []any{id}

	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	appendSet("email", patch.Email)
	appendSet("username", patch.Username)
	appendSet("phone", patch.Phone)
	appendSet("name", patch.Name)

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE accounts SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+accountColumns,
		args...,
	)

	updated, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, triauth.ErrAccountNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, triauth.ErrIdentifierTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return updated, nil
}

// SetActive describes the setactive operation and its observable behavior.
//
// SetActive may return an error when input validation, dependency calls, or security checks fail.
// SetActive does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts SET is_active = $2 WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return triauth.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*triauth.Account, error) {
	var a triauth.Account

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Username,
		&a.Phone,
		&a.Name,
		&a.PasswordHash,
		&a.IsActive,
		&a.IsStaff,
		&a.IsSuperuser,
		&a.EmailVerified,
		&a.EmailVerifiedAt,
		&a.EmailCode,
		&a.EmailCodeExpiry,
		&a.PhoneVerified,
		&a.PhoneVerifiedAt,
		&a.PhoneCode,
		&a.PhoneCodeExpiry,
		&a.LastLogin,
		&a.DateJoined,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ triauth.AccountStore = (*Store)(nil)
