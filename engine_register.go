package triauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Register describes the register operation and its observable behavior.
//
// At least one identifier must be supplied. An empty password stores the
// empty hash, which marks the password unusable: the account exists (for
// code-based flows) but can never password-authenticate until a reset sets a
// real hash. When a delivery channel and sender are available, a verification
// code is dispatched best-effort; delivery failure never fails registration.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	return e.register(ctx, req, false)
}

// CreateSuperuser describes the createsuperuser operation and its observable behavior.
//
// Identical to [Engine.Register] except that the password is mandatory and
// the staff and superuser flags are set.
//
// CreateSuperuser may return an error when input validation, dependency calls, or security checks fail.
// CreateSuperuser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateSuperuser(ctx context.Context, req RegisterRequest) (*Account, error) {
	if strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("%w: superuser requires a password", ErrValidation)
	}
	return e.register(ctx, req, true)
}

func (e *Engine) register(ctx context.Context, req RegisterRequest, super bool) (*Account, error) {
	if e == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.Username)
	phone := strings.TrimSpace(req.Phone)

	if email == "" && username == "" && phone == "" {
		e.emitAudit(ctx, auditEventRegisterFailure, false, 0, "", ErrNoIdentifier, nil)
		return nil, ErrNoIdentifier
	}

	var hash string
	if req.Password != "" {
		if err := e.checkPasswordPolicy(req.Password); err != nil {
			e.emitAudit(ctx, auditEventRegisterFailure, false, 0, "", err, nil)
			return nil, err
		}
		hash, err = e.passwordHash.Hash(req.Password)
		if err != nil {
			return nil, err
		}
	}

	account := &Account{
		Email:        email,
		Username:     username,
		Phone:        phone,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      super,
		IsSuperuser:  super,
		DateJoined:   time.Now().UTC(),
	}

	created, err := e.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, ErrIdentifierTaken) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, 0, "", ErrIdentifierTaken, nil)
			return nil, ErrIdentifierTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.ID, "", nil, nil)

	// Kick off verification delivery when possible. The account is already
	// committed; the user can re-request a code if this attempt is lost.
	if ch, ok := e.preferredChannel(created); ok {
		_, _ = e.deliverCode(ctx, created, ch, PurposeVerify)
	}

	return created, nil
}

func (e *Engine) checkPasswordPolicy(plaintext string) error {
	if len(plaintext) < e.config.Password.MinLength {
		return fmt.Errorf("%w: password must be at least %d bytes", ErrPasswordPolicy, e.config.Password.MinLength)
	}
	return nil
}

// normalizeEmail lowercases the domain part only; the local part is
// case-significant per RFC 5321 even though almost no provider treats it so.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	return email[:at] + "@" + strings.ToLower(email[at+1:]), nil
}
