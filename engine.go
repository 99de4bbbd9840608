package triauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalaudit "github.com/triauth/triauth/internal/audit"
	"github.com/triauth/triauth/internal/rate"
	"github.com/triauth/triauth/jwt"
	"github.com/triauth/triauth/password"
	"github.com/triauth/triauth/resettoken"
)

// Engine defines a public type used by triauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	accounts     AccountStore
	denylist     *denylistStore
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	resetTokens  *resettoken.Generator
	email        EmailSender
	sms          SMSSender
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// resolveAccount maps a free-form identifier to at most one account. The
// store performs the case-insensitive three-field match and the lowest-id
// tie-break; this wrapper only owns input validation and error shaping.
func (e *Engine) resolveAccount(ctx context.Context, identifier string) (*Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier required", ErrValidation)
	}

	account, err := e.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return account, nil
}

// Login describes the login operation and its observable behavior.
//
// Unknown identifiers and wrong passwords are indistinguishable to the
// caller; only a correct password against an inactive account yields the
// distinct [ErrAccountInactive].
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if e == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	ip := clientIPFromContext(ctx)
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier required", ErrValidation)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, 0, "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return nil, ErrLoginRateLimited
		}
	}

	account, err := e.resolveAccount(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		return nil, e.failLogin(ctx, identifier, ip, 0, "unknown_identifier")
	}

	// An empty stored hash marks an unusable password: it fails against every
	// input, including the empty string, without touching the hasher.
	if account.PasswordHash == "" {
		return nil, e.failLogin(ctx, identifier, ip, account.ID, "unusable_password")
	}

	ok, err := e.passwordHash.Verify(req.Password, account.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, identifier, ip, account.ID, "password_mismatch")
	}

	// Active-state check happens only after the password verified, so a
	// disabled account with a wrong password still reads as 401, not 403.
	if !account.IsActive {
		e.metricInc(MetricLoginInactive)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, "", ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}

	if e.config.Password.UpgradeOnLogin {
		if upgrade, err := e.passwordHash.NeedsRehash(account.PasswordHash); err == nil && upgrade {
			if newHash, err := e.passwordHash.Hash(req.Password); err == nil {
				_ = e.accounts.UpdatePasswordHash(ctx, account.ID, newHash)
			}
		}
	}

	pair, err := e.issuePair(account)
	if err != nil {
		return nil, err
	}

	_ = e.accounts.UpdateLastLogin(ctx, account.ID, time.Now().UTC())
	if e.rateLimiter != nil {
		_ = e.rateLimiter.ResetLogin(ctx, identifier, ip)
	}

	e.metricInc(MetricLoginSuccess)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, "", nil, nil)

	return pair, nil
}

func (e *Engine) failLogin(ctx context.Context, identifier, ip string, accountID int64, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, accountID, "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return ErrLoginRateLimited
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})

	return ErrInvalidCredentials
}

func (e *Engine) issuePair(account *Account) (*TokenPair, error) {
	access, err := e.jwtManager.CreateAccess(account.ID, account.IsStaff, account.IsSuperuser)
	if err != nil {
		return nil, err
	}

	refresh, _, _, err := e.jwtManager.CreateRefresh(account.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// It is the hot path for guarded requests: a pure JWT verification with no
// Redis or store round-trip.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(_ context.Context, token string) (*jwt.Claims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
