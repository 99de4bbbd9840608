package triauth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Refresh describes the refresh operation and its observable behavior.
//
// A successful refresh rotates: the presented token's jti is revoked and a
// fresh pair is issued, so every refresh token is single-use.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, 0, "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	revoked, err := e.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, 0, "", ErrTokenRevoked, nil)
		return nil, ErrTokenRevoked
	}

	accountID, err := claims.AccountID()
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrTokenInvalid
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, accountID, "", ErrTokenInvalid, nil)
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !account.IsActive {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, account.ID, "", ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}

	if err := e.revokeClaims(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}

	pair, err := e.issuePair(account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, account.ID, "", nil, nil)

	return pair, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Revocation is keyed by the refresh token's jti and persists in Redis until
// the token's natural expiry, so it survives process restarts. Logging out
// with an already revoked token succeeds (idempotent); a malformed, expired,
// or wrong-type token returns [ErrTokenInvalid].
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		return ErrTokenInvalid
	}

	if err := e.revokeClaims(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}

	accountID, _ := claims.AccountID()
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, accountID, "", nil, nil)

	return nil
}

func (e *Engine) revokeClaims(ctx context.Context, jti string, expiresAt time.Time) error {
	return e.denylist.Revoke(ctx, jti, time.Until(expiresAt))
}
