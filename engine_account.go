package triauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// GetAccount describes the getaccount operation and its observable behavior.
//
// GetAccount may return an error when input validation, dependency calls, or security checks fail.
// GetAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetAccount(ctx context.Context, id int64) (*Account, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return account, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// Nil fields are left untouched; fields pointing at the empty string are
// cleared. A patch that would strip the account of all three identifiers is
// rejected with [ErrNoIdentifier] before the store is touched. Email changes
// get the same domain-only lowercasing as registration.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Account, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	current, err := e.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	patch := ProfilePatch{Name: req.Name}

	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		patch.Username = &username
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		patch.Phone = &phone
	}

	after := *current
	if patch.Email != nil {
		after.Email = *patch.Email
	}
	if patch.Username != nil {
		after.Username = *patch.Username
	}
	if patch.Phone != nil {
		after.Phone = *patch.Phone
	}
	if !after.Identifiers() {
		return nil, ErrNoIdentifier
	}

	updated, err := e.accounts.UpdateProfile(ctx, req.AccountID, patch)
	if err != nil {
		if errors.Is(err, ErrIdentifierTaken) {
			e.emitAudit(ctx, auditEventProfileUpdate, false, req.AccountID, "", ErrIdentifierTaken, nil)
			return nil, ErrIdentifierTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricProfileUpdate)
	e.emitAudit(ctx, auditEventProfileUpdate, true, req.AccountID, "", nil, nil)

	return updated, nil
}

// SetAccountActive describes the setaccountactive operation and its observable behavior.
//
// Deactivation does not revoke outstanding refresh tokens; they fail at the
// next [Engine.Refresh] when the inactive flag is checked.
//
// SetAccountActive may return an error when input validation, dependency calls, or security checks fail.
// SetAccountActive does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SetAccountActive(ctx context.Context, id int64, active bool) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	if err := e.accounts.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAccountStatusChange)
	e.emitAudit(ctx, auditEventAccountStatusChange, true, id, "", nil, func() map[string]string {
		if active {
			return map[string]string{"active": "true"}
		}
		return map[string]string{"active": "false"}
	})

	return nil
}
