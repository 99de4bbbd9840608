package triauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/triauth/triauth/resettoken"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// The returned [ResetIssue] carries the uid and token for building a reset
// link. The token is stateless: it binds the account's current password hash
// and last login, so completing the reset, or simply logging in, invalidates
// every outstanding token for the account. When the account has an email
// address the link components are also mailed; delivery failure is recorded
// but does not fail the request.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestPasswordReset(ctx context.Context, identifier string) (*ResetIssue, error) {
	if e == nil || e.accounts == nil || e.resetTokens == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)
	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckSend(ctx, identifier, ip); err != nil {
			e.metricInc(MetricCodeRateLimited)
			e.emitAudit(ctx, auditEventCodeRateLimited, false, 0, "", ErrSendRateLimited, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return nil, ErrSendRateLimited
		}
	}

	account, err := e.resolveAccount(ctx, identifier)
	if err != nil {
		return nil, err
	}

	issue := &ResetIssue{
		UID:   resettoken.MakeUID(account.ID),
		Token: e.resetTokens.Make(account.ID, account.PasswordHash, account.LastLogin),
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, account.ID, ChannelEmail, nil, nil)

	if e.email != nil && account.Email != "" {
		subject, body := resetMailTemplate(issue.UID, issue.Token)
		if err := e.email.SendMail(ctx, account.Email, subject, body); err != nil {
			e.metricInc(MetricCodeSendFailure)
			e.emitAudit(ctx, auditEventCodeSendFailure, false, account.ID, ChannelEmail, ErrDeliveryFailed, nil)
		}
	}

	return issue, nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// A malformed uid and an unknown account are both reported as
// [ErrResetUIDInvalid]; a stale, tampered, or expired token as
// [ErrResetTokenInvalid]. On success the stored hash changes, which retires
// every other token issued for the account.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if e == nil || e.accounts == nil || e.resetTokens == nil {
		return ErrEngineNotReady
	}

	accountID, err := resettoken.ParseUID(req.UID)
	if err != nil {
		return e.failReset(ctx, 0, ErrResetUIDInvalid)
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return e.failReset(ctx, accountID, ErrResetUIDInvalid)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.resetTokens.Check(account.ID, account.PasswordHash, account.LastLogin, req.Token); err != nil {
		return e.failReset(ctx, account.ID, ErrResetTokenInvalid)
	}

	if err := e.checkPasswordPolicy(req.NewPassword); err != nil {
		return err
	}

	hash, err := e.passwordHash.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := e.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricResetSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, account.ID, "", nil, nil)

	return nil
}

func (e *Engine) failReset(ctx context.Context, accountID int64, cause error) error {
	e.metricInc(MetricResetFailure)
	e.emitAudit(ctx, auditEventResetConfirm, false, accountID, "", cause, nil)
	return cause
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// The current password must verify first. Accounts with an unusable password
// (empty hash) cannot change it through this path and get
// [ErrInvalidCredentials]; they go through the reset flow instead.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if e == nil || e.accounts == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	account, err := e.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if account.PasswordHash == "" {
		return e.failPasswordChange(ctx, account.ID, ErrInvalidCredentials)
	}
	ok, err := e.passwordHash.Verify(req.CurrentPassword, account.PasswordHash)
	if err != nil || !ok {
		return e.failPasswordChange(ctx, account.ID, ErrInvalidCredentials)
	}

	if err := e.checkPasswordPolicy(req.NewPassword); err != nil {
		return e.failPasswordChange(ctx, account.ID, err)
	}

	hash, err := e.passwordHash.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := e.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, account.ID, "", nil, nil)

	return nil
}

func (e *Engine) failPasswordChange(ctx context.Context, accountID int64, cause error) error {
	e.metricInc(MetricPasswordChangeFailure)
	e.emitAudit(ctx, auditEventPasswordChange, false, accountID, "", cause, nil)
	return cause
}

func resetMailTemplate(uid, token string) (string, string) {
	return "Reset your password",
		fmt.Sprintf("Use this link to choose a new password.\n\nuid: %s\ntoken: %s\n\nThe link expires; ignore this message if you did not request it.", uid, token)
}
