package triauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/triauth/triauth/internal"
)

// SendCode describes the sendcode operation and its observable behavior.
//
// The code lands on the account's preferred channel: email when present,
// phone otherwise. Issuing a new code overwrites any pending one, so the
// previous code stops validating the moment the new one is persisted. Unlike
// login, this path reports unknown identifiers as [ErrAccountNotFound].
//
// SendCode may return an error when input validation, dependency calls, or security checks fail.
// SendCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SendCode(ctx context.Context, req SendCodeRequest) (Channel, error) {
	if e == nil || e.accounts == nil {
		return "", ErrEngineNotReady
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = PurposeVerify
	}
	if purpose != PurposeVerify && purpose != PurposeReset {
		return "", fmt.Errorf("%w: unknown code purpose %q", ErrValidation, purpose)
	}

	ip := clientIPFromContext(ctx)
	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckSend(ctx, req.Identifier, ip); err != nil {
			e.metricInc(MetricCodeRateLimited)
			e.emitAudit(ctx, auditEventCodeRateLimited, false, 0, "", ErrSendRateLimited, func() map[string]string {
				return map[string]string{"identifier": req.Identifier}
			})
			return "", ErrSendRateLimited
		}
	}

	account, err := e.resolveAccount(ctx, req.Identifier)
	if err != nil {
		return "", err
	}

	ch, ok := e.preferredChannel(account)
	if !ok {
		e.emitAudit(ctx, auditEventCodeSendFailure, false, account.ID, "", ErrNoChannel, nil)
		return "", ErrNoChannel
	}

	if _, err := e.deliverCode(ctx, account, ch, purpose); err != nil {
		return "", err
	}

	return ch, nil
}

// VerifyCode describes the verifycode operation and its observable behavior.
//
// Checks run in a fixed order (pending, match, expiry) and consumption is a
// conditional store write, so two concurrent verifications of the same code
// admit exactly one winner; the loser observes the cleared code as
// [ErrCodeNotFound].
//
// VerifyCode may return an error when input validation, dependency calls, or security checks fail.
// VerifyCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyCode(ctx context.Context, req VerifyCodeRequest) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	if req.Channel != ChannelEmail && req.Channel != ChannelPhone {
		return fmt.Errorf("%w: unknown channel %q", ErrValidation, req.Channel)
	}
	if req.Code == "" {
		return fmt.Errorf("%w: code required", ErrValidation)
	}

	account, err := e.resolveAccount(ctx, req.Identifier)
	if err != nil {
		return err
	}

	stored, expiry := account.Code(req.Channel)
	if stored == "" {
		return e.rejectCode(ctx, account.ID, req.Channel, ErrCodeNotFound)
	}

	// Codes are strings; leading zeros are significant.
	if subtle.ConstantTimeCompare([]byte(stored), []byte(req.Code)) != 1 {
		return e.rejectCode(ctx, account.ID, req.Channel, ErrCodeInvalid)
	}

	now := time.Now().UTC()
	if now.After(expiry) {
		return e.rejectCode(ctx, account.ID, req.Channel, ErrCodeExpired)
	}

	consumed, err := e.accounts.ConsumeCode(ctx, account.ID, req.Channel, req.Code, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !consumed {
		// Lost the race: another request consumed or replaced the code
		// between our read and the conditional write.
		return e.rejectCode(ctx, account.ID, req.Channel, ErrCodeNotFound)
	}

	e.metricInc(MetricCodeVerified)
	e.emitAudit(ctx, auditEventCodeVerified, true, account.ID, req.Channel, nil, nil)

	return nil
}

func (e *Engine) rejectCode(ctx context.Context, accountID int64, ch Channel, cause error) error {
	e.metricInc(MetricCodeRejected)
	e.emitAudit(ctx, auditEventCodeRejected, false, accountID, ch, cause, nil)
	return cause
}

func (e *Engine) preferredChannel(account *Account) (Channel, bool) {
	switch {
	case account.Email != "":
		return ChannelEmail, true
	case account.Phone != "":
		return ChannelPhone, true
	default:
		return "", false
	}
}

func (e *Engine) deliverCode(ctx context.Context, account *Account, ch Channel, purpose CodePurpose) (string, error) {
	code, err := internal.NewCode(e.config.Code.Digits)
	if err != nil {
		return "", err
	}

	expiry := time.Now().UTC().Add(e.config.Code.TTL(ch))
	if err := e.accounts.SetCode(ctx, account.ID, ch, code, expiry); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.sendCodeMessage(ctx, account, ch, purpose, code); err != nil {
		e.metricInc(MetricCodeSendFailure)
		e.emitAudit(ctx, auditEventCodeSendFailure, false, account.ID, ch, ErrDeliveryFailed, nil)
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricCodeSent)
	e.emitAudit(ctx, auditEventCodeSent, true, account.ID, ch, nil, func() map[string]string {
		return map[string]string{"purpose": string(purpose)}
	})

	return code, nil
}

// sendCodeMessage dispatches through whichever sender matches the channel. A
// missing sender is not an error: the code is already persisted and dev
// setups read it straight from the store.
func (e *Engine) sendCodeMessage(ctx context.Context, account *Account, ch Channel, purpose CodePurpose, code string) error {
	switch ch {
	case ChannelEmail:
		if e.email == nil {
			return nil
		}
		subject, body := emailTemplate(purpose, code)
		return e.email.SendMail(ctx, account.Email, subject, body)
	case ChannelPhone:
		if e.sms == nil {
			return nil
		}
		return e.sms.SendSMS(ctx, account.Phone, smsTemplate(purpose, code))
	}
	return errors.New("unknown channel")
}

func emailTemplate(purpose CodePurpose, code string) (string, string) {
	if purpose == PurposeReset {
		return "Your password reset code",
			fmt.Sprintf("Use code %s to reset your password. It expires soon; ignore this message if you did not request it.", code)
	}
	return "Your verification code",
		fmt.Sprintf("Use code %s to verify your email address.", code)
}

func smsTemplate(purpose CodePurpose, code string) string {
	if purpose == PurposeReset {
		return fmt.Sprintf("%s is your password reset code.", code)
	}
	return fmt.Sprintf("%s is your verification code.", code)
}
