package triauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/triauth/triauth/resettoken"
)

func TestPasswordResetFullFlow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	ctx := context.Background()
	issue, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if issue.UID == "" || issue.Token == "" {
		t.Fatal("expected uid and token")
	}

	err = engine.ResetPassword(ctx, ResetPasswordRequest{UID: issue.UID, Token: issue.Token, NewPassword: "brand-new-password"})
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "brand-new-password"}); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
	if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "old-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to stop working, got %v", err)
	}

	// The consumed token binds the old hash, so replaying it fails.
	err = engine.ResetPassword(ctx, ResetPasswordRequest{UID: issue.UID, Token: issue.Token, NewPassword: "yet-another-password"})
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid on replay, got %v", err)
	}
}

func TestPasswordResetMailsLinkComponents(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	sender := &captureSender{}
	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountStore(store).
		WithEmailSender(sender).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	issue, err := engine.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	mails := sender.mailsTo("alice@example.com")
	if len(mails) != 1 {
		t.Fatalf("expected one reset mail, got %d", len(mails))
	}
	if !strings.Contains(mails[0].body, issue.UID) || !strings.Contains(mails[0].body, issue.Token) {
		t.Fatal("expected mail body to carry the uid and token")
	}
}

func TestPasswordResetUnknownIdentifier(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockAccountStore(), nil)

	_, err := engine.RequestPasswordReset(context.Background(), "ghost@example.com")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResetPasswordBadUID(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockAccountStore(), nil)

	ctx := context.Background()
	for _, uid := range []string{"", "!!!not-base64!!!", "bm90LWEtbnVtYmVy"} {
		err := engine.ResetPassword(ctx, ResetPasswordRequest{UID: uid, Token: "x", NewPassword: "brand-new-password"})
		if !errors.Is(err, ErrResetUIDInvalid) {
			t.Fatalf("uid %q: expected ErrResetUIDInvalid, got %v", uid, err)
		}
	}

	// Well-formed uid for an account that does not exist.
	err := engine.ResetPassword(ctx, ResetPasswordRequest{
		UID:         resettoken.MakeUID(99999),
		Token:       "x",
		NewPassword: "brand-new-password",
	})
	if !errors.Is(err, ErrResetUIDInvalid) {
		t.Fatalf("expected ErrResetUIDInvalid for unknown account, got %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	id := seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	// Mint a token four days in the past with the same secret; the engine's
	// three-day max age rejects it.
	cfg := testConfig()
	gen, err := resettoken.NewGenerator(cfg.Reset.Secret, cfg.Reset.MaxAge)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	past := time.Now().Add(-4 * 24 * time.Hour)
	gen = gen.WithClock(func() time.Time { return past })

	account := store.get(id)
	stale := gen.Make(id, account.PasswordHash, account.LastLogin)

	err = engine.ResetPassword(context.Background(), ResetPasswordRequest{
		UID:         resettoken.MakeUID(id),
		Token:       stale,
		NewPassword: "brand-new-password",
	})
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for expired token, got %v", err)
	}
}

func TestResetTokenInvalidatedByLogin(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	ctx := context.Background()
	issue, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	// Logging in stamps last login, which the token digest binds.
	if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "old-password"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	err = engine.ResetPassword(ctx, ResetPasswordRequest{UID: issue.UID, Token: issue.Token, NewPassword: "brand-new-password"})
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid after login, got %v", err)
	}
}

func TestResetPasswordEnforcesPolicy(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	ctx := context.Background()
	issue, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	err = engine.ResetPassword(ctx, ResetPasswordRequest{UID: issue.UID, Token: issue.Token, NewPassword: "short"})
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	// The policy failure did not consume the token.
	err = engine.ResetPassword(ctx, ResetPasswordRequest{UID: issue.UID, Token: issue.Token, NewPassword: "brand-new-password"})
	if err != nil {
		t.Fatalf("ResetPassword after policy failure failed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	id := seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	ctx := context.Background()
	err := engine.ChangePassword(ctx, ChangePasswordRequest{AccountID: id, CurrentPassword: "old-password", NewPassword: "brand-new-password"})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "brand-new-password"}); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	id := seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	err := engine.ChangePassword(context.Background(), ChangePasswordRequest{AccountID: id, CurrentPassword: "nope", NewPassword: "brand-new-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePasswordUnusableCurrent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	id := store.put(Account{Email: "codeonly@example.com", IsActive: true})

	err := engine.ChangePassword(context.Background(), ChangePasswordRequest{AccountID: id, CurrentPassword: "", NewPassword: "brand-new-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unusable password, got %v", err)
	}
}

func TestChangePasswordPolicy(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	id := seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "old-password")

	err := engine.ChangePassword(context.Background(), ChangePasswordRequest{AccountID: id, CurrentPassword: "old-password", NewPassword: "short"})
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestChangePasswordUnknownAccount(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockAccountStore(), nil)

	err := engine.ChangePassword(context.Background(), ChangePasswordRequest{AccountID: 404, CurrentPassword: "x", NewPassword: "brand-new-password"})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
