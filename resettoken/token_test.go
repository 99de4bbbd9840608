package resettoken

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestGenerator(t *testing.T, maxAge time.Duration) *Generator {
	t.Helper()

	g, err := NewGenerator([]byte(strings.Repeat("s", 32)), maxAge)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	return g
}

func TestTokenRoundTrip(t *testing.T) {
	g := newTestGenerator(t, 3*24*time.Hour)

	lastLogin := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	token := g.Make(42, "$argon2id$hash", lastLogin)
	if token == "" || !strings.Contains(token, "-") {
		t.Fatalf("unexpected token shape: %q", token)
	}

	if err := g.Check(42, "$argon2id$hash", lastLogin, token); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestTokenBindsCredentialState(t *testing.T) {
	g := newTestGenerator(t, 3*24*time.Hour)

	lastLogin := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	token := g.Make(42, "old-hash", lastLogin)

	// A changed password hash retires the token.
	if err := g.Check(42, "new-hash", lastLogin, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after hash change, got %v", err)
	}

	// So does a newer login.
	if err := g.Check(42, "old-hash", lastLogin.Add(time.Hour), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after login, got %v", err)
	}

	// And a different account.
	if err := g.Check(43, "old-hash", lastLogin, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong account, got %v", err)
	}
}

func TestTokenZeroLastLogin(t *testing.T) {
	g := newTestGenerator(t, 3*24*time.Hour)

	// Accounts that never logged in still get working tokens.
	token := g.Make(7, "hash", time.Time{})
	if err := g.Check(7, "hash", time.Time{}, token); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	g := newTestGenerator(t, 3*24*time.Hour)

	issued := time.Now().Add(-4 * 24 * time.Hour)
	stale := newTestGenerator(t, 3*24*time.Hour).
		WithClock(func() time.Time { return issued }).
		Make(42, "hash", time.Time{})

	if err := g.Check(42, "hash", time.Time{}, stale); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// Just inside the window it still verifies.
	fresh := newTestGenerator(t, 3*24*time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * 24 * time.Hour) }).
		Make(42, "hash", time.Time{})
	if err := g.Check(42, "hash", time.Time{}, fresh); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestTokenTampering(t *testing.T) {
	g := newTestGenerator(t, 3*24*time.Hour)
	token := g.Make(42, "hash", time.Time{})

	tsPart, digest, _ := strings.Cut(token, "-")

	tampered := []string{
		"",
		"nodash",
		"-",
		"!!bad!!-" + digest,
		tsPart + "-" + digest[:len(digest)-1] + "x",
		// Shifted timestamp with the old digest.
		"zz" + tsPart + "-" + digest,
	}
	for _, tok := range tampered {
		if err := g.Check(42, "hash", time.Time{}, tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestTokenDifferentSecrets(t *testing.T) {
	a := newTestGenerator(t, 3*24*time.Hour)
	b, err := NewGenerator([]byte(strings.Repeat("x", 32)), 3*24*time.Hour)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	token := a.Make(42, "hash", time.Time{})
	if err := b.Check(42, "hash", time.Time{}, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	if _, err := NewGenerator([]byte("short"), time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
	if _, err := NewGenerator([]byte(strings.Repeat("s", 32)), 0); err == nil {
		t.Fatal("expected error for zero max age")
	}
}

func TestUIDRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 42, 1 << 40} {
		uid := MakeUID(id)
		got, err := ParseUID(uid)
		if err != nil {
			t.Fatalf("ParseUID failed for %d: %v", id, err)
		}
		if got != id {
			t.Fatalf("expected %d, got %d", id, got)
		}
	}
}

func TestParseUIDRejectsGarbage(t *testing.T) {
	for _, uid := range []string{"", "!!!", "bm90LWEtbnVtYmVy", MakeUID(0), MakeUID(-5)} {
		if _, err := ParseUID(uid); !errors.Is(err, ErrInvalidUID) {
			t.Fatalf("uid %q: expected ErrInvalidUID, got nil", uid)
		}
	}
}
