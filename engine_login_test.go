package triauth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockAccountStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*Account

	failWith error

	createCalls      int
	updateHashCalls  int
	lastLoginCalls   int
	setCodeCalls     int
	consumeCodeCalls int
	updateProfCalls  int
	setActiveCalls   int
	getByIdentCalls  int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		nextID:   1,
		accounts: make(map[int64]*Account),
	}
}

// put inserts an account directly, bypassing Create. Returns the stored id.
func (m *mockAccountStore) put(a Account) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == 0 {
		a.ID = m.nextID
	}
	if a.ID >= m.nextID {
		m.nextID = a.ID + 1
	}
	m.accounts[a.ID] = &a
	return a.ID
}

func (m *mockAccountStore) get(id int64) Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

func (m *mockAccountStore) Create(_ context.Context, account *Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}

	for _, existing := range m.accounts {
		if clash(existing, account) {
			return nil, ErrIdentifierTaken
		}
	}

	stored := *account
	stored.ID = m.nextID
	m.nextID++
	m.accounts[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *mockAccountStore) GetByID(_ context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *account
	return &out, nil
}

func (m *mockAccountStore) GetByIdentifier(_ context.Context, identifier string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getByIdentCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}

	ids := make([]int64, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	want := strings.ToLower(identifier)
	for _, id := range ids {
		a := m.accounts[id]
		if (a.Email != "" && strings.ToLower(a.Email) == want) ||
			(a.Username != "" && strings.ToLower(a.Username) == want) ||
			(a.Phone != "" && strings.ToLower(a.Phone) == want) {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *mockAccountStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateHashCalls++
	account, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.PasswordHash = hash
	return nil
}

func (m *mockAccountStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastLoginCalls++
	account, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.LastLogin = at
	return nil
}

func (m *mockAccountStore) SetCode(_ context.Context, id int64, ch Channel, code string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCodeCalls++
	account, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if ch == ChannelPhone {
		account.PhoneCode, account.PhoneCodeExpiry = code, expiry
	} else {
		account.EmailCode, account.EmailCodeExpiry = code, expiry
	}
	return nil
}

func (m *mockAccountStore) ConsumeCode(_ context.Context, id int64, ch Channel, code string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consumeCodeCalls++
	account, ok := m.accounts[id]
	if !ok {
		return false, nil
	}
	if ch == ChannelPhone {
		if account.PhoneCode == "" || account.PhoneCode != code {
			return false, nil
		}
		account.PhoneCode, account.PhoneCodeExpiry = "", time.Time{}
		account.PhoneVerified, account.PhoneVerifiedAt = true, at
		return true, nil
	}
	if account.EmailCode == "" || account.EmailCode != code {
		return false, nil
	}
	account.EmailCode, account.EmailCodeExpiry = "", time.Time{}
	account.EmailVerified, account.EmailVerifiedAt = true, at
	return true, nil
}

func (m *mockAccountStore) UpdateProfile(_ context.Context, id int64, patch ProfilePatch) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateProfCalls++
	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}

	updated := *account
	if patch.Email != nil {
		updated.Email = *patch.Email
	}
	if patch.Username != nil {
		updated.Username = *patch.Username
	}
	if patch.Phone != nil {
		updated.Phone = *patch.Phone
	}
	if patch.Name != nil {
		updated.Name = *patch.Name
	}

	for otherID, other := range m.accounts {
		if otherID != id && clash(other, &updated) {
			return nil, ErrIdentifierTaken
		}
	}

	*account = updated
	out := updated
	return &out, nil
}

func (m *mockAccountStore) SetActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setActiveCalls++
	account, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.IsActive = active
	return nil
}

func clash(existing, candidate *Account) bool {
	return (candidate.Email != "" && strings.EqualFold(existing.Email, candidate.Email)) ||
		(candidate.Username != "" && strings.EqualFold(existing.Username, candidate.Username)) ||
		(candidate.Phone != "" && strings.EqualFold(existing.Phone, candidate.Phone))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testConfig keeps argon2 at the cheapest valid cost so that engine tests
// stay fast while exercising the real hasher.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	cfg.Reset.Secret = []byte(strings.Repeat("s", 32))
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.MinLength = 8
	return cfg
}

func newTestEngine(t *testing.T, rdb *redis.Client, store AccountStore, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

// seedAccount hashes the password through the engine's own hasher and stores
// the account directly, so login tests do not depend on Register.
func seedAccount(t *testing.T, engine *Engine, store *mockAccountStore, a Account, plaintext string) int64 {
	t.Helper()

	if plaintext != "" {
		hash, err := engine.passwordHash.Hash(plaintext)
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		a.PasswordHash = hash
	}
	return store.put(a)
}

func TestLoginSuccess(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	id := seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "correct-horse")

	ctx := context.Background()
	pair, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}

	claims, err := engine.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	gotID, err := claims.AccountID()
	if err != nil || gotID != id {
		t.Fatalf("expected subject %d, got %d (err=%v)", id, gotID, err)
	}

	if store.get(id).LastLogin.IsZero() {
		t.Fatal("expected last login to be stamped")
	}
}

func TestLoginUnknownIdentifier(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)

	_, err := engine.Login(context.Background(), LoginRequest{Identifier: "ghost@example.com", Password: "whatever"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "correct-horse")

	_, err := engine.Login(context.Background(), LoginRequest{Identifier: "alice@example.com", Password: "wrong-horse"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnusablePasswordNeverAuthenticates(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	// Empty hash: account exists but has no password set.
	store.put(Account{Email: "codeonly@example.com", IsActive: true})

	for _, password := range []string{"", "anything"} {
		_, err := engine.Login(context.Background(), LoginRequest{Identifier: "codeonly@example.com", Password: password})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("password %q: expected ErrInvalidCredentials, got %v", password, err)
		}
	}
}

func TestLoginInactiveOrdering(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	seedAccount(t, engine, store, Account{Email: "off@example.com", IsActive: false}, "correct-horse")

	ctx := context.Background()

	// Wrong password against a disabled account must NOT reveal the disabled
	// state; the password check runs first.
	_, err := engine.Login(ctx, LoginRequest{Identifier: "off@example.com", Password: "wrong-horse"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = engine.Login(ctx, LoginRequest{Identifier: "off@example.com", Password: "correct-horse"})
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestLoginResolvesAnyIdentifierCaseInsensitively(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	seedAccount(t, engine, store, Account{
		Email:    "alice@example.com",
		Username: "wonderland",
		Phone:    "+15550100",
		IsActive: true,
	}, "correct-horse")

	ctx := context.Background()
	for _, identifier := range []string{"ALICE@EXAMPLE.COM", "Wonderland", "+15550100", "  alice@example.com  "} {
		if _, err := engine.Login(ctx, LoginRequest{Identifier: identifier, Password: "correct-horse"}); err != nil {
			t.Fatalf("identifier %q: Login failed: %v", identifier, err)
		}
	}
}

func TestLoginTieBreaksOnLowestID(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)

	// Legacy case-variant duplicates: only the older row's password works.
	seedAccount(t, engine, store, Account{ID: 1, Username: "Neo", IsActive: true}, "first-password")
	seedAccount(t, engine, store, Account{ID: 2, Username: "neo", IsActive: true}, "second-password")

	ctx := context.Background()
	if _, err := engine.Login(ctx, LoginRequest{Identifier: "NEO", Password: "first-password"}); err != nil {
		t.Fatalf("expected lowest-id account to win, got %v", err)
	}
	if _, err := engine.Login(ctx, LoginRequest{Identifier: "NEO", Password: "second-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected higher-id account to be shadowed, got %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, func(cfg *Config) {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.MaxLoginAttempts = 3
		cfg.Security.LoginCooldownDuration = time.Minute
	})
	seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "correct-horse")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// The attempt that pushes the counter past the cap is itself reported as
	// rate limited, not as a credential failure.
	if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited on overflow attempt, got %v", err)
	}

	// Budget exhausted: even the correct password is refused now.
	if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "correct-horse"}); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
}

func TestLoginSuccessResetsAttemptBudget(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, func(cfg *Config) {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.MaxLoginAttempts = 3
		cfg.Security.LoginCooldownDuration = time.Minute
	})
	seedAccount(t, engine, store, Account{Email: "alice@example.com", IsActive: true}, "correct-horse")

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "wrong"})
	}
	if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Counter cleared: three fresh failures are allowed again before the cap.
	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d after reset: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
}

func TestLoginStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMockAccountStore()
	engine := newTestEngine(t, rdb, store, nil)
	store.failWith = errors.New("connection refused")

	_, err := engine.Login(context.Background(), LoginRequest{Identifier: "alice@example.com", Password: "x"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestLoginValidatesInput(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockAccountStore(), nil)

	_, err := engine.Login(context.Background(), LoginRequest{Identifier: "   "})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
