// Command triauth-loadtest measures login and refresh throughput against a
// locally built engine. It runs fully self-contained: miniredis backs the
// denylist unless a Redis address is supplied, and accounts live in an
// in-memory store.
//
// Argon2id dominates login latency, so the login phase is primarily a hashing
// benchmark; the refresh phase measures JWT parse plus denylist round-trips.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	triauth "github.com/triauth/triauth"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		accounts    = flag.Int("accounts", 100, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 16, "number of concurrent workers")
		ops         = flag.Int("ops", 500, "operations per phase (login + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()

	engine, err := buildEngine(rdb)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	identifiers := make([]string, *accounts)
	for i := 0; i < *accounts; i++ {
		identifiers[i] = fmt.Sprintf("load-%d@example.com", i)
		_, err := engine.Register(ctx, triauth.RegisterRequest{
			Email:    identifiers[i],
			Password: seedPassword,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed register failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats, refreshTokens := runLoginPhase(ctx, engine, identifiers, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, refreshTokens, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("refresh", refreshStats)
}

const seedPassword = "load-test-passphrase"

func buildEngine(rdb *redis.Client) (*triauth.Engine, error) {
	cfg := triauth.DefaultConfig()

	// Fixed throwaway key material so runs are reproducible.
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	cfg.Reset.Secret = []byte(strings.Repeat("s", 32))

	// Keep hashing affordable for a load test while staying argon2id.
	cfg.Password.Memory = 16 * 1024
	cfg.Password.Time = 1

	return triauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(newMemStore()).
		Build()
}

func runLoginPhase(ctx context.Context, engine *triauth.Engine, identifiers []string, ops, concurrency int) (phaseStats, []string) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		refresh   = make([]string, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				identifier := identifiers[r.Intn(len(identifiers))]
				t0 := time.Now()
				pair, err := engine.Login(ctx, triauth.LoginRequest{
					Identifier: identifier,
					Password:   seedPassword,
				})
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				if err == nil {
					refresh = append(refresh, pair.RefreshToken)
				}
				mu.Unlock()
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), refresh
}

func runRefreshPhase(ctx context.Context, engine *triauth.Engine, tokens []string, ops, concurrency int) phaseStats {
	if len(tokens) == 0 {
		return phaseStats{}
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	// Rotation denylists the used token, so each worker chains its own token
	// forward instead of sharing the seed slice.
	perWorker := make([]string, concurrency)
	for w := 0; w < concurrency; w++ {
		perWorker[w] = tokens[w%len(tokens)]
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			current := perWorker[worker]
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				pair, err := engine.Refresh(ctx, current)
				d := time.Since(t0)
				if err == nil {
					current = pair.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// In-memory AccountStore sized for the load test. Only the paths the login
// and refresh phases touch matter; the rest satisfy the interface.
type memStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*triauth.Account
	byKey  map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		nextID: 1,
		byID:   make(map[int64]*triauth.Account),
		byKey:  make(map[string]int64),
	}
}

func (s *memStore) Create(_ context.Context, account *triauth.Account) (*triauth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, taken := s.byKey[key]; taken {
		return nil, triauth.ErrIdentifierTaken
	}

	stored := *account
	stored.ID = s.nextID
	s.nextID++
	s.byID[stored.ID] = &stored
	s.byKey[key] = stored.ID

	out := stored
	return &out, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*triauth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return nil, triauth.ErrAccountNotFound
	}
	out := *account
	return &out, nil
}

func (s *memStore) GetByIdentifier(_ context.Context, identifier string) (*triauth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[strings.ToLower(identifier)]
	if !ok {
		return nil, triauth.ErrAccountNotFound
	}
	out := *s.byID[id]
	return &out, nil
}

func (s *memStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return triauth.ErrAccountNotFound
	}
	account.PasswordHash = hash
	return nil
}

func (s *memStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return triauth.ErrAccountNotFound
	}
	account.LastLogin = at
	return nil
}

func (s *memStore) SetCode(_ context.Context, id int64, ch triauth.Channel, code string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return triauth.ErrAccountNotFound
	}
	if ch == triauth.ChannelPhone {
		account.PhoneCode, account.PhoneCodeExpiry = code, expiry
	} else {
		account.EmailCode, account.EmailCodeExpiry = code, expiry
	}
	return nil
}

func (s *memStore) ConsumeCode(_ context.Context, id int64, ch triauth.Channel, code string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if ch == triauth.ChannelPhone {
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

func (s *memStore) UpdateProfile(_ context.Context, id int64, patch triauth.ProfilePatch) (*triauth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return nil, triauth.ErrAccountNotFound
	}
	if patch.Email != nil {
		account.Email = *patch.Email
	}
	if patch.Username != nil {
		account.Username = *patch.Username
	}
	if patch.Phone != nil {
		account.Phone = *patch.Phone
	}
	if patch.Name != nil {
		account.Name = *patch.Name
	}
	out := *account
	return &out, nil
}

func (s *memStore) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return triauth.ErrAccountNotFound
	}
	account.IsActive = active
	return nil
}
