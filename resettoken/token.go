package resettoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Timestamps are compacted by counting from a fixed recent epoch instead of
// the Unix epoch, keeping the base36 prefix short.
var epoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrInvalidToken is an exported constant or variable used by the authentication engine.
	ErrInvalidToken = errors.New("invalid reset token")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("reset token expired")
	// ErrInvalidUID is an exported constant or variable used by the authentication engine.
	ErrInvalidUID = errors.New("invalid reset uid")
)

// Generator defines a public type used by triauth APIs.
//
// Generator instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Generator struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewGenerator describes the newgenerator operation and its observable behavior.
//
// NewGenerator may return an error when input validation, dependency calls, or security checks fail.
// NewGenerator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewGenerator(secret []byte, maxAge time.Duration) (*Generator, error) {
	if len(secret) < 32 {
		return nil, errors.New("reset secret must be at least 32 bytes")
	}
	if maxAge <= 0 {
		return nil, errors.New("reset max age must be > 0")
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Generator{
		secret: key,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// WithClock overrides the generator's time source. Intended for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Make issues a token bound to the account's current credential state. Any
// subsequent change to the password hash or last login produces a different
// digest, which is what makes a consumed token unusable.
//
// Make may return an error when input validation, dependency calls, or security checks fail.
// Make does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Generator) Make(accountID int64, passwordHash string, lastLogin time.Time) string {
	ts := int64(g.now().Sub(epoch) / time.Second)
	return g.makeAt(accountID, passwordHash, lastLogin, ts)
}

// Check verifies a token against the account's current credential state.
//
// Check may return an error when input validation, dependency calls, or security checks fail.
// Check does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Generator) Check(accountID int64, passwordHash string, lastLogin time.Time, token string) error {
	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return ErrInvalidToken
	}

	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts < 0 {
		return ErrInvalidToken
	}

	expected := g.makeAt(accountID, passwordHash, lastLogin, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrInvalidToken
	}

	nowTS := int64(g.now().Sub(epoch) / time.Second)
	if nowTS-ts > int64(g.maxAge/time.Second) {
		return ErrTokenExpired
	}

	return nil
}

func (g *Generator) makeAt(accountID int64, passwordHash string, lastLogin time.Time, ts int64) string {
	var lastLoginPart string
	if !lastLogin.IsZero() {
		lastLoginPart = strconv.FormatInt(lastLogin.Unix(), 10)
	}

	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(strconv.FormatInt(accountID, 10)))
	mac.Write([]byte{0})
	mac.Write([]byte(passwordHash))
	mac.Write([]byte{0})
	mac.Write([]byte(lastLoginPart))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(ts, 10)))

	digest := hex.EncodeToString(mac.Sum(nil))

	// Thin the digest to every other character; half the hex output keeps
	// tokens short while leaving 128 bits of HMAC strength.
	thinned := make([]byte, 0, len(digest)/2)
	for i := 0; i < len(digest); i += 2 {
		thinned = append(thinned, digest[i])
	}

	return strconv.FormatInt(ts, 36) + "-" + string(thinned)
}

// MakeUID encodes an account id for use in reset links.
func MakeUID(accountID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(accountID, 10)))
}

// ParseUID decodes an account id produced by [MakeUID].
func ParseUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, ErrInvalidUID
	}

	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidUID
	}

	return id, nil
}
