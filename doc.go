// Package triauth provides a multi-identifier identity and authentication engine
// with JWT access/refresh token pairs, Redis-backed refresh revocation, per-channel
// one-time verification codes, and stateless password-reset tokens.
//
// Accounts may carry any combination of email, username, and phone number, and
// every pre-auth operation accepts a single free-form identifier that resolves
// case-insensitively across all three fields. The package is designed for
// concurrent server workloads: Engine methods are safe to call from multiple
// goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// triauth is the public surface. It exposes [Engine], [Builder], [Config], the
// [AccountStore] persistence contract, and value types (Account, TokenPair,
// MetricsSnapshot, etc.). Store implementations live in sub-packages
// ([github.com/triauth/triauth/postgres]) and outbound delivery in
// [github.com/triauth/triauth/notify]; the engine only ever sees the interfaces.
//
// # What this package must NOT do
//
//   - Expose Redis clients, SQL handles, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports triauth (no import cycles).
//
// # Failure semantics
//
// Login never reveals whether an identifier exists: unknown identifiers and
// wrong passwords both return [ErrInvalidCredentials]. The self-service code
// and reset flows do reveal existence ([ErrAccountNotFound]) because their
// callers already hold the identifier out-of-band.
package triauth
