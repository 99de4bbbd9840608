// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for security-sensitive authentication workflows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - tal:  — login per-identifier
//   - tali: — login per-IP
//   - tas:  — code delivery per-identifier
//   - tasi: — code delivery per-IP
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in the Engine).
//   - Be imported outside the triauth module.
package rate
