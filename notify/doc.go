// Package notify provides delivery backends for the engine's
// [triauth.EmailSender] and [triauth.SMSSender] contracts.
//
// [NewPostmarkSender] is the production email backend, built on Postmark's
// transactional API. [NewLogSender] writes messages to a log for development
// and tests; it implements both sender interfaces.
//
// # What this package must NOT do
//
//   - Generate or inspect codes and tokens (the engine owns message content).
//   - Retry deliveries; callers decide retry policy.
package notify
