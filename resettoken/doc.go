// Package resettoken issues and checks stateless password-reset tokens.
//
// # Token format
//
//	<timestamp_base36>-<digest>
//
// The digest is an HMAC-SHA256 over the account's id, password hash, last
// login, and the issue timestamp, hex-encoded and thinned to every other
// character. Nothing is persisted: a token self-invalidates when the password
// hash or last login changes, and expires once the configured max age has
// passed. The timestamp counts seconds since 2001-01-01 UTC.
//
// # What this package must NOT do
//
//   - Look up accounts — callers supply the account state to bind against.
//   - Import any other triauth package.
package resettoken
