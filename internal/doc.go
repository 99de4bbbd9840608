// Package internal contains helper utilities that are intentionally private to
// triauth, including secure random code generation.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — Redis-backed rate limit primitives for login and code delivery
//
// # What this package must NOT do
//
//   - Export types that appear in the public triauth API.
//   - Be imported by any package outside the triauth module.
package internal
