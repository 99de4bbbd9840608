// Package middleware exposes HTTP middleware adapters that enforce triauth
// access-token authentication and role checks on wrapped handlers.
//
// # Guards
//
//   - [Guard] — requires a valid access token.
//   - [RequireStaff] — additionally requires the staff claim.
//   - [RequireSuperuser] — additionally requires the superuser claim.
//
// Each guard reads the Authorization header, calls Engine.ValidateAccess, and
// injects the validated claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the account store (Engine handles I/O).
//   - Make authorization decisions beyond the claim checks documented above.
package middleware
