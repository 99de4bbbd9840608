// Package postgres provides the production [triauth.AccountStore] backed by
// PostgreSQL via pgx, plus embedded goose migrations.
//
// Identifier lookups compare case-insensitively against email, username, and
// phone and break ties on the lowest id, which is what the engine's resolver
// contract requires. Unique-violation errors from the partial unique indexes
// map to [triauth.ErrIdentifierTaken].
//
// # Architecture boundaries
//
// This package speaks SQL and maps database errors onto triauth sentinels. It
// does NOT hash passwords, issue tokens, or enforce rate limits.
//
// # What this package must NOT do
//
//   - Interpret codes or tokens (the engine owns that logic).
//   - Open its own pool outside [Migrate] helpers — callers supply pgxpool.
package postgres
