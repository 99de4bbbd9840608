// Package jwt manages access- and refresh-token issuance and verification using
// configured signing keys and strict validation semantics suitable for
// low-latency authentication paths.
//
// Access and refresh tokens share one signing key but carry a mandatory "typ"
// claim, so a refresh token can never be replayed as an access token or vice
// versa. Refresh tokens additionally carry a UUID jti that the engine's
// denylist keys revocation on.
package jwt
