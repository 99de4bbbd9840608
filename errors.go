package triauth

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is an exported constant or variable used by the authentication engine.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountNotFound is an exported constant or variable used by the authentication engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrIdentifierTaken is an exported constant or variable used by the authentication engine.
	ErrIdentifierTaken = errors.New("identifier already in use")
	// ErrNoIdentifier is an exported constant or variable used by the authentication engine.
	ErrNoIdentifier = errors.New("at least one of email, username, or phone is required")
	// ErrNoChannel is an exported constant or variable used by the authentication engine.
	ErrNoChannel = errors.New("account has no reachable delivery channel")
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("validation failed")
	// ErrCodeNotFound is an exported constant or variable used by the authentication engine.
	ErrCodeNotFound = errors.New("no pending verification code")
	// ErrCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrCodeInvalid = errors.New("verification code mismatch")
	// ErrCodeExpired is an exported constant or variable used by the authentication engine.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenRevoked is an exported constant or variable used by the authentication engine.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrResetUIDInvalid is an exported constant or variable used by the authentication engine.
	ErrResetUIDInvalid = errors.New("invalid password reset uid")
	// ErrResetTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrResetTokenInvalid = errors.New("invalid or expired password reset token")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSendRateLimited is an exported constant or variable used by the authentication engine.
	ErrSendRateLimited = errors.New("code delivery rate limited")
	// ErrDeliveryFailed is an exported constant or variable used by the authentication engine.
	ErrDeliveryFailed = errors.New("code delivery failed")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
