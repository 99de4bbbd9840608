package triauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/triauth/triauth/internal/audit"
)

// Channel identifies the delivery channel a one-time code is bound to.
//
//	Docs: docs/verification.md
type Channel string

const (
	// ChannelEmail is an exported constant or variable used by the authentication engine.
	ChannelEmail Channel = "email"
	// ChannelPhone is an exported constant or variable used by the authentication engine.
	ChannelPhone Channel = "phone"
)

// CodePurpose selects the message template used when a one-time code is sent.
type CodePurpose string

const (
	// PurposeVerify is an exported constant or variable used by the authentication engine.
	PurposeVerify CodePurpose = "verify"
	// PurposeReset is an exported constant or variable used by the authentication engine.
	PurposeReset CodePurpose = "reset"
)

// Account is the full account record exchanged with [AccountStore].
// PasswordHash is a PHC-encoded Argon2id string; the empty string marks an
// unusable password that can never authenticate.
type Account struct {
	ID           int64
	Email        string
	Username     string
	Phone        string
	Name         string
	PasswordHash string

	IsActive    bool
	IsStaff     bool
	IsSuperuser bool

	EmailVerified   bool
	EmailVerifiedAt time.Time
	EmailCode       string
	EmailCodeExpiry time.Time

	PhoneVerified   bool
	PhoneVerifiedAt time.Time
	PhoneCode       string
	PhoneCodeExpiry time.Time

	LastLogin  time.Time
	DateJoined time.Time
}

// Identifiers reports whether the account carries at least one of the three
// identifier fields.
func (a *Account) Identifiers() bool {
	return a != nil && (a.Email != "" || a.Username != "" || a.Phone != "")
}

// Code returns the pending code and expiry for the given channel.
func (a *Account) Code(ch Channel) (string, time.Time) {
	if ch == ChannelPhone {
		return a.PhoneCode, a.PhoneCodeExpiry
	}
	return a.EmailCode, a.EmailCodeExpiry
}

// Destination returns the address codes are delivered to on the given channel.
func (a *Account) Destination(ch Channel) string {
	if ch == ChannelPhone {
		return a.Phone
	}
	return a.Email
}

// ProfilePatch carries the mutable profile fields for
// [AccountStore.UpdateProfile]. Nil pointers leave the field untouched;
// pointing at the empty string clears it.
type ProfilePatch struct {
	Email    *string
	Username *string
	Phone    *string
	Name     *string
}

// AccountStore is the persistence contract that callers must implement to
// integrate triauth with their account database. The
// [github.com/triauth/triauth/postgres] sub-package provides a production
// implementation.
//
// GetByIdentifier must match the identifier case-insensitively against email,
// username, and phone, and when several rows match (legacy case-variant
// duplicates) return the one with the lowest id.
//
// ConsumeCode must be conditional: it clears the pending code, sets the
// verified flag, and stamps the verification time only when the stored code
// still equals the supplied one, reporting whether the swap happened. That
// single conditional write is what makes codes single-use under concurrency.
//
//	Docs: docs/store.md
type AccountStore interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	SetCode(ctx context.Context, id int64, ch Channel, code string, expiry time.Time) error
	ConsumeCode(ctx context.Context, id int64, ch Channel, code string, at time.Time) (bool, error)
	UpdateProfile(ctx context.Context, id int64, patch ProfilePatch) (*Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// EmailSender delivers outbound mail. Implementations live in
// [github.com/triauth/triauth/notify].
type EmailSender interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers outbound text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// TokenPair is returned by [Engine.Login] and [Engine.Refresh].
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginRequest is the input for [Engine.Login].
type LoginRequest struct {
	Identifier string
	Password   string
}

// RegisterRequest is the input for [Engine.Register] and
// [Engine.CreateSuperuser]. At least one of Email, Username, and Phone must be
// set. An empty Password stores an unusable password.
type RegisterRequest struct {
	Email    string
	Username string
	Phone    string
	Name     string
	Password string
}

// SendCodeRequest is the input for [Engine.SendCode]. Purpose defaults to
// [PurposeVerify].
type SendCodeRequest struct {
	Identifier string
	Purpose    CodePurpose
}

// VerifyCodeRequest is the input for [Engine.VerifyCode].
type VerifyCodeRequest struct {
	Identifier string
	Channel    Channel
	Code       string
}

// ResetPasswordRequest is the input for [Engine.ResetPassword]. UID and Token
// come from the reset link issued by [Engine.RequestPasswordReset].
type ResetPasswordRequest struct {
	UID         string
	Token       string
	NewPassword string
}

// ResetIssue is returned by [Engine.RequestPasswordReset]. It carries the
// link components so callers can build their own reset URLs.
type ResetIssue struct {
	UID   string
	Token string
}

// ChangePasswordRequest is the input for [Engine.ChangePassword].
type ChangePasswordRequest struct {
	AccountID       int64
	CurrentPassword string
	NewPassword     string
}

// UpdateProfileRequest is the input for [Engine.UpdateProfile]. Semantics of
// the pointer fields match [ProfilePatch]. Staff, superuser, and active flags
// are not writable through this path.
type UpdateProfileRequest struct {
	AccountID int64
	Email     *string
	Username  *string
	Phone     *string
	Name      *string
}

// AuditEvent is a structured audit record emitted by the engine.
//
//	Docs: docs/audit.md
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
//
//	Docs: docs/audit.md
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
//
//	Docs: docs/audit.md
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
//
//	Docs: docs/audit.md
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
//
//	Docs: docs/audit.md
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
