package internaldefs

import (
	triauth "github.com/triauth/triauth"
)

// CounterDef defines a public type used by triauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   triauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by triauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   triauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: triauth.MetricLoginSuccess, Name: "triauth_login_success_total", Help: "Successful login attempts."},
	{ID: triauth.MetricLoginFailure, Name: "triauth_login_failure_total", Help: "Failed login attempts."},
	{ID: triauth.MetricLoginInactive, Name: "triauth_login_inactive_total", Help: "Login attempts rejected because the account is inactive."},
	{ID: triauth.MetricLoginRateLimited, Name: "triauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: triauth.MetricRefreshSuccess, Name: "triauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: triauth.MetricRefreshFailure, Name: "triauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: triauth.MetricLogout, Name: "triauth_logout_total", Help: "Logout operations."},
	{ID: triauth.MetricRegisterSuccess, Name: "triauth_register_success_total", Help: "Successful registrations."},
	{ID: triauth.MetricRegisterDuplicate, Name: "triauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: triauth.MetricCodeSent, Name: "triauth_code_sent_total", Help: "One-time codes delivered."},
	{ID: triauth.MetricCodeSendFailure, Name: "triauth_code_send_failure_total", Help: "One-time code delivery failures."},
	{ID: triauth.MetricCodeRateLimited, Name: "triauth_code_rate_limited_total", Help: "Rate-limited code send attempts."},
	{ID: triauth.MetricCodeVerified, Name: "triauth_code_verified_total", Help: "Successful code verifications."},
	{ID: triauth.MetricCodeRejected, Name: "triauth_code_rejected_total", Help: "Rejected code verifications."},
	{ID: triauth.MetricResetRequest, Name: "triauth_password_reset_request_total", Help: "Password reset requests."},
	{ID: triauth.MetricResetSuccess, Name: "triauth_password_reset_success_total", Help: "Successful password reset confirmations."},
	{ID: triauth.MetricResetFailure, Name: "triauth_password_reset_failure_total", Help: "Failed password reset confirmations."},
	{ID: triauth.MetricPasswordChangeSuccess, Name: "triauth_password_change_success_total", Help: "Successful password changes."},
	{ID: triauth.MetricPasswordChangeFailure, Name: "triauth_password_change_failure_total", Help: "Failed password changes."},
	{ID: triauth.MetricProfileUpdate, Name: "triauth_profile_update_total", Help: "Profile update operations."},
	{ID: triauth.MetricAccountStatusChange, Name: "triauth_account_status_change_total", Help: "Account activate and deactivate operations."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: triauth.MetricLoginLatency, Name: "triauth_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
