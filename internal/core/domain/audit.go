package domain

import "time"

// AuditEventType classifies security-relevant events recorded best-effort.
type AuditEventType string

const (
	AuditLoginSuccess     AuditEventType = "login_success"
	AuditLoginFailure     AuditEventType = "login_failure"
	AuditLogout           AuditEventType = "logout"
	AuditTokenRefresh     AuditEventType = "token_refresh"
	AuditPermissionDenied AuditEventType = "permission_denied"
	AuditRateLimited      AuditEventType = "rate_limited"
	AuditTwoFactorChange  AuditEventType = "two_factor_change"
	AuditUserChange       AuditEventType = "user_change"
	AuditSessionRevoked   AuditEventType = "session_revoked"
)

// AuditEvent records a single authentication/authorization event. Recording
// is non-blocking and best-effort: a failure to persist an event must never
// fail the request that produced it.
type AuditEvent struct {
	Type      AuditEventType `json:"type"`
	Actor     string         `json:"actor,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Path      string         `json:"path,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
