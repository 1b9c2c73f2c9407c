package security

// Severity is derived from the EventType, never supplied by the caller
type Severity string

const (
	SeverityINFO     Severity = "INFO"
	SeverityMEDIUM   Severity = "MEDIUM"
	SeverityWARN     Severity = "WARN"
	SeverityHIGH     Severity = "HIGH"
	SeverityCRITICAL Severity = "CRITICAL"
)

const (
	// Authentication
	EventLoginSuccess  EventType = "login_success"
	EventLoginFailed   EventType = "login_failed"
	EventLogout        EventType = "logout"
	EventRoleAssigned  EventType = "role_assigned"
	EventRoleConflict  EventType = "role_conflict"
	EventTokenRejected EventType = "token_rejected"
	EventAdminGranted  EventType = "admin_granted"

	// Access control
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventCSRFViolation      EventType = "csrf_violation"
	EventRateLimitTriggered EventType = "rate_limit_triggered"
	EventUploadRejected     EventType = "upload_rejected"

	// Contracts and money
	EventApplicantAccepted EventType = "applicant_accepted"
	EventMilestonePaid     EventType = "milestone_paid"
	EventPaymentFailed     EventType = "payment_failed"
	EventWalletDeposit     EventType = "wallet_deposit"
	EventWorkflowRollback  EventType = "workflow_rollback"

	// Operations
	EventDashboardAccess EventType = "security_dashboard_access"
	EventLedgerExport    EventType = "ledger_export"
)

// EventSeverityMap fixes the severity of every known event type
var EventSeverityMap = map[EventType]Severity{
	EventLoginSuccess:      SeverityINFO,
	EventLogout:            SeverityINFO,
	EventRoleAssigned:      SeverityINFO,
	EventApplicantAccepted: SeverityINFO,
	EventMilestonePaid:     SeverityINFO,
	EventWalletDeposit:     SeverityINFO,
	EventDashboardAccess:   SeverityINFO,
	EventLedgerExport:      SeverityINFO,

	EventLoginFailed:    SeverityMEDIUM,
	EventRoleConflict:   SeverityMEDIUM,
	EventUploadRejected: SeverityMEDIUM,
	EventPaymentFailed:  SeverityMEDIUM,

	EventTokenRejected:      SeverityWARN,
	EventAdminGranted:       SeverityWARN,
	EventRateLimitTriggered: SeverityWARN,

	EventUnauthorizedAccess: SeverityHIGH,
	EventCSRFViolation:      SeverityHIGH,

	// A rollback that itself failed leaves wallets inconsistent
	EventWorkflowRollback: SeverityCRITICAL,
}

// GetSeverity returns the severity for an event type, WARN when unknown.
func GetSeverity(eventType EventType) Severity {
	if severity, ok := EventSeverityMap[eventType]; ok {
		return severity
	}
	return SeverityWARN
}

// IsHighOrAbove reports whether the event needs operator attention.
func IsHighOrAbove(eventType EventType) bool {
	s := GetSeverity(eventType)
	return s == SeverityHIGH || s == SeverityCRITICAL
}

// severityRank orders severities from INFO (0) to CRITICAL (4).
var severityRank = map[Severity]int{
	SeverityINFO:     0,
	SeverityMEDIUM:   1,
	SeverityWARN:     2,
	SeverityHIGH:     3,
	SeverityCRITICAL: 4,
}

// HigherSeverity returns whichever of a and b is more severe.
func HigherSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}
