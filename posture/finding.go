package posture

// Severity grades a finding or an action outcome. The set is closed;
// switches over it are expected to be exhaustive.
type Severity int

const (
	Success Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Check identifiers, one per rule, in evaluation order.
const (
	CheckPrivilegedCount  = "privileged-account-count"
	CheckPasswordHistory  = "password-history"
	CheckLockoutThreshold = "lockout-threshold"
	CheckComplexity       = "password-complexity"
	CheckPasswordLength   = "password-length"
	CheckLogonRestriction = "logon-restriction"
	CheckNullSessions     = "null-sessions"
	CheckAnonymousSID     = "anonymous-sid-translation"
	CheckAdminMembership  = "admin-group-membership"
)

// Finding is one graded evaluation result. Findings are output values
// only; nothing retains them past the report.
type Finding struct {
	Check    string
	Severity Severity
	Message  string
}
