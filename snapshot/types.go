package snapshot

import "time"

// Setting is a tri-state security-option value read from the resultant
// policy. Absent covers both "not configured" and "could not be
// interpreted"; callers grade Absent conservatively.
type Setting int

const (
	SettingAbsent Setting = iota
	SettingOff
	SettingOn
)

func (s Setting) String() string {
	switch s {
	case SettingOff:
		return "off"
	case SettingOn:
		return "on"
	default:
		return "absent"
	}
}

// DomainSnapshot is the point-in-time state a run evaluates. It is built
// once per run and never mutated afterwards.
//
// Numeric policy fields default to zero when the resultant policy does not
// carry them, which grades as a failing condition downstream.
type DomainSnapshot struct {
	CapturedAt time.Time

	// account policy from the resultant policy export
	MinPasswordAge      int // days
	LockoutThreshold    int
	MinPasswordLength   int
	ComplexityEnabled   bool
	PasswordHistorySize int

	// security options from the resultant policy export
	NullSessionsRestricted Setting // on = anonymous pipe/share access restricted
	AnonymousSIDLookup     Setting // on = anonymous SID/name translation allowed

	// directory facts
	PrivilegedAccounts []PrivilegedAccount
	DomainControllers  []string // short host names
	AdminGroupMembers  []AdminGroupMember
}

// PrivilegedAccount is a member of the domain's highest-privilege group
// together with its allowed logon targets. An empty target list means the
// account may log on anywhere.
type PrivilegedAccount struct {
	SAMAccountName    string
	LogonWorkstations []string
}

// AdminGroupMember is a member of the built-in Administrators group with
// the classification the membership check grades on.
type AdminGroupMember struct {
	SAMAccountName       string
	BuiltinAdministrator bool // the RID-500 account
	ProtectedGroupMember bool // Domain Admins or Enterprise Admins, directly or as the group itself
}
