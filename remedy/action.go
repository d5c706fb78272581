// Package remedy applies the hardening measures for a privileged-account
// domain: a fine-grained password policy, workstation logon restrictions,
// and a lockdown policy for the domain controllers.
package remedy

import "dabastion/directory"

// Result is the outcome of one action run. Failures land in Err so the
// controller can keep going with the remaining actions.
type Result struct {
	Applied bool
	Skipped bool
	Err     error
}

// Action is one hardening measure with a converge and an undo side.
type Action interface {
	ID() string
	Title() string
	// Ensure converges the domain toward the measure's target state.
	// With confirm set the operator is asked before anything is
	// written; without it the action proceeds unprompted.
	Ensure(confirm bool) Result
	// Remove deletes what Ensure created. Removing an artifact that is
	// already gone succeeds.
	Remove() Result
}

// Action identifiers, in apply order.
const (
	ActionPasswordPolicy    = "privileged-password-policy"
	ActionLogonRestriction  = "logon-restriction"
	ActionLockdown          = "dc-lockdown"
	ActionCredentialCaching = "credential-caching"
)

// Names of the objects this tool creates in the directory. Changing
// them orphans objects created by earlier versions.
const (
	PSOName        = "dabastion Privileged Password Policy"
	GPODisplayName = "dabastion Domain Controller Lockdown"
)

// PolicyStore is the slice of directory mutation the actions need.
type PolicyStore interface {
	FindPSO(cn string) (*directory.PSOInfo, error)
	CreatePSO(cn string, params directory.PSOParams) (*directory.PSOInfo, error)
	ModifyPSO(dn string, attrs map[string][]string) error
	LinkPSO(psoDN, groupDN string) error
	DeletePSO(cn string) error
	PrivilegedGroupDN() (string, error)
	FindGPOByName(displayName string) (*directory.GPOInfo, error)
	CreateGPO(displayName string) (*directory.GPOInfo, error)
	SetGPOSetting(gpo *directory.GPOInfo, entry directory.PolEntry) (bool, error)
	DeleteGPOByName(displayName string) error
}

// Summaries lists each action for the usage text. It needs no directory
// connection.
func Summaries() []string {
	return []string{
		ActionPasswordPolicy + ": create a hardened fine-grained password policy and apply it to the privileged group",
		ActionLogonRestriction + ": restrict privileged account logons to the domain controllers (cannot be undone)",
		ActionLockdown + ": restrict null session and anonymous SAM access on the domain controllers",
		ActionCredentialCaching + ": disable cached domain credentials on the domain controllers",
	}
}
