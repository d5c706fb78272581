package remedy

import (
	"errors"
	"fmt"
	"slices"

	"dabastion/posture"
	"dabastion/report"
	"dabastion/snapshot"
)

// Accounts is the slice of account and host access the logon
// restriction needs.
type Accounts interface {
	PrivilegedAccounts() ([]snapshot.PrivilegedAccount, error)
	DomainControllers() ([]string, error)
	SetLogonWorkstations(sam string, hosts []string) error
}

// LogonRestriction pins every privileged account's workstation logon
// list to the domain controller set. The accounts' previous lists are
// not recorded anywhere, so this action has no undo.
type LogonRestriction struct {
	accounts Accounts
	confirm  Confirmer
	rep      report.Reporter
}

func NewLogonRestriction(accounts Accounts, confirm Confirmer, rep report.Reporter) *LogonRestriction {
	return &LogonRestriction{accounts: accounts, confirm: confirm, rep: rep}
}

func (a *LogonRestriction) ID() string { return ActionLogonRestriction }

func (a *LogonRestriction) Title() string {
	return "Restrict privileged account logons to the domain controllers"
}

func (a *LogonRestriction) Ensure(confirm bool) Result {
	if confirm {
		prompt := a.Title() + "? This overwrites each account's workstation list and cannot be undone"
		if !a.confirm.Confirm(prompt) {
			a.rep.Record(posture.Warning, "skipped: "+a.Title())
			return Result{Skipped: true}
		}
	}

	controllers, err := a.accounts.DomainControllers()
	if err != nil {
		return Result{Err: fmt.Errorf("listing domain controllers: %w", err)}
	}
	targets := posture.ShortHostNames(controllers)
	if len(targets) == 0 {
		// an empty userWorkstations value means unrestricted, the
		// opposite of what this action is for
		return Result{Err: errors.New("no domain controllers found; refusing to write an empty logon list")}
	}

	accounts, err := a.accounts.PrivilegedAccounts()
	if err != nil {
		return Result{Err: fmt.Errorf("listing privileged accounts: %w", err)}
	}

	var updated int
	for _, acct := range accounts {
		if slices.Equal(posture.ShortHostNames(acct.LogonWorkstations), targets) {
			continue
		}
		if err := a.accounts.SetLogonWorkstations(acct.SAMAccountName, targets); err != nil {
			return Result{Err: fmt.Errorf("restricting %s: %w", acct.SAMAccountName, err)}
		}
		updated++
	}

	if updated == 0 {
		a.rep.Record(posture.Success, fmt.Sprintf("all %d privileged accounts are already restricted to the domain controllers", len(accounts)))
		return Result{}
	}
	a.rep.Record(posture.Success, fmt.Sprintf("restricted logons for %d of %d privileged accounts to %d domain controllers", updated, len(accounts), len(targets)))
	return Result{Applied: true}
}

// Remove cannot restore the overwritten workstation lists.
func (a *LogonRestriction) Remove() Result {
	a.rep.Record(posture.Warning, "logon restrictions cannot be undone automatically; review userWorkstations on the privileged accounts by hand")
	return Result{Skipped: true}
}
