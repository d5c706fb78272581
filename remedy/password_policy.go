package remedy

import (
	"errors"
	"fmt"
	"time"

	"dabastion/diff"
	"dabastion/directory"
	"dabastion/posture"
	"dabastion/report"
)

// passwordPolicyParams is the target fine-grained policy for the
// privileged group. Lockouts never expire on their own: an admin has to
// unlock the account, which is the point.
func passwordPolicyParams() directory.PSOParams {
	return directory.PSOParams{
		Precedence:        10,
		MinPasswordLength: 12,
		ComplexityEnabled: true,
		HistoryLength:     10,
		LockoutThreshold:  5,
		ObservationWindow: 24 * time.Hour,
		LockoutForever:    true,
		MinPasswordAge:    3 * 24 * time.Hour,
		MaxPasswordAge:    30 * 24 * time.Hour,
	}
}

// PasswordPolicy maintains the fine-grained password policy applied to
// the privileged group.
type PasswordPolicy struct {
	store   PolicyStore
	confirm Confirmer
	rep     report.Reporter
}

func NewPasswordPolicy(store PolicyStore, confirm Confirmer, rep report.Reporter) *PasswordPolicy {
	return &PasswordPolicy{store: store, confirm: confirm, rep: rep}
}

func (a *PasswordPolicy) ID() string { return ActionPasswordPolicy }

func (a *PasswordPolicy) Title() string {
	return "Apply a hardened password policy to the privileged group"
}

func (a *PasswordPolicy) Ensure(confirm bool) Result {
	if confirm && !a.confirm.Confirm(a.Title() + "?") {
		a.rep.Record(posture.Warning, "skipped: "+a.Title())
		return Result{Skipped: true}
	}

	params := passwordPolicyParams()
	existing, err := a.store.FindPSO(PSOName)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return a.create(confirm, params)
	case err != nil:
		return Result{Err: fmt.Errorf("looking up password settings object: %w", err)}
	}
	return a.converge(existing, params)
}

// create makes the policy object and links it to the privileged group.
// Interactively the link is its own decision: declining it removes the
// fresh object again, because an unlinked policy protects nobody and
// would shadow a later run.
func (a *PasswordPolicy) create(confirm bool, params directory.PSOParams) Result {
	groupDN, err := a.store.PrivilegedGroupDN()
	if err != nil {
		return Result{Err: fmt.Errorf("resolving privileged group: %w", err)}
	}
	pso, err := a.store.CreatePSO(PSOName, params)
	if err != nil {
		return Result{Err: fmt.Errorf("creating password settings object: %w", err)}
	}
	if confirm {
		prompt := fmt.Sprintf("Link %q to %s? Declining removes the new policy object", PSOName, groupDN)
		if !a.confirm.Confirm(prompt) {
			if err := a.store.DeletePSO(PSOName); err != nil {
				return Result{Err: fmt.Errorf("removing the unlinked password settings object: %w", err)}
			}
			a.rep.Record(posture.Warning, "password policy created but not linked; removed it again")
			return Result{Skipped: true}
		}
	}
	if err := a.store.LinkPSO(pso.DN, groupDN); err != nil {
		return Result{Err: fmt.Errorf("linking password settings object: %w", err)}
	}
	a.rep.Record(posture.Success, fmt.Sprintf("created %q and applied it to %s", PSOName, groupDN))
	return Result{Applied: true}
}

// converge rewrites only the attributes that drifted from the target.
func (a *PasswordPolicy) converge(existing *directory.PSOInfo, params directory.PSOParams) Result {
	changes := diff.FindChanges(params.Attributes(), existing.Attrs)
	if len(changes) == 0 {
		a.rep.Record(posture.Success, fmt.Sprintf("%q already matches the target policy", PSOName))
		return Result{}
	}
	drifted := make(map[string][]string, len(changes))
	for _, ch := range changes {
		drifted[ch.Attr] = ch.Want
	}
	if err := a.store.ModifyPSO(existing.DN, drifted); err != nil {
		return Result{Err: fmt.Errorf("updating password settings object: %w", err)}
	}
	a.rep.Record(posture.Success, fmt.Sprintf("reset %d drifted attributes on %q", len(changes), PSOName))
	return Result{Applied: true}
}

func (a *PasswordPolicy) Remove() Result {
	err := a.store.DeletePSO(PSOName)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		a.rep.Record(posture.Success, fmt.Sprintf("%q is not present; nothing to remove", PSOName))
		return Result{}
	case err != nil:
		return Result{Err: fmt.Errorf("removing password settings object: %w", err)}
	}
	a.rep.Record(posture.Success, fmt.Sprintf("removed %q", PSOName))
	return Result{Applied: true}
}
