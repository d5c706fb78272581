package remedy

import (
	"errors"
	"fmt"

	"dabastion/directory"
	"dabastion/posture"
	"dabastion/report"
)

// Registry locations under HKLM managed through the lockdown policy.
const (
	lanmanParametersKey = `System\CurrentControlSet\Services\LanManServer\Parameters`
	lsaKey              = `System\CurrentControlSet\Control\Lsa`
	winlogonKey         = `Software\Microsoft\Windows NT\CurrentVersion\Winlogon`
)

// ensureLockdownGPO finds the shared lockdown policy object or creates
// and links it. Both lockdown actions write into this one object.
func ensureLockdownGPO(store PolicyStore, rep report.Reporter) (gpo *directory.GPOInfo, created bool, err error) {
	gpo, err = store.FindGPOByName(GPODisplayName)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		gpo, err = store.CreateGPO(GPODisplayName)
		if err != nil {
			return nil, false, fmt.Errorf("creating %q: %w", GPODisplayName, err)
		}
		rep.Record(posture.Success, fmt.Sprintf("created %q and linked it to the domain controllers", GPODisplayName))
		return gpo, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("looking up %q: %w", GPODisplayName, err)
	}
	return gpo, false, nil
}

// removeLockdownGPO deletes the shared lockdown policy object. Both
// lockdown actions undo through it, and the second caller finds nothing
// left to do.
func removeLockdownGPO(store PolicyStore, rep report.Reporter) Result {
	err := store.DeleteGPOByName(GPODisplayName)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		rep.Record(posture.Success, fmt.Sprintf("%q is not present; nothing to remove", GPODisplayName))
		return Result{}
	case err != nil:
		return Result{Err: fmt.Errorf("removing %q: %w", GPODisplayName, err)}
	}
	rep.Record(posture.Success, fmt.Sprintf("removed %q", GPODisplayName))
	return Result{Applied: true}
}

// Lockdown restricts the domain controllers' anonymous session surface:
// null session access to the server service and anonymous SAM
// enumeration.
type Lockdown struct {
	store   PolicyStore
	confirm Confirmer
	rep     report.Reporter
}

func NewLockdown(store PolicyStore, confirm Confirmer, rep report.Reporter) *Lockdown {
	return &Lockdown{store: store, confirm: confirm, rep: rep}
}

func (a *Lockdown) ID() string { return ActionLockdown }

func (a *Lockdown) Title() string {
	return "Restrict null session and anonymous SAM access on the domain controllers"
}

func (a *Lockdown) Ensure(confirm bool) Result {
	if confirm && !a.confirm.Confirm(a.Title() + "?") {
		a.rep.Record(posture.Warning, "skipped: "+a.Title())
		return Result{Skipped: true}
	}

	gpo, applied, err := ensureLockdownGPO(a.store, a.rep)
	if err != nil {
		return Result{Err: err}
	}
	for _, entry := range []directory.PolEntry{
		directory.DWORDEntry(lanmanParametersKey, "RestrictNullSessAccess", 1),
		directory.DWORDEntry(lsaKey, "RestrictAnonymousSAM", 1),
	} {
		changed, err := a.store.SetGPOSetting(gpo, entry)
		if err != nil {
			return Result{Err: fmt.Errorf("setting %s: %w", entry.Value, err)}
		}
		applied = applied || changed
	}

	if applied {
		a.rep.Record(posture.Success, "null session and anonymous SAM access are now restricted by policy")
		return Result{Applied: true}
	}
	a.rep.Record(posture.Success, "null session restrictions are already in place")
	return Result{}
}

func (a *Lockdown) Remove() Result {
	return removeLockdownGPO(a.store, a.rep)
}

// CredentialCaching turns cached domain logons off on the domain
// controllers. The value rides in the shared lockdown policy object, so
// removing either action's artifact removes both settings.
type CredentialCaching struct {
	store   PolicyStore
	confirm Confirmer
	rep     report.Reporter
}

func NewCredentialCaching(store PolicyStore, confirm Confirmer, rep report.Reporter) *CredentialCaching {
	return &CredentialCaching{store: store, confirm: confirm, rep: rep}
}

func (a *CredentialCaching) ID() string { return ActionCredentialCaching }

func (a *CredentialCaching) Title() string {
	return "Disable cached domain credentials on the domain controllers"
}

func (a *CredentialCaching) Ensure(confirm bool) Result {
	if confirm && !a.confirm.Confirm(a.Title() + "?") {
		a.rep.Record(posture.Warning, "skipped: "+a.Title())
		return Result{Skipped: true}
	}

	gpo, applied, err := ensureLockdownGPO(a.store, a.rep)
	if err != nil {
		return Result{Err: err}
	}
	changed, err := a.store.SetGPOSetting(gpo, directory.SZEntry(winlogonKey, "CachedLogonsCount", "0"))
	if err != nil {
		return Result{Err: fmt.Errorf("setting CachedLogonsCount: %w", err)}
	}
	applied = applied || changed

	if applied {
		a.rep.Record(posture.Success, "cached domain credentials are now disabled by policy")
		return Result{Applied: true}
	}
	a.rep.Record(posture.Success, "credential caching is already disabled")
	return Result{}
}

func (a *CredentialCaching) Remove() Result {
	return removeLockdownGPO(a.store, a.rep)
}
