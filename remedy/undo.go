package remedy

import (
	"fmt"

	"dabastion/posture"
	"dabastion/report"
)

// Undoer removes the objects remediation creates. Objects that are
// already gone count as removed, so undoing twice is a no-op.
type Undoer struct {
	catalog *Catalog
	rep     report.Reporter
}

func NewUndoer(catalog *Catalog, rep report.Reporter) *Undoer {
	return &Undoer{catalog: catalog, rep: rep}
}

// Undo removes the password policy and the lockdown policy object, and
// reports the logon restriction as not revertible. Credential caching
// shares the lockdown object, so one removal covers both settings.
func (u *Undoer) Undo() error {
	steps := []Action{
		u.catalog.PasswordPolicy,
		u.catalog.LogonRestriction,
		u.catalog.Lockdown,
	}
	var failed int
	for _, action := range steps {
		if res := action.Remove(); res.Err != nil {
			failed++
			u.rep.Record(posture.Error, fmt.Sprintf("%s undo failed: %v", action.ID(), res.Err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d undo steps failed", failed)
	}
	u.rep.Record(posture.Success, "undo finished")
	return nil
}
