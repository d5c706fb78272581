package remedy

import (
	"fmt"

	"dabastion/posture"
	"dabastion/report"
)

// refreshNotice closes every remediation run. Policy-backed changes
// only land once the controllers refresh group policy.
const refreshNotice = "Changes take effect after the next policy refresh on each domain controller; run gpupdate /force there to apply them immediately."

// Controller runs the action catalog for the two remediation modes.
type Controller struct {
	catalog *Catalog
	confirm Confirmer
	rep     report.Reporter
}

func NewController(catalog *Catalog, confirm Confirmer, rep report.Reporter) *Controller {
	return &Controller{catalog: catalog, confirm: confirm, rep: rep}
}

// Remediate walks every action, asking the operator before each one.
func (c *Controller) Remediate() error {
	return c.run(true)
}

// DeathBlossom asks once up front, then applies every action without
// further prompts.
func (c *Controller) DeathBlossom() error {
	if !c.confirm.Confirm("Apply ALL hardening actions without further prompts") {
		c.rep.Record(posture.Warning, "aborted: no actions were applied")
		return nil
	}
	return c.run(false)
}

func (c *Controller) run(interactive bool) error {
	actions := c.catalog.All()
	var applied, skipped, failed int
	for _, action := range actions {
		res := action.Ensure(interactive)
		switch {
		case res.Err != nil:
			failed++
			c.rep.Record(posture.Error, fmt.Sprintf("%s failed: %v", action.ID(), res.Err))
		case res.Skipped:
			skipped++
		case res.Applied:
			applied++
		}
	}
	unchanged := len(actions) - applied - skipped - failed

	c.rep.Record(posture.Success, fmt.Sprintf(
		"remediation finished: %d applied, %d already in place, %d skipped, %d failed",
		applied, unchanged, skipped, failed))
	c.rep.Record(posture.Success, refreshNotice)

	if failed > 0 {
		return fmt.Errorf("%d of %d actions failed", failed, len(actions))
	}
	return nil
}
