package remedy

import "dabastion/report"

// Catalog is the fixed set of hardening actions.
type Catalog struct {
	PasswordPolicy    *PasswordPolicy
	LogonRestriction  *LogonRestriction
	Lockdown          *Lockdown
	CredentialCaching *CredentialCaching
}

func NewCatalog(store PolicyStore, accounts Accounts, confirm Confirmer, rep report.Reporter) *Catalog {
	return &Catalog{
		PasswordPolicy:    NewPasswordPolicy(store, confirm, rep),
		LogonRestriction:  NewLogonRestriction(accounts, confirm, rep),
		Lockdown:          NewLockdown(store, confirm, rep),
		CredentialCaching: NewCredentialCaching(store, confirm, rep),
	}
}

// All returns the actions in apply order.
func (c *Catalog) All() []Action {
	return []Action{c.PasswordPolicy, c.LogonRestriction, c.Lockdown, c.CredentialCaching}
}
