package posture

import (
	"fmt"
	"sort"
	"strings"

	"dabastion/snapshot"
)

// Evaluate grades a snapshot against the fixed rule set. It is
// deterministic and total: the same checks fire in the same order for
// every snapshot, exactly one finding per check, and no snapshot value
// can make it fail.
func Evaluate(snap *snapshot.DomainSnapshot) []Finding {
	return []Finding{
		checkPrivilegedCount(snap),
		checkPasswordHistory(snap),
		checkLockoutThreshold(snap),
		checkComplexity(snap),
		checkPasswordLength(snap),
		checkLogonRestriction(snap),
		checkNullSessions(snap),
		checkAnonymousSID(snap),
		checkAdminMembership(snap),
	}
}

func checkPrivilegedCount(snap *snapshot.DomainSnapshot) Finding {
	n := len(snap.PrivilegedAccounts)
	switch {
	case n < 2:
		return Finding{CheckPrivilegedCount, Warning,
			fmt.Sprintf("privileged group has %d member(s); fewer than 2 leaves no fallback administrator", n)}
	case n > 10:
		return Finding{CheckPrivilegedCount, Warning,
			fmt.Sprintf("privileged group has %d members; more than 10 suggests overprovisioned membership", n)}
	default:
		return Finding{CheckPrivilegedCount, Success,
			fmt.Sprintf("privileged group has %d members", n)}
	}
}

func checkPasswordHistory(snap *snapshot.DomainSnapshot) Finding {
	history := snap.PasswordHistorySize
	switch {
	case history < snap.LockoutThreshold:
		return Finding{CheckPasswordHistory, Warning,
			fmt.Sprintf("password history (%d) is smaller than the lockout threshold (%d)", history, snap.LockoutThreshold)}
	case history < 10:
		return Finding{CheckPasswordHistory, Warning,
			fmt.Sprintf("password history is %d; fewer than 10 remembered passwords permits rapid reuse", history)}
	default:
		return Finding{CheckPasswordHistory, Success,
			fmt.Sprintf("password history is %d", history)}
	}
}

func checkLockoutThreshold(snap *snapshot.DomainSnapshot) Finding {
	t := snap.LockoutThreshold
	switch {
	case t == 0:
		return Finding{CheckLockoutThreshold, Error,
			"account lockout is disabled; password guessing is unthrottled"}
	case t > 10:
		return Finding{CheckLockoutThreshold, Warning,
			fmt.Sprintf("lockout threshold is %d; more than 10 attempts before lockout is generous to a guesser", t)}
	default:
		return Finding{CheckLockoutThreshold, Success,
			fmt.Sprintf("lockout threshold is %d", t)}
	}
}

func checkComplexity(snap *snapshot.DomainSnapshot) Finding {
	if snap.ComplexityEnabled {
		return Finding{CheckComplexity, Success, "password complexity is enforced"}
	}
	return Finding{CheckComplexity, Warning, "password complexity is not enforced"}
}

func checkPasswordLength(snap *snapshot.DomainSnapshot) Finding {
	n := snap.MinPasswordLength
	switch {
	case n < 9:
		return Finding{CheckPasswordLength, Error,
			fmt.Sprintf("minimum password length is %d; under 9 characters is crackable offline in short order", n)}
	case n < 12:
		return Finding{CheckPasswordLength, Warning,
			fmt.Sprintf("minimum password length is %d; 12 or more is the expected floor for privileged accounts", n)}
	default:
		return Finding{CheckPasswordLength, Success,
			fmt.Sprintf("minimum password length is %d", n)}
	}
}

func checkLogonRestriction(snap *snapshot.DomainSnapshot) Finding {
	dcSet := hostSet(snap.DomainControllers)
	var offenders []string
	for _, acct := range snap.PrivilegedAccounts {
		if len(acct.LogonWorkstations) == 0 || !hostSetsEqual(hostSet(acct.LogonWorkstations), dcSet) {
			offenders = append(offenders, acct.SAMAccountName)
		}
	}
	if len(offenders) > 0 {
		return Finding{CheckLogonRestriction, Error,
			"privileged accounts not restricted to domain-controller logons: " + strings.Join(offenders, ", ")}
	}
	return Finding{CheckLogonRestriction, Success,
		"all privileged accounts are restricted to domain-controller logons"}
}

func checkNullSessions(snap *snapshot.DomainSnapshot) Finding {
	switch snap.NullSessionsRestricted {
	case snapshot.SettingOn:
		return Finding{CheckNullSessions, Success,
			"anonymous access to named pipes and shares is restricted"}
	case snapshot.SettingOff:
		return Finding{CheckNullSessions, Error,
			"anonymous access to named pipes and shares is not restricted"}
	default:
		return Finding{CheckNullSessions, Error,
			"null-session restriction is not present in the resultant policy"}
	}
}

func checkAnonymousSID(snap *snapshot.DomainSnapshot) Finding {
	switch snap.AnonymousSIDLookup {
	case snapshot.SettingOff:
		return Finding{CheckAnonymousSID, Success,
			"anonymous SID/name translation is disabled"}
	case snapshot.SettingOn:
		return Finding{CheckAnonymousSID, Warning,
			"anonymous SID/name translation is enabled"}
	default:
		return Finding{CheckAnonymousSID, Warning,
			"anonymous SID/name translation setting is not present in the resultant policy"}
	}
}

func checkAdminMembership(snap *snapshot.DomainSnapshot) Finding {
	var offenders []string
	for _, m := range snap.AdminGroupMembers {
		if !m.BuiltinAdministrator && !m.ProtectedGroupMember {
			offenders = append(offenders, m.SAMAccountName)
		}
	}
	if len(offenders) > 0 {
		return Finding{CheckAdminMembership, Warning,
			"built-in Administrators contains members outside the protected groups: " + strings.Join(offenders, ", ")}
	}
	return Finding{CheckAdminMembership, Success,
		"built-in Administrators membership is limited to protected accounts"}
}

// hostSet normalizes host names to lowercase short names. Logon targets
// and DC names may arrive as FQDNs; equality is decided on the first
// label only.
func hostSet(hosts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if i := strings.IndexByte(h, '.'); i >= 0 {
			h = h[:i]
		}
		set[strings.ToLower(h)] = struct{}{}
	}
	return set
}

func hostSetsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for h := range a {
		if _, ok := b[h]; !ok {
			return false
		}
	}
	return true
}

// ShortHostNames returns the normalized, sorted short names for a host
// list. The logon-restriction remediation writes exactly this set.
func ShortHostNames(hosts []string) []string {
	set := hostSet(hosts)
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
