package directory

import "strings"

// A gPLink value is a concatenation of [LDAP://<dn>;<flags>] parts in
// link order. Link order is precedence, so edits must preserve it.

func gplinkEntries(value string) []string {
	var entries []string
	for _, part := range strings.Split(value, "]") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "[")
		if part != "" {
			entries = append(entries, part)
		}
	}
	return entries
}

func gplinkDN(entry string) string {
	dn := strings.TrimPrefix(entry, "LDAP://")
	if i := strings.LastIndexByte(dn, ';'); i >= 0 {
		dn = dn[:i]
	}
	return dn
}

func gplinkContains(value, gpoDN string) bool {
	for _, entry := range gplinkEntries(value) {
		if strings.EqualFold(gplinkDN(entry), gpoDN) {
			return true
		}
	}
	return false
}

// gplinkRemove drops the entry for gpoDN and reports whether it was
// present. The remaining entries keep their order.
func gplinkRemove(value, gpoDN string) (string, bool) {
	var kept []string
	found := false
	for _, entry := range gplinkEntries(value) {
		if strings.EqualFold(gplinkDN(entry), gpoDN) {
			found = true
			continue
		}
		kept = append(kept, "["+entry+"]")
	}
	return strings.Join(kept, ""), found
}
