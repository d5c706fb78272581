package directory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dabastion/directory/ldapfilter"
	"dabastion/snapshot"
)

const (
	domainAdminsGroup     = "Domain Admins"
	enterpriseAdminsGroup = "Enterprise Admins"

	// SERVER_TRUST_ACCOUNT marks domain-controller computer accounts
	uacServerTrustAccount = 8192
)

// GroupDN resolves a group's distinguished name by sAMAccountName.
func (s *Session) GroupDN(name string) (string, error) {
	entry, err := s.searchOne(
		s.baseDN,
		ldapfilter.And(
			ldapfilter.Eq("objectCategory", "group"),
			ldapfilter.Eq("sAMAccountName", name),
		).String(),
		[]string{"distinguishedName"},
	)
	if err != nil {
		return "", fmt.Errorf("resolving group %q: %w", name, err)
	}
	return entry.DN, nil
}

// PrivilegedGroupDN resolves the domain's highest-privilege group.
func (s *Session) PrivilegedGroupDN() (string, error) {
	return s.GroupDN(domainAdminsGroup)
}

// PrivilegedAccounts lists the user members of the privileged group with
// their allowed logon targets, ordered by account name.
func (s *Session) PrivilegedAccounts() ([]snapshot.PrivilegedAccount, error) {
	groupDN, err := s.PrivilegedGroupDN()
	if err != nil {
		return nil, err
	}

	entries, err := s.searchSubtree(
		s.baseDN,
		ldapfilter.And(
			ldapfilter.Eq("objectCategory", "person"),
			ldapfilter.Eq("objectClass", "user"),
			ldapfilter.Eq("memberOf", groupDN),
		).String(),
		[]string{"sAMAccountName", "userWorkstations"},
	)
	if err != nil {
		return nil, fmt.Errorf("listing privileged accounts: %w", err)
	}

	accounts := make([]snapshot.PrivilegedAccount, 0, len(entries))
	for _, entry := range entries {
		accounts = append(accounts, snapshot.PrivilegedAccount{
			SAMAccountName:    entry.GetAttributeValue("sAMAccountName"),
			LogonWorkstations: splitWorkstations(entry.GetAttributeValue("userWorkstations")),
		})
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].SAMAccountName < accounts[j].SAMAccountName
	})
	return accounts, nil
}

// DomainControllers lists the short host names of every DC in the domain.
func (s *Session) DomainControllers() ([]string, error) {
	entries, err := s.searchSubtree(
		s.baseDN,
		ldapfilter.And(
			ldapfilter.Eq("objectCategory", "computer"),
			ldapfilter.Band("userAccountControl", uacServerTrustAccount),
		).String(),
		[]string{"name"},
	)
	if err != nil {
		return nil, fmt.Errorf("listing domain controllers: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name := entry.GetAttributeValue("name"); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// AdminGroupMembers lists the members of the built-in Administrators
// group and classifies each one: the RID-500 account by SID, protected
// group standing by SID (the groups themselves) or by direct membership.
func (s *Session) AdminGroupMembers() ([]snapshot.AdminGroupMember, error) {
	adminDN := "CN=Administrators,CN=Builtin," + s.baseDN

	daDN, err := s.GroupDN(domainAdminsGroup)
	if err != nil {
		return nil, err
	}
	// absent in child domains
	eaDN, err := s.GroupDN(enterpriseAdminsGroup)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	entries, err := s.searchSubtree(
		s.baseDN,
		ldapfilter.Eq("memberOf", adminDN).String(),
		[]string{"sAMAccountName", "objectSid", "memberOf"},
	)
	if err != nil {
		return nil, fmt.Errorf("listing built-in administrators: %w", err)
	}

	members := make([]snapshot.AdminGroupMember, 0, len(entries))
	for _, entry := range entries {
		member := snapshot.AdminGroupMember{
			SAMAccountName: entry.GetAttributeValue("sAMAccountName"),
		}
		if sid, err := sidString(entry.GetRawAttributeValue("objectSid")); err == nil {
			member.BuiltinAdministrator = sidHasRID(sid, ridAdministrator)
			member.ProtectedGroupMember = sidHasRID(sid, ridDomainAdmins) || sidHasRID(sid, ridEnterpriseAdmins)
		}
		if !member.ProtectedGroupMember {
			for _, groupDN := range entry.GetAttributeValues("memberOf") {
				if strings.EqualFold(groupDN, daDN) || (eaDN != "" && strings.EqualFold(groupDN, eaDN)) {
					member.ProtectedGroupMember = true
					break
				}
			}
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].SAMAccountName < members[j].SAMAccountName
	})
	return members, nil
}

// AccountMemberOf returns the group DNs an account is a direct member of.
func (s *Session) AccountMemberOf(sam string) ([]string, error) {
	entry, err := s.searchOne(
		s.baseDN,
		ldapfilter.And(
			ldapfilter.Eq("objectClass", "user"),
			ldapfilter.Eq("sAMAccountName", sam),
		).String(),
		[]string{"memberOf"},
	)
	if err != nil {
		return nil, fmt.Errorf("resolving account %q: %w", sam, err)
	}
	return entry.GetAttributeValues("memberOf"), nil
}

// SetLogonWorkstations replaces an account's allowed logon targets. The
// directory stores the list as one comma-separated value.
func (s *Session) SetLogonWorkstations(sam string, hosts []string) error {
	entry, err := s.searchOne(
		s.baseDN,
		ldapfilter.And(
			ldapfilter.Eq("objectClass", "user"),
			ldapfilter.Eq("sAMAccountName", sam),
		).String(),
		[]string{"distinguishedName"},
	)
	if err != nil {
		return fmt.Errorf("resolving account %q: %w", sam, err)
	}

	if err := s.modifyReplace(entry.DN, "userWorkstations", []string{strings.Join(hosts, ",")}); err != nil {
		return fmt.Errorf("setting logon workstations for %s: %w", sam, err)
	}
	return nil
}

// splitWorkstations parses the comma-separated userWorkstations value.
func splitWorkstations(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
