// Package prereq gates a run on the conditions everything else assumes:
// the connected host is a domain controller for the configured domain,
// and the bind account is a member of the privileged group.
package prereq

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrPrerequisite marks a failed gate. The caller stops the run; the
// wrapped message says which condition failed.
var ErrPrerequisite = errors.New("prerequisite not met")

// Session is the slice of directory access the gates need.
type Session interface {
	RootDSE(attrs ...string) (*ldap.Entry, error)
	BaseDN() string
	AuthzID() string
	PrivilegedGroupDN() (string, error)
	AccountMemberOf(sam string) ([]string, error)
}

// Check runs the gates in order and returns the first failure.
func Check(sess Session) error {
	root, err := sess.RootDSE("defaultNamingContext", "dsServiceName")
	if err != nil {
		return fmt.Errorf("%w: reading rootDSE: %w", ErrPrerequisite, err)
	}

	namingContext := root.GetAttributeValue("defaultNamingContext")
	if !strings.EqualFold(namingContext, sess.BaseDN()) {
		return fmt.Errorf("%w: configured base %s does not match the host's naming context %s",
			ErrPrerequisite, sess.BaseDN(), namingContext)
	}

	// only domain controllers expose an NTDS settings reference
	if root.GetAttributeValue("dsServiceName") == "" {
		return fmt.Errorf("%w: the connected host is not a domain controller", ErrPrerequisite)
	}

	sam, err := samFromAuthzID(sess.AuthzID())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrerequisite, err)
	}
	groupDN, err := sess.PrivilegedGroupDN()
	if err != nil {
		return fmt.Errorf("%w: resolving privileged group: %w", ErrPrerequisite, err)
	}
	groups, err := sess.AccountMemberOf(sam)
	if err != nil {
		return fmt.Errorf("%w: reading group membership of %s: %w", ErrPrerequisite, sam, err)
	}
	for _, dn := range groups {
		if strings.EqualFold(dn, groupDN) {
			return nil
		}
	}
	return fmt.Errorf("%w: bind account %s is not a member of %s", ErrPrerequisite, sam, groupDN)
}

// samFromAuthzID extracts the account name from a WhoAmI authorization
// identity of the form "u:DOMAIN\name".
func samFromAuthzID(authzID string) (string, error) {
	id, ok := strings.CutPrefix(authzID, "u:")
	if !ok {
		return "", fmt.Errorf("unexpected authorization identity %q", authzID)
	}
	if i := strings.LastIndexByte(id, '\\'); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		return "", fmt.Errorf("unexpected authorization identity %q", authzID)
	}
	return id, nil
}
