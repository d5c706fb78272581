package directory

import "github.com/go-ldap/ldap/v3"

// sdFlagsControl builds the LDAP_SERVER_SD_FLAGS_OID extended control so
// searches return nTSecurityDescriptor without needing special rights on
// the SACL.
func sdFlagsControl() ldap.Control {
	// BER-encoded sequence for SD flags = 7 (owner, group, DACL)
	// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-adts/3c5e87db-4728-4f29-b164-01dd7d7391ea
	value := []byte{0x30, 0x03, 0x02, 0x01, 0x07}

	return ldap.NewControlString("1.2.840.113556.1.4.801", true, string(value))
}

// treeDeleteControl builds the LDAP_SERVER_TREE_DELETE_OID control, which
// deletes a container together with its children in one operation.
func treeDeleteControl() ldap.Control {
	return ldap.NewControlString("1.2.840.113556.1.4.805", true, "")
}
