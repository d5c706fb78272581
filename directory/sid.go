package directory

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// sidString formats a binary objectSid value as an S-1-... string.
func sidString(sidBytes []byte) (string, error) {
	// Minimum SID length is 8 bytes: revision (1), sub-authority count (1), authority (6)
	if len(sidBytes) < 8 {
		return "", fmt.Errorf("invalid SID: too short")
	}

	revision := sidBytes[0]
	subAuthorityCount := int(sidBytes[1])

	// authority is a 6-byte big-endian integer
	authority := binary.BigEndian.Uint64(append([]byte{0, 0}, sidBytes[2:8]...))

	expectedLength := 8 + (subAuthorityCount * 4)
	if len(sidBytes) < expectedLength {
		return "", fmt.Errorf("invalid SID: insufficient length for sub-authorities")
	}

	var sidBuffer bytes.Buffer
	sidBuffer.WriteString(fmt.Sprintf("S-%d-%d", revision, authority))
	offset := 8
	for i := 0; i < subAuthorityCount; i++ {
		subAuthority := binary.LittleEndian.Uint32(sidBytes[offset : offset+4])
		sidBuffer.WriteString(fmt.Sprintf("-%d", subAuthority))
		offset += 4
	}

	return sidBuffer.String(), nil
}

// sidHasRID reports whether a string SID ends in the given relative ID.
func sidHasRID(sid string, rid uint32) bool {
	return strings.HasSuffix(sid, fmt.Sprintf("-%d", rid))
}

// well-known RIDs graded by the admin-membership classification
const (
	ridAdministrator    = 500
	ridDomainAdmins     = 512
	ridEnterpriseAdmins = 519
)
