package directory

import (
	"strings"
	"testing"
	"time"
)

func TestPSOParamsAttributes(t *testing.T) {
	params := PSOParams{
		Precedence:        10,
		MinPasswordLength: 12,
		ComplexityEnabled: true,
		HistoryLength:     10,
		LockoutThreshold:  5,
		ObservationWindow: 24 * time.Hour,
		LockoutForever:    true,
		MinPasswordAge:    3 * 24 * time.Hour,
		MaxPasswordAge:    30 * 24 * time.Hour,
	}
	attrs := params.Attributes()

	want := map[string]string{
		"msDS-PasswordSettingsPrecedence":          "10",
		"msDS-PasswordReversibleEncryptionEnabled": "FALSE",
		"msDS-PasswordHistoryLength":               "10",
		"msDS-PasswordComplexityEnabled":           "TRUE",
		"msDS-MinimumPasswordLength":               "12",
		"msDS-MinimumPasswordAge":                  "-2592000000000",
		"msDS-MaximumPasswordAge":                  "-25920000000000",
		"msDS-LockoutThreshold":                    "5",
		"msDS-LockoutObservationWindow":            "-864000000000",
		"msDS-LockoutDuration":                     "-9223372036854775808",
	}
	for name, wantValue := range want {
		got, ok := attrs[name]
		if !ok {
			t.Errorf("missing attribute %s", name)
			continue
		}
		if len(got) != 1 || got[0] != wantValue {
			t.Errorf("%s = %v, want [%s]", name, got, wantValue)
		}
	}
	if len(attrs) != len(want) {
		t.Errorf("rendered %d attributes, want %d", len(attrs), len(want))
	}
	for _, name := range psoManagedAttrs {
		if _, ok := attrs[name]; !ok {
			t.Errorf("managed attribute %s not rendered", name)
		}
	}
}

func TestPSOParamsAttributes_FiniteLockoutDuration(t *testing.T) {
	attrs := PSOParams{LockoutDuration: 30 * time.Minute}.Attributes()
	if got := attrs["msDS-LockoutDuration"][0]; got != "-18000000000" {
		t.Errorf("msDS-LockoutDuration = %s, want -18000000000", got)
	}
}

func TestGplink(t *testing.T) {
	dcPolicy := "CN={31B2F340-016D-11D2-945F-00C04FB984F9},CN=Policies,CN=System,DC=corp,DC=example"
	ourPolicy := "CN={6AC1786C-016F-11D2-945F-00C04FB984F9},CN=Policies,CN=System,DC=corp,DC=example"
	value := "[LDAP://" + dcPolicy + ";0][LDAP://" + ourPolicy + ";0]"

	if !gplinkContains(value, ourPolicy) {
		t.Error("gplinkContains missed a linked policy")
	}
	if !gplinkContains(value, strings.ToLower(ourPolicy)) {
		t.Error("gplinkContains should match case-insensitively")
	}
	if gplinkContains(value, "CN={DEAD},CN=Policies,CN=System,DC=corp,DC=example") {
		t.Error("gplinkContains matched an unlinked policy")
	}

	remaining, found := gplinkRemove(value, ourPolicy)
	if !found {
		t.Fatal("gplinkRemove did not find the linked policy")
	}
	if want := "[LDAP://" + dcPolicy + ";0]"; remaining != want {
		t.Errorf("gplinkRemove left %q, want %q", remaining, want)
	}

	remaining, found = gplinkRemove(remaining, dcPolicy)
	if !found || remaining != "" {
		t.Errorf("removing the last link left %q (found=%v), want empty", remaining, found)
	}

	if _, found := gplinkRemove("", ourPolicy); found {
		t.Error("gplinkRemove found a link in an empty value")
	}
}

func TestDNSDomainName(t *testing.T) {
	tests := []struct {
		baseDN string
		want   string
	}{
		{"DC=corp,DC=example", "corp.example"},
		{"dc=sub,dc=corp,dc=example", "sub.corp.example"},
		{"OU=Ignored,DC=corp,DC=example", "corp.example"},
	}
	for _, tc := range tests {
		s := NewSession("dc01.corp.example", tc.baseDN)
		if got := s.dnsDomainName(); got != tc.want {
			t.Errorf("dnsDomainName(%s) = %s, want %s", tc.baseDN, got, tc.want)
		}
	}
}
