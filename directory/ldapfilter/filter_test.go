package ldapfilter_test

import (
	"testing"

	"dabastion/directory/ldapfilter"
)

func TestFilterComposition(t *testing.T) {
	type testCase struct {
		name   string
		filter ldapfilter.Filter
		want   string
	}

	tests := []testCase{
		{
			"eq",
			ldapfilter.Eq("objectCategory", "group"),
			"(objectCategory=group)",
		},
		{
			"eq escapes special characters",
			ldapfilter.Eq("cn", "ops (tier0)"),
			"(cn=ops \\28tier0\\29)",
		},
		{
			"present",
			ldapfilter.Present("userWorkstations"),
			"(userWorkstations=*)",
		},
		{
			"and",
			ldapfilter.And(
				ldapfilter.Eq("objectCategory", "person"),
				ldapfilter.Eq("objectClass", "user"),
			),
			"(&(objectCategory=person)(objectClass=user))",
		},
		{
			"or with not",
			ldapfilter.Or(
				ldapfilter.Eq("cn", "a"),
				ldapfilter.Not(ldapfilter.Eq("cn", "b")),
			),
			"(|(cn=a)(!(cn=b)))",
		},
		{
			"ge",
			ldapfilter.Ge("msDS-PasswordSettingsPrecedence", 1),
			"(msDS-PasswordSettingsPrecedence>=1)",
		},
		{
			"bitwise and",
			ldapfilter.Band("userAccountControl", 8192),
			"(userAccountControl:1.2.840.113556.1.4.803:=8192)",
		},
		{
			"nested",
			ldapfilter.And(
				ldapfilter.Eq("objectCategory", "computer"),
				ldapfilter.Band("userAccountControl", 8192),
			),
			"(&(objectCategory=computer)(userAccountControl:1.2.840.113556.1.4.803:=8192))",
		},
	}

	for _, test := range tests {
		if got := test.filter.String(); got != test.want {
			t.Errorf("%s: got %q, want %q", test.name, got, test.want)
		}
	}
}
