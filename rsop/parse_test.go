package rsop_test

import (
	"encoding/binary"
	"strings"
	"testing"
	"unicode/utf16"

	"dabastion/rsop"
)

const securityExport = `<?xml version="1.0" encoding="utf-8"?>
<Rsop xmlns="http://www.microsoft.com/GroupPolicy/Rsop" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <ComputerResults>
    <ExtensionData>
      <Extension xmlns:q1="http://www.microsoft.com/GroupPolicy/Settings/Security" xsi:type="q1:SecuritySettings">
        <q1:Account>
          <q1:GPO><q1:Identifier>{31B2F340-016D-11D2-945F-00C04FB984F9}</q1:Identifier></q1:GPO>
          <q1:Name>LockoutBadCount</q1:Name>
          <q1:SettingNumber>5</q1:SettingNumber>
          <q1:Type>Account Lockout</q1:Type>
        </q1:Account>
        <q1:Account>
          <q1:Name>MinimumPasswordLength</q1:Name>
          <q1:SettingNumber>7</q1:SettingNumber>
          <q1:Type>Password</q1:Type>
        </q1:Account>
        <q1:Account>
          <q1:Name>PasswordHistorySize</q1:Name>
          <q1:SettingNumber>24</q1:SettingNumber>
          <q1:Type>Password</q1:Type>
        </q1:Account>
        <q1:Account>
          <q1:Name>MinimumPasswordAge</q1:Name>
          <q1:SettingNumber>1</q1:SettingNumber>
          <q1:Type>Password</q1:Type>
        </q1:Account>
        <q1:Account>
          <q1:Name>PasswordComplexity</q1:Name>
          <q1:SettingBoolean>true</q1:SettingBoolean>
          <q1:Type>Password</q1:Type>
        </q1:Account>
        <q1:SecurityOptions>
          <q1:KeyName>MACHINE\System\CurrentControlSet\Services\LanManServer\Parameters\RestrictNullSessAccess</q1:KeyName>
          <q1:SettingNumber>1</q1:SettingNumber>
        </q1:SecurityOptions>
        <q1:SecurityOptions>
          <q1:KeyName>MACHINE\Software\Microsoft\Windows NT\CurrentVersion\Winlogon\CachedLogonsCount</q1:KeyName>
          <q1:SettingString>"10"</q1:SettingString>
        </q1:SecurityOptions>
        <q1:SecurityOptions>
          <q1:SystemAccessPolicyName>LSAAnonymousNameLookup</q1:SystemAccessPolicyName>
          <q1:SettingNumber>0</q1:SettingNumber>
        </q1:SecurityOptions>
      </Extension>
      <Extension xmlns:q2="http://www.microsoft.com/GroupPolicy/Settings/Registry" xsi:type="q2:RegistrySettings">
        <q2:Policy><q2:Name>Unrelated</q2:Name></q2:Policy>
      </Extension>
    </ExtensionData>
  </ComputerResults>
</Rsop>`

func TestParse_AccountPolicy(t *testing.T) {
	doc, err := rsop.Parse([]byte(securityExport))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	type testCase struct {
		name string
		want int
	}

	tests := []testCase{
		{"LockoutBadCount", 5},
		{"MinimumPasswordLength", 7},
		{"PasswordHistorySize", 24},
		{"MinimumPasswordAge", 1},
	}

	for _, test := range tests {
		got, ok := doc.AccountNumber(test.name)
		if !ok {
			t.Errorf("AccountNumber(%q) not found", test.name)
			continue
		}
		if got != test.want {
			t.Errorf("AccountNumber(%q) = %d, want %d", test.name, got, test.want)
		}
	}

	complexity, ok := doc.AccountBool("PasswordComplexity")
	if !ok || !complexity {
		t.Errorf("AccountBool(PasswordComplexity) = %v, %v; want true, true", complexity, ok)
	}

	if _, ok := doc.AccountNumber("ClearTextPassword"); ok {
		t.Error("AccountNumber(ClearTextPassword) found, want not present")
	}
}

func TestParse_SecurityOptions(t *testing.T) {
	doc, err := rsop.Parse([]byte(securityExport))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if n, ok := doc.RegistryNumber("RestrictNullSessAccess"); !ok || n != 1 {
		t.Errorf("RegistryNumber(RestrictNullSessAccess) = %d, %v; want 1, true", n, ok)
	}
	// string-typed registry value holding a quoted number
	if n, ok := doc.RegistryNumber("CachedLogonsCount"); !ok || n != 10 {
		t.Errorf("RegistryNumber(CachedLogonsCount) = %d, %v; want 10, true", n, ok)
	}
	if n, ok := doc.SystemAccessNumber("LSAAnonymousNameLookup"); !ok || n != 0 {
		t.Errorf("SystemAccessNumber(LSAAnonymousNameLookup) = %d, %v; want 0, true", n, ok)
	}
	if _, ok := doc.RegistryNumber("RestrictAnonymousSAM"); ok {
		t.Error("RegistryNumber(RestrictAnonymousSAM) found, want not present")
	}
}

func TestParse_MalformedValuesDegrade(t *testing.T) {
	const export = `<Rsop><ComputerResults><ExtensionData><Extension>
		<Account><Name>LockoutBadCount</Name><SettingNumber>five</SettingNumber></Account>
		<Account><Name>PasswordComplexity</Name><SettingBoolean>yes</SettingBoolean></Account>
		<SecurityOptions><KeyName>MACHINE\Path\Value</KeyName><SettingString>text</SettingString></SecurityOptions>
	</Extension></ExtensionData></ComputerResults></Rsop>`

	doc, err := rsop.Parse([]byte(export))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := doc.AccountNumber("LockoutBadCount"); ok {
		t.Error("unparseable SettingNumber reported as present")
	}
	if _, ok := doc.AccountBool("PasswordComplexity"); ok {
		t.Error("unparseable SettingBoolean reported as present")
	}
	if _, ok := doc.RegistryNumber("Value"); ok {
		t.Error("non-numeric SettingString reported as present")
	}
}

func TestParse_UTF16Export(t *testing.T) {
	// a real export declares utf-16 in the prolog
	declared := strings.Replace(securityExport, `encoding="utf-8"`, `encoding="utf-16"`, 1)
	utf16Doc := encodeUTF16LE(declared)

	doc, err := rsop.Parse(utf16Doc)
	if err != nil {
		t.Fatalf("Parse of UTF-16 document failed: %v", err)
	}
	if n, ok := doc.AccountNumber("LockoutBadCount"); !ok || n != 5 {
		t.Errorf("AccountNumber(LockoutBadCount) = %d, %v; want 5, true", n, ok)
	}
}

func TestParse_NotXML(t *testing.T) {
	if _, err := rsop.Parse([]byte("not an export")); err == nil {
		t.Error("expected an error for a non-XML document")
	}
}

func encodeUTF16LE(s string) []byte {
	codes := utf16.Encode([]rune(s))
	out := make([]byte, 2, 2+len(codes)*2)
	out[0], out[1] = 0xFF, 0xFE
	for _, c := range codes {
		var pair [2]byte
		binary.LittleEndian.PutUint16(pair[:], c)
		out = append(out, pair[0], pair[1])
	}
	return out
}
