package posture_test

import (
	"reflect"
	"strings"
	"testing"

	"dabastion/posture"
	"dabastion/snapshot"
)

// healthySnapshot returns a snapshot every check grades Success.
func healthySnapshot() *snapshot.DomainSnapshot {
	return &snapshot.DomainSnapshot{
		MinPasswordAge:         3,
		LockoutThreshold:       5,
		MinPasswordLength:      12,
		ComplexityEnabled:      true,
		PasswordHistorySize:    10,
		NullSessionsRestricted: snapshot.SettingOn,
		AnonymousSIDLookup:     snapshot.SettingOff,
		PrivilegedAccounts: []snapshot.PrivilegedAccount{
			{SAMAccountName: "da1", LogonWorkstations: []string{"dc01", "dc02"}},
			{SAMAccountName: "da2", LogonWorkstations: []string{"DC02.corp.example", "dc01"}},
			{SAMAccountName: "da3", LogonWorkstations: []string{"dc01", "dc02"}},
		},
		DomainControllers: []string{"DC01", "dc02.corp.example"},
		AdminGroupMembers: []snapshot.AdminGroupMember{
			{SAMAccountName: "Administrator", BuiltinAdministrator: true},
			{SAMAccountName: "Domain Admins", ProtectedGroupMember: true},
		},
	}
}

var checkOrder = []string{
	posture.CheckPrivilegedCount,
	posture.CheckPasswordHistory,
	posture.CheckLockoutThreshold,
	posture.CheckComplexity,
	posture.CheckPasswordLength,
	posture.CheckLogonRestriction,
	posture.CheckNullSessions,
	posture.CheckAnonymousSID,
	posture.CheckAdminMembership,
}

func severities(findings []posture.Finding) map[string]posture.Severity {
	out := make(map[string]posture.Severity, len(findings))
	for _, f := range findings {
		out[f.Check] = f.Severity
	}
	return out
}

func TestEvaluate_OrderAndDeterminism(t *testing.T) {
	snap := healthySnapshot()

	first := posture.Evaluate(snap)
	second := posture.Evaluate(snap)

	if len(first) != len(checkOrder) {
		t.Fatalf("Evaluate returned %d findings, want %d", len(first), len(checkOrder))
	}
	for i, f := range first {
		if f.Check != checkOrder[i] {
			t.Errorf("finding %d is %q, want %q", i, f.Check, checkOrder[i])
		}
		if f.Message == "" {
			t.Errorf("finding %q has an empty message", f.Check)
		}
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two evaluations of the same snapshot differ")
	}
}

func TestEvaluate_AllSuccessOnHealthySnapshot(t *testing.T) {
	for _, f := range posture.Evaluate(healthySnapshot()) {
		if f.Severity != posture.Success {
			t.Errorf("%s: got %v (%s), want success", f.Check, f.Severity, f.Message)
		}
	}
}

func TestEvaluate_ZeroSnapshotIsTotal(t *testing.T) {
	findings := posture.Evaluate(&snapshot.DomainSnapshot{})
	if len(findings) != len(checkOrder) {
		t.Fatalf("Evaluate returned %d findings, want %d", len(findings), len(checkOrder))
	}
	sev := severities(findings)
	if sev[posture.CheckLockoutThreshold] != posture.Error {
		t.Errorf("lockout threshold on empty snapshot: got %v, want error", sev[posture.CheckLockoutThreshold])
	}
	if sev[posture.CheckNullSessions] != posture.Error {
		t.Errorf("null sessions on empty snapshot: got %v, want error", sev[posture.CheckNullSessions])
	}
	if sev[posture.CheckAnonymousSID] != posture.Warning {
		t.Errorf("anonymous SID on empty snapshot: got %v, want warning", sev[posture.CheckAnonymousSID])
	}
}

func TestEvaluate_PrivilegedCountThresholds(t *testing.T) {
	type testCase struct {
		count int
		want  posture.Severity
	}

	tests := []testCase{
		{0, posture.Warning},
		{1, posture.Warning},
		{2, posture.Success},
		{10, posture.Success},
		{11, posture.Warning},
	}

	for _, test := range tests {
		snap := healthySnapshot()
		snap.PrivilegedAccounts = nil
		for i := 0; i < test.count; i++ {
			snap.PrivilegedAccounts = append(snap.PrivilegedAccounts, snapshot.PrivilegedAccount{
				SAMAccountName:    "da",
				LogonWorkstations: []string{"dc01", "dc02"},
			})
		}
		got := severities(posture.Evaluate(snap))[posture.CheckPrivilegedCount]
		if got != test.want {
			t.Errorf("count=%d: got %v, want %v", test.count, got, test.want)
		}
	}
}

func TestEvaluate_LockoutThresholdBoundaries(t *testing.T) {
	type testCase struct {
		threshold int
		want      posture.Severity
	}

	tests := []testCase{
		{0, posture.Error},
		{1, posture.Success},
		{10, posture.Success},
		{11, posture.Warning},
	}

	for _, test := range tests {
		snap := healthySnapshot()
		snap.LockoutThreshold = test.threshold
		got := severities(posture.Evaluate(snap))[posture.CheckLockoutThreshold]
		if got != test.want {
			t.Errorf("threshold=%d: got %v, want %v", test.threshold, got, test.want)
		}
	}
}

func TestEvaluate_PasswordLengthBoundaries(t *testing.T) {
	type testCase struct {
		length int
		want   posture.Severity
	}

	tests := []testCase{
		{8, posture.Error},
		{9, posture.Warning},
		{10, posture.Warning},
		{11, posture.Warning},
		{12, posture.Success},
	}

	for _, test := range tests {
		snap := healthySnapshot()
		snap.MinPasswordLength = test.length
		got := severities(posture.Evaluate(snap))[posture.CheckPasswordLength]
		if got != test.want {
			t.Errorf("length=%d: got %v, want %v", test.length, got, test.want)
		}
	}
}

func TestEvaluate_PasswordHistoryExclusiveBranches(t *testing.T) {
	type testCase struct {
		history  int
		lockout  int
		want     posture.Severity
		mentions string
	}

	tests := []testCase{
		{3, 5, posture.Warning, "lockout threshold"},
		{9, 5, posture.Warning, "fewer than 10"},
		{10, 5, posture.Success, ""},
		{24, 5, posture.Success, ""},
	}

	for _, test := range tests {
		snap := healthySnapshot()
		snap.PasswordHistorySize = test.history
		snap.LockoutThreshold = test.lockout

		var found posture.Finding
		n := 0
		for _, f := range posture.Evaluate(snap) {
			if f.Check == posture.CheckPasswordHistory {
				found = f
				n++
			}
		}
		if n != 1 {
			t.Fatalf("history=%d: got %d history findings, want exactly 1", test.history, n)
		}
		if found.Severity != test.want {
			t.Errorf("history=%d lockout=%d: got %v, want %v", test.history, test.lockout, found.Severity, test.want)
		}
		if test.mentions != "" && !containsFold(found.Message, test.mentions) {
			t.Errorf("history=%d: message %q does not mention %q", test.history, found.Message, test.mentions)
		}
	}
}

func TestEvaluate_ComplexityOff(t *testing.T) {
	snap := healthySnapshot()
	snap.ComplexityEnabled = false
	if got := severities(posture.Evaluate(snap))[posture.CheckComplexity]; got != posture.Warning {
		t.Errorf("complexity off: got %v, want warning", got)
	}
}

func TestEvaluate_LogonRestriction(t *testing.T) {
	type testCase struct {
		name     string
		accounts []snapshot.PrivilegedAccount
		want     posture.Severity
		offender string
	}

	tests := []testCase{
		{
			name: "unrestricted account",
			accounts: []snapshot.PrivilegedAccount{
				{SAMAccountName: "da1", LogonWorkstations: []string{"dc01", "dc02"}},
				{SAMAccountName: "da2"},
			},
			want:     posture.Error,
			offender: "da2",
		},
		{
			name: "workstation outside the dc set",
			accounts: []snapshot.PrivilegedAccount{
				{SAMAccountName: "da1", LogonWorkstations: []string{"dc01", "dc02", "ws17"}},
				{SAMAccountName: "da2", LogonWorkstations: []string{"dc01", "dc02"}},
			},
			want:     posture.Error,
			offender: "da1",
		},
		{
			name: "subset of the dc set",
			accounts: []snapshot.PrivilegedAccount{
				{SAMAccountName: "da1", LogonWorkstations: []string{"dc01"}},
			},
			want:     posture.Error,
			offender: "da1",
		},
		{
			name: "fqdn and case differences are not offenses",
			accounts: []snapshot.PrivilegedAccount{
				{SAMAccountName: "da1", LogonWorkstations: []string{"DC01.corp.example", "Dc02"}},
			},
			want: posture.Success,
		},
	}

	for _, test := range tests {
		snap := healthySnapshot()
		snap.PrivilegedAccounts = test.accounts

		var found posture.Finding
		for _, f := range posture.Evaluate(snap) {
			if f.Check == posture.CheckLogonRestriction {
				found = f
			}
		}
		if found.Severity != test.want {
			t.Errorf("%s: got %v, want %v", test.name, found.Severity, test.want)
		}
		if test.offender != "" && !containsFold(found.Message, test.offender) {
			t.Errorf("%s: message %q does not list offender %q", test.name, found.Message, test.offender)
		}
	}
}

func TestEvaluate_NullSessionSetting(t *testing.T) {
	type testCase struct {
		value snapshot.Setting
		want  posture.Severity
	}

	tests := []testCase{
		{snapshot.SettingAbsent, posture.Error},
		{snapshot.SettingOn, posture.Success},
		{snapshot.SettingOff, posture.Error},
	}

	for _, test := range tests {
		snap := healthySnapshot()
		snap.NullSessionsRestricted = test.value
		got := severities(posture.Evaluate(snap))[posture.CheckNullSessions]
		if got != test.want {
			t.Errorf("setting=%v: got %v, want %v", test.value, got, test.want)
		}
	}
}

func TestEvaluate_AnonymousSIDSetting(t *testing.T) {
	type testCase struct {
		value snapshot.Setting
		want  posture.Severity
	}

	tests := []testCase{
		{snapshot.SettingAbsent, posture.Warning},
		{snapshot.SettingOff, posture.Success},
		{snapshot.SettingOn, posture.Warning},
	}

	for _, test := range tests {
		snap := healthySnapshot()
		snap.AnonymousSIDLookup = test.value
		got := severities(posture.Evaluate(snap))[posture.CheckAnonymousSID]
		if got != test.want {
			t.Errorf("setting=%v: got %v, want %v", test.value, got, test.want)
		}
	}
}

func TestEvaluate_AdminMembership(t *testing.T) {
	snap := healthySnapshot()
	snap.AdminGroupMembers = append(snap.AdminGroupMembers, snapshot.AdminGroupMember{SAMAccountName: "svc-backup"})

	var found posture.Finding
	for _, f := range posture.Evaluate(snap) {
		if f.Check == posture.CheckAdminMembership {
			found = f
		}
	}
	if found.Severity != posture.Warning {
		t.Errorf("stray member: got %v, want warning", found.Severity)
	}
	if !containsFold(found.Message, "svc-backup") {
		t.Errorf("message %q does not list svc-backup", found.Message)
	}
}

// Scenario: 3 privileged accounts, history 9, lockout 5, complexity on,
// length 12, logon targets equal to the DC set, null sessions restricted,
// anonymous SID disabled, admin group held by the well-known administrator
// only. Everything passes except history.
func TestEvaluate_NearHealthyDomain(t *testing.T) {
	snap := healthySnapshot()
	snap.PasswordHistorySize = 9
	snap.AdminGroupMembers = []snapshot.AdminGroupMember{
		{SAMAccountName: "Administrator", BuiltinAdministrator: true},
	}

	for _, f := range posture.Evaluate(snap) {
		want := posture.Success
		if f.Check == posture.CheckPasswordHistory {
			want = posture.Warning
		}
		if f.Severity != want {
			t.Errorf("%s: got %v (%s), want %v", f.Check, f.Severity, f.Message, want)
		}
	}
}

// Scenario: minimum length 8 grades as an error, not a warning.
func TestEvaluate_ShortMinimumLengthIsError(t *testing.T) {
	snap := healthySnapshot()
	snap.MinPasswordLength = 8
	if got := severities(posture.Evaluate(snap))[posture.CheckPasswordLength]; got != posture.Error {
		t.Errorf("length=8: got %v, want error", got)
	}
}

func TestShortHostNames(t *testing.T) {
	got := posture.ShortHostNames([]string{"DC02.corp.example", "dc01", " dc02 ", ""})
	want := []string{"dc01", "dc02"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
