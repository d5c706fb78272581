// Package diff compares a desired attribute state against what the
// directory currently stores.
package diff

import "sort"

// FindChanges returns the attributes whose stored values differ from
// the desired ones, in attribute-name order. Attributes present only in
// actual are left alone: callers manage the desired set and nothing
// else.
func FindChanges(desired, actual map[string][]string) []Change {
	var changes []Change
	for _, attr := range sortedKeys(desired) {
		want := desired[attr]
		if got := actual[attr]; !equalValues(want, got) {
			changes = append(changes, Change{Attr: attr, Want: want, Got: got})
		}
	}
	return changes
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
