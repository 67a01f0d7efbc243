package stubs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Snapshot is the persisted stub-count record one build leaves behind for
// the next build to ratchet against (spec.md §4.8).
type Snapshot struct {
	Total  int            `json:"total"`
	ByKind map[string]int `json:"byKind"`
}

// SnapshotOf summarizes a Report into the counts the ratchet tracks.
func SnapshotOf(r *Report) Snapshot {
	byKind := make(map[string]int, len(r.Groups))
	for _, g := range r.Groups {
		byKind[g.Kind] = len(g.Records)
	}
	return Snapshot{Total: r.Total, ByKind: byKind}
}

// LoadSnapshot reads a persisted snapshot. A missing file is not an error —
// it means no ratchet has been established yet — and reads back as a zero
// Snapshot with ok=false.
func LoadSnapshot(path string) (snap Snapshot, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("stubs: reading budget snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("stubs: parsing budget snapshot: %w", err)
	}
	return snap, true, nil
}

// SaveSnapshot persists snap to path, formatted for a readable diff in
// version control.
func SaveSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("stubs: encoding budget snapshot: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("stubs: writing budget snapshot: %w", err)
	}
	return nil
}

// RatchetViolation names one stub kind whose count grew past the last
// recorded snapshot.
type RatchetViolation struct {
	Kind     string
	Previous int
	Current  int
}

func (v RatchetViolation) String() string {
	return fmt.Sprintf("%s: %d -> %d", v.Kind, v.Previous, v.Current)
}

// CheckRatchet compares cur against the last persisted snapshot: the total
// and every individual kind may hold steady or shrink, never grow. A kind
// absent from prev is treated as a previous count of zero, so a build that
// introduces a brand-new stub kind always reports a violation for it
// rather than silently passing.
func CheckRatchet(prev Snapshot, cur Snapshot) []RatchetViolation {
	var violations []RatchetViolation
	if cur.Total > prev.Total {
		violations = append(violations, RatchetViolation{Kind: "__total__", Previous: prev.Total, Current: cur.Total})
	}
	var kinds []string
	for k := range cur.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if cur.ByKind[k] > prev.ByKind[k] {
			violations = append(violations, RatchetViolation{Kind: k, Previous: prev.ByKind[k], Current: cur.ByKind[k]})
		}
	}
	return violations
}
