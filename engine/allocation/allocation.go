// Package allocation maintains the conservation invariant between a
// line's received quantity and its breakdown across cost-center targets.
package allocation

import (
	"fmt"
	"math"
	"strings"
)

// Tolerance absorbs floating-point noise when comparing quantity sums.
const Tolerance = 1e-3

// Entry assigns part of a line's received quantity to one cost center.
type Entry struct {
	LineID   string
	Target   string
	Quantity float64
}

// Default builds the allocation created when a received quantity is first
// recorded: one entry for the full amount, targeting the line's intended
// cost center or the holding target when none was chosen.
func Default(lineID string, received float64, intendedTarget, holdingTarget string) []Entry {
	target := strings.TrimSpace(intendedTarget)
	if target == "" {
		target = holdingTarget
	}
	return []Entry{{LineID: lineID, Target: target, Quantity: received}}
}

// Editor is the split-mode editing state for one line. Invalid edits stay
// in the editor; only Validate gates whether they may be saved.
type Editor struct {
	LineID  string
	Entries []Entry
}

// EnterSplit seeds an editor with the line's current allocation. The
// editor never starts empty: with no prior split it starts from the
// default single entry.
func EnterSplit(lineID string, current []Entry, received float64, intendedTarget, holdingTarget string) *Editor {
	entries := append([]Entry(nil), current...)
	if len(entries) == 0 {
		entries = Default(lineID, received, intendedTarget, holdingTarget)
	}
	return &Editor{LineID: lineID, Entries: entries}
}

// AddRow appends a blank entry for the user to fill in.
func (e *Editor) AddRow() {
	e.Entries = append(e.Entries, Entry{LineID: e.LineID})
}

// RemoveRow deletes one entry by index.
func (e *Editor) RemoveRow(i int) error {
	if i < 0 || i >= len(e.Entries) {
		return fmt.Errorf("no allocation row at index %d", i)
	}
	e.Entries = append(e.Entries[:i], e.Entries[i+1:]...)
	return nil
}

// Validation is the outcome of checking an allocation against the line's
// received total.
type Validation struct {
	Valid    bool
	Sum      float64
	Problems []string
}

// Validate checks the conservation invariant: quantities are non-negative,
// every entry with a non-zero quantity names a target, and the sum equals
// targetTotal within Tolerance. An invalid result blocks saving but never
// discards the user's partial edits.
func Validate(entries []Entry, targetTotal float64) Validation {
	v := Validation{}
	for i, entry := range entries {
		if entry.Quantity < 0 {
			v.Problems = append(v.Problems, fmt.Sprintf("row %d: quantity cannot be negative", i+1))
		}
		if entry.Quantity != 0 && strings.TrimSpace(entry.Target) == "" {
			v.Problems = append(v.Problems, fmt.Sprintf("row %d: choose a cost center", i+1))
		}
		v.Sum += entry.Quantity
	}
	if math.Abs(v.Sum-targetTotal) > Tolerance {
		v.Problems = append(v.Problems, fmt.Sprintf("allocated %.3f of %.3f received", v.Sum, targetTotal))
	}
	v.Valid = len(v.Problems) == 0
	return v
}

// Validate re-checks the editor against targetTotal. Changing the line's
// received quantity mid-split never rebalances entries; it only surfaces
// the now-possibly-invalid state.
func (e *Editor) Validate(targetTotal float64) Validation {
	return Validate(e.Entries, targetTotal)
}
