package allocation

import "testing"

func TestDefault_UsesIntendedTarget(t *testing.T) {
	got := Default("L-1", 10, "JOB-X", "HOLD")
	if len(got) != 1 {
		t.Fatalf("expected single entry, got %d", len(got))
	}
	if got[0].Target != "JOB-X" || got[0].Quantity != 10 {
		t.Fatalf("unexpected default entry: %+v", got[0])
	}
}

func TestDefault_FallsBackToHolding(t *testing.T) {
	got := Default("L-1", 4, "  ", "HOLD")
	if got[0].Target != "HOLD" {
		t.Fatalf("expected holding target, got %q", got[0].Target)
	}
}

func TestValidate_Conservation(t *testing.T) {
	ok := Validate([]Entry{{Target: "jobA", Quantity: 6}, {Target: "jobB", Quantity: 4}}, 10)
	if !ok.Valid {
		t.Fatalf("6+4 against 10 must be valid: %v", ok.Problems)
	}

	bad := Validate([]Entry{{Target: "jobA", Quantity: 6}, {Target: "jobB", Quantity: 3}}, 10)
	if bad.Valid {
		t.Fatalf("6+3 against 10 must be invalid")
	}
	if bad.Sum != 9 {
		t.Fatalf("expected sum 9, got %v", bad.Sum)
	}
}

func TestValidate_FloatNoiseWithinTolerance(t *testing.T) {
	entries := []Entry{{Target: "a", Quantity: 0.1}, {Target: "b", Quantity: 0.2}}
	if v := Validate(entries, 0.3); !v.Valid {
		t.Fatalf("0.1+0.2 against 0.3 must pass within tolerance: %v", v.Problems)
	}
}

func TestValidate_NonZeroQuantityNeedsTarget(t *testing.T) {
	v := Validate([]Entry{{Target: "", Quantity: 10}}, 10)
	if v.Valid {
		t.Fatalf("missing target with non-zero quantity must be invalid")
	}

	// A zero-quantity blank row is tolerated.
	v = Validate([]Entry{{Target: "jobA", Quantity: 10}, {Target: "", Quantity: 0}}, 10)
	if !v.Valid {
		t.Fatalf("blank zero row must not invalidate: %v", v.Problems)
	}
}

func TestValidate_NegativeQuantity(t *testing.T) {
	v := Validate([]Entry{{Target: "jobA", Quantity: 12}, {Target: "jobB", Quantity: -2}}, 10)
	if v.Valid {
		t.Fatalf("negative quantities must be invalid even when the sum matches")
	}
}

func TestEnterSplit_NeverEmpty(t *testing.T) {
	e := EnterSplit("L-1", nil, 10, "JOB-X", "HOLD")
	if len(e.Entries) != 1 || e.Entries[0].Quantity != 10 {
		t.Fatalf("split editor must seed from the default allocation: %+v", e.Entries)
	}

	prior := []Entry{{LineID: "L-1", Target: "jobA", Quantity: 7}, {LineID: "L-1", Target: "jobB", Quantity: 3}}
	e = EnterSplit("L-1", prior, 10, "JOB-X", "HOLD")
	if len(e.Entries) != 2 {
		t.Fatalf("existing split must be preserved, got %+v", e.Entries)
	}
}

func TestEditor_RetargetWithoutRecreatingLine(t *testing.T) {
	// A 10-unit receipt against job X, split mode: drop X's row, add Y.
	e := EnterSplit("L-1", nil, 10, "X", "HOLD")
	if err := e.RemoveRow(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	e.AddRow()
	e.Entries[0].Target = "Y"
	e.Entries[0].Quantity = 10

	if v := e.Validate(10); !v.Valid {
		t.Fatalf("retargeted allocation must validate: %v", v.Problems)
	}
	if e.LineID != "L-1" {
		t.Fatalf("line identity must be preserved")
	}
}

func TestEditor_TotalChangeOnlyRevalidates(t *testing.T) {
	e := EnterSplit("L-1", []Entry{{Target: "a", Quantity: 6}, {Target: "b", Quantity: 4}}, 10, "a", "HOLD")
	if v := e.Validate(10); !v.Valid {
		t.Fatalf("setup should be valid")
	}

	// The received total changed while the user was splitting: entries
	// stay as typed, validation flags the mismatch.
	v := e.Validate(12)
	if v.Valid {
		t.Fatalf("expected invalid after total change")
	}
	if e.Entries[0].Quantity != 6 || e.Entries[1].Quantity != 4 {
		t.Fatalf("entries must not be rebalanced: %+v", e.Entries)
	}
}

func TestEditor_RemoveRowBounds(t *testing.T) {
	e := EnterSplit("L-1", nil, 5, "X", "HOLD")
	if err := e.RemoveRow(3); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}
