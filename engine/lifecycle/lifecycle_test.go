package lifecycle

import (
	"errors"
	"testing"
)

func TestEditabilityFor_Draft(t *testing.T) {
	p := EditabilityFor(StatusDraft)
	if !p.RowsAddable || !p.RowsDeletable {
		t.Fatalf("draft must allow adding and deleting rows, got %+v", p)
	}
	if !p.LinesEditable {
		t.Fatalf("draft must allow line edits")
	}
	for _, f := range []string{FieldSupplier, FieldJobRef, FieldNotes, FieldCurrency, FieldExpectedDate} {
		if !p.HeaderEditable(f) {
			t.Fatalf("draft must allow header field %s", f)
		}
	}
}

func TestEditabilityFor_ReceivingLocksRows(t *testing.T) {
	for _, s := range []Status{StatusSubmitted, StatusPartiallyReceived} {
		p := EditabilityFor(s)
		if p.RowsAddable || p.RowsDeletable {
			t.Fatalf("%s must not allow row add/delete, got %+v", s, p)
		}
		if !p.LinesEditable {
			t.Fatalf("%s must still allow line edits for receiving", s)
		}
		if p.HeaderEditable(FieldSupplier) {
			t.Fatalf("%s must lock the supplier field", s)
		}
		if !p.HeaderEditable(FieldNotes) {
			t.Fatalf("%s must keep notes editable", s)
		}
	}
}

func TestEditabilityFor_UnknownStatusIsReadOnly(t *testing.T) {
	p := EditabilityFor(Status("cancelled_by_newer_server"))
	if p.LinesEditable || p.RowsAddable || p.RowsDeletable {
		t.Fatalf("unknown status must be fully read-only, got %+v", p)
	}
	if len(p.HeaderFields) != 0 {
		t.Fatalf("unknown status must not expose header fields, got %v", p.HeaderFields)
	}
}

func TestTransition_Lifecycle(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusSubmitted},
		{StatusDraft, StatusDeleted},
		{StatusDeleted, StatusDraft},
		{StatusSubmitted, StatusPartiallyReceived},
		{StatusSubmitted, StatusFullyReceived},
		{StatusPartiallyReceived, StatusFullyReceived},
		{StatusDraft, StatusVoid},
		{StatusFullyReceived, StatusVoid},
	}
	for _, tc := range allowed {
		if err := Transition(tc.from, tc.to); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusSubmitted, StatusDraft},
		{StatusDeleted, StatusSubmitted},
		{StatusVoid, StatusDraft},
		{StatusFullyReceived, StatusPartiallyReceived},
		{StatusDraft, StatusFullyReceived},
		{StatusDraft, Status("archived")},
	}
	for _, tc := range forbidden {
		err := Transition(tc.from, tc.to)
		if err == nil {
			t.Fatalf("%s -> %s should be rejected", tc.from, tc.to)
		}
		var terr *TransitionError
		if !errors.As(err, &terr) {
			t.Fatalf("expected TransitionError, got %T", err)
		}
		if terr.Reason == "" {
			t.Fatalf("transition error must carry a user-visible reason")
		}
	}
}

func TestTransition_SameStatusRejected(t *testing.T) {
	if CanTransition(StatusDraft, StatusDraft) {
		t.Fatalf("no-op transition must be rejected")
	}
}

func TestLabel_ByDocType(t *testing.T) {
	if got := Label("delivery_receipt", StatusSubmitted); got != "Awaiting Goods" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := Label("purchase_order", StatusSubmitted); got != "Submitted" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := Label("purchase_order", Status("weird")); got != "weird" {
		t.Fatalf("unknown status should fall back to raw value, got %q", got)
	}
}
