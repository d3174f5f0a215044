// Package lifecycle defines the document status state machine and the
// editability profile derived from it. Everything here is pure; handlers
// recompute profiles after every status change instead of mutating them.
package lifecycle

import "fmt"

// Status is a document lifecycle state. Display labels vary by document
// type but the transition contract is shared by all of them.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSubmitted         Status = "submitted"
	StatusPartiallyReceived Status = "partially_received"
	StatusFullyReceived     Status = "fully_received"
	StatusDeleted           Status = "deleted"
	StatusVoid              Status = "void"
)

// Known reports whether s is one of the recognized statuses.
func Known(s Status) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusPartiallyReceived, StatusFullyReceived, StatusDeleted, StatusVoid:
		return true
	default:
		return false
	}
}

// Header field names gated by the editability profile.
const (
	FieldSupplier     = "supplier"
	FieldJobRef       = "job_ref"
	FieldNotes        = "notes"
	FieldCurrency     = "currency"
	FieldExpectedDate = "expected_date"
)

// Profile describes what a given status permits the user to change.
type Profile struct {
	HeaderFields  map[string]bool
	LinesEditable bool
	RowsAddable   bool
	RowsDeletable bool
}

// HeaderEditable reports whether the named header field may be changed.
func (p Profile) HeaderEditable(field string) bool {
	return p.HeaderFields[field]
}

func allHeaderFields() map[string]bool {
	return map[string]bool{
		FieldSupplier:     true,
		FieldJobRef:       true,
		FieldNotes:        true,
		FieldCurrency:     true,
		FieldExpectedDate: true,
	}
}

func notesOnly() map[string]bool {
	return map[string]bool{FieldNotes: true}
}

// EditabilityFor maps a status to its profile. Total over all inputs:
// an unrecognized status (for example one introduced by a newer server)
// yields the fully read-only profile so the editor stays usable.
func EditabilityFor(s Status) Profile {
	switch s {
	case StatusDraft:
		return Profile{
			HeaderFields:  allHeaderFields(),
			LinesEditable: true,
			RowsAddable:   true,
			RowsDeletable: true,
		}
	case StatusSubmitted, StatusPartiallyReceived:
		// Receiving phase: quantities received and allocations may change,
		// the ordered rows themselves are fixed.
		return Profile{
			HeaderFields:  notesOnly(),
			LinesEditable: true,
			RowsAddable:   false,
			RowsDeletable: false,
		}
	case StatusFullyReceived:
		return Profile{
			HeaderFields:  notesOnly(),
			LinesEditable: false,
			RowsAddable:   false,
			RowsDeletable: false,
		}
	default:
		// deleted, void and anything unknown are read-only.
		return Profile{HeaderFields: map[string]bool{}}
	}
}

// TransitionError is returned for a forbidden status change. The message
// is shown to the user as-is, without a network round-trip.
type TransitionError struct {
	From, To Status
	Reason   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move document from %s to %s: %s", e.From, e.To, e.Reason)
}

// Transition validates a status change and returns a TransitionError when
// it is not allowed.
func Transition(from, to Status) error {
	if from == to {
		return &TransitionError{From: from, To: to, Reason: "document is already in that state"}
	}
	if !Known(to) {
		return &TransitionError{From: from, To: to, Reason: "unknown target status"}
	}
	if from == StatusVoid {
		return &TransitionError{From: from, To: to, Reason: "void documents are final"}
	}
	if to == StatusVoid {
		return nil
	}

	switch from {
	case StatusDraft:
		if to == StatusSubmitted || to == StatusDeleted {
			return nil
		}
	case StatusDeleted:
		if to == StatusDraft {
			return nil
		}
		return &TransitionError{From: from, To: to, Reason: "a deleted document can only be restored to draft"}
	case StatusSubmitted:
		if to == StatusPartiallyReceived || to == StatusFullyReceived {
			return nil
		}
	case StatusPartiallyReceived:
		if to == StatusFullyReceived {
			return nil
		}
	}
	return &TransitionError{From: from, To: to, Reason: "transition is not part of the document lifecycle"}
}

// CanTransition reports whether the status change is allowed.
func CanTransition(from, to Status) bool {
	return Transition(from, to) == nil
}

// Label returns the display label for a status on the given document type.
func Label(docType string, s Status) string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusSubmitted:
		switch docType {
		case "delivery_receipt":
			return "Awaiting Goods"
		default:
			return "Submitted"
		}
	case StatusPartiallyReceived:
		return "Partially Received"
	case StatusFullyReceived:
		return "Fully Received"
	case StatusDeleted:
		return "Deleted"
	case StatusVoid:
		return "Void"
	default:
		return string(s)
	}
}
