// Package rows models document line items and the tabular sources that
// hold them while a document is being edited. The autosave pipeline and
// the allocation reconciler depend only on the Source contract, never on
// how a section is rendered.
package rows

import (
	"encoding/json"
	"strings"
)

// TempMarker is the identifier of a row that has never been persisted.
// The persistence layer replaces it in place once a real identifier is
// assigned; rows carrying it are never reported as deletions.
const TempMarker = "tmp"

// Kind discriminates the line-item variants a document section can hold.
type Kind string

const (
	KindMaterial   Kind = "material"
	KindTime       Kind = "time"
	KindAdjustment Kind = "adjustment"
)

// KnownKind reports whether k is one of the line variants.
func KnownKind(k Kind) bool {
	switch k {
	case KindMaterial, KindTime, KindAdjustment:
		return true
	default:
		return false
	}
}

// Row is one line item. Key is stable for the lifetime of the editing
// session and survives identifier assignment; ID starts as TempMarker and
// is replaced by the persistence layer.
type Row struct {
	ID          string
	Key         string
	Kind        Kind
	Description string
	PartNumber  string
	TargetRef   string
	Quantity    float64
	UnitCost    *float64 // nil while the price is to be confirmed
	Hours       float64
	ReceivedQty float64
}

// Persisted reports whether the row has a server-assigned identifier.
func (r Row) Persisted() bool {
	return r.ID != "" && r.ID != TempMarker
}

// Total returns quantity x unit cost. known is false while the unit cost
// is unconfirmed; callers must render the sentinel and keep the row out
// of cost warnings in that case.
func (r Row) Total() (total float64, known bool) {
	if r.UnitCost == nil {
		return 0, false
	}
	return r.Quantity * *r.UnitCost, true
}

// Complete reports whether the row carries at least one substantive field.
// Incomplete rows are trailing blanks the grid shows for data entry; they
// are never collected into a save payload.
func (r Row) Complete() bool {
	switch r.Kind {
	case KindTime:
		return strings.TrimSpace(r.TargetRef) != "" || strings.TrimSpace(r.Description) != "" || r.Hours != 0
	case KindMaterial, KindAdjustment:
		return strings.TrimSpace(r.TargetRef) != "" ||
			strings.TrimSpace(r.Description) != "" ||
			strings.TrimSpace(r.PartNumber) != ""
	default:
		return false
	}
}

// Fingerprint is the serialized form used for change detection. The
// identifier is deliberately excluded: assigning a real id on save must
// not make an otherwise untouched row look dirty on the next pass.
func (r Row) Fingerprint() string {
	b, _ := json.Marshal(struct {
		Kind        Kind     `json:"kind"`
		Description string   `json:"description"`
		PartNumber  string   `json:"part_number"`
		TargetRef   string   `json:"target_ref"`
		Quantity    float64  `json:"quantity"`
		UnitCost    *float64 `json:"unit_cost"`
		Hours       float64  `json:"hours"`
		ReceivedQty float64  `json:"received_qty"`
	}{r.Kind, r.Description, r.PartNumber, r.TargetRef, r.Quantity, r.UnitCost, r.Hours, r.ReceivedQty})
	return string(b)
}

// Source is the iteration/mutation contract a tabular section exposes to
// the engine.
type Source interface {
	ForEachRow(fn func(r *Row))
	ApplyAdd(r Row) *Row
	ApplyRemove(key string) (Row, bool)
}
