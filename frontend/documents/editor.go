package documents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"costdesk/engine/autosave"
	"costdesk/engine/lifecycle"
	"costdesk/engine/rows"
	"costdesk/models"
)

// Section names double as the table prefix in generated row keys.
const (
	SectionMaterials   = "materials"
	SectionTime        = "time"
	SectionAdjustments = "adjustments"
)

// headerState holds the editable header fields for one editing session.
// It is only read and written under the pipeline lock.
type headerState struct {
	fields map[string]string
}

func (h *headerState) Fields() map[string]string {
	out := make(map[string]string, len(h.fields))
	for k, v := range h.fields {
		out[k] = v
	}
	return out
}

// Editor is one live document editing session: three section tables, the
// header state and the autosave pipeline that keeps them persisted. All
// mutation goes through the pipeline so the debounce timer and request
// handlers never interleave.
type Editor struct {
	DocumentID int64
	DocType    string
	DocNumber  string

	header      *headerState
	materials   *rows.Table
	timeRows    *rows.Table
	adjustments *rows.Table
	pipeline    *autosave.Pipeline
}

// NewEditor builds an editing session from a loaded document. ccCodeByID
// maps cost-center primary keys to the codes shown in the grid.
func NewEditor(doc models.Document, lines []models.DocumentLine, ccCodeByID map[int64]string, dispatcher autosave.Dispatcher, quiet time.Duration) *Editor {
	ed := &Editor{
		DocumentID:  doc.ID,
		DocType:     doc.DocType,
		DocNumber:   doc.DocNumber,
		header:      &headerState{fields: headerFieldsFrom(doc)},
		materials:   rows.NewTable(SectionMaterials, rows.KindMaterial),
		timeRows:    rows.NewTable(SectionTime, rows.KindTime),
		adjustments: rows.NewTable(SectionAdjustments, rows.KindAdjustment),
	}

	for _, line := range lines {
		target := ""
		if line.CostCenterID != nil {
			target = ccCodeByID[*line.CostCenterID]
		}
		row := rows.Row{
			ID:          LineRef(line.ID),
			Kind:        rows.Kind(line.Kind),
			Description: line.Description,
			PartNumber:  line.PartNumber,
			TargetRef:   target,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			Hours:       line.Hours,
			ReceivedQty: line.ReceivedQty,
		}
		if table := ed.tableForKind(row.Kind); table != nil {
			table.ApplyAdd(row)
		}
	}

	ed.pipeline = autosave.New(autosave.Config{
		DocumentID:    strconv.FormatInt(doc.ID, 10),
		DocType:       doc.DocType,
		Status:        lifecycle.Status(doc.Status),
		Header:        ed.header,
		Sources:       []rows.Source{ed.materials, ed.timeRows, ed.adjustments},
		Dispatcher:    dispatcher,
		QuietInterval: quiet,
	})
	ed.pipeline.Seed()
	return ed
}

func headerFieldsFrom(doc models.Document) map[string]string {
	fields := map[string]string{
		lifecycle.FieldSupplier: doc.Supplier,
		lifecycle.FieldJobRef:   doc.JobRef,
		lifecycle.FieldNotes:    doc.Notes,
		lifecycle.FieldCurrency: doc.Currency,
	}
	if doc.ExpectedDate != nil {
		fields[lifecycle.FieldExpectedDate] = doc.ExpectedDate.Format("2006-01-02")
	} else {
		fields[lifecycle.FieldExpectedDate] = ""
	}
	return fields
}

func (ed *Editor) tableForKind(k rows.Kind) *rows.Table {
	switch k {
	case rows.KindMaterial:
		return ed.materials
	case rows.KindTime:
		return ed.timeRows
	case rows.KindAdjustment:
		return ed.adjustments
	default:
		return nil
	}
}

func (ed *Editor) tableForSection(name string) *rows.Table {
	switch name {
	case SectionMaterials:
		return ed.materials
	case SectionTime:
		return ed.timeRows
	case SectionAdjustments:
		return ed.adjustments
	default:
		return nil
	}
}

// SetHeaderField records a header edit, rejecting fields the current
// status locks.
func (ed *Editor) SetHeaderField(field, value string) error {
	if !ed.pipeline.Profile().HeaderEditable(field) {
		return fmt.Errorf("field %q is not editable in status %s", field, ed.pipeline.Status())
	}
	ed.pipeline.Update(func() {
		ed.header.fields[field] = value
	})
	return nil
}

// EditRow applies one field edit to a row. Outside draft the grid is in
// receiving mode and only the received quantity may change.
func (ed *Editor) EditRow(section, key, field, value string) error {
	profile := ed.pipeline.Profile()
	if !profile.LinesEditable {
		return fmt.Errorf("rows are locked in status %s", ed.pipeline.Status())
	}
	if !profile.RowsAddable && field != "received_qty" {
		return fmt.Errorf("only received quantities can change in status %s", ed.pipeline.Status())
	}

	table := ed.tableForSection(section)
	if table == nil {
		return fmt.Errorf("unknown section %q", section)
	}

	var applyErr error
	ed.pipeline.Update(func() {
		row := table.Get(key)
		if row == nil {
			applyErr = fmt.Errorf("no row %q in section %s", key, section)
			return
		}
		applyErr = applyRowField(row, field, value)
	})
	return applyErr
}

// applyRowField parses value into the named row field. A blank unit cost
// returns the price to the to-be-confirmed state.
func applyRowField(row *rows.Row, field, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case "description":
		row.Description = value
	case "part_number":
		row.PartNumber = value
	case "target_ref":
		row.TargetRef = value
	case "quantity":
		q, err := parseQty(value)
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		row.Quantity = q
	case "unit_cost":
		if value == "" {
			row.UnitCost = nil
			return nil
		}
		c, err := strconv.ParseFloat(value, 64)
		if err != nil || c < 0 {
			return fmt.Errorf("unit cost must be a non-negative number")
		}
		row.UnitCost = &c
	case "hours":
		h, err := parseQty(value)
		if err != nil {
			return fmt.Errorf("hours: %w", err)
		}
		row.Hours = h
	case "received_qty":
		q, err := parseQty(value)
		if err != nil {
			return fmt.Errorf("received quantity: %w", err)
		}
		row.ReceivedQty = q
	default:
		return fmt.Errorf("unknown row field %q", field)
	}
	return nil
}

func parseQty(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	q, err := strconv.ParseFloat(value, 64)
	if err != nil || q < 0 {
		return 0, fmt.Errorf("must be a non-negative number")
	}
	return q, nil
}

// AddRow appends a blank row to a section and returns its key. Blank rows
// stay out of save payloads until they carry substantive data.
func (ed *Editor) AddRow(section string) (string, error) {
	if !ed.pipeline.Profile().RowsAddable {
		return "", fmt.Errorf("rows cannot be added in status %s", ed.pipeline.Status())
	}
	table := ed.tableForSection(section)
	if table == nil {
		return "", fmt.Errorf("unknown section %q", section)
	}
	var key string
	ed.pipeline.Update(func() {
		key = table.ApplyAdd(rows.Row{}).Key
	})
	return key, nil
}

// DeleteRow removes a row. Never-persisted rows vanish; persisted ones are
// queued for server-side deletion by the pipeline.
func (ed *Editor) DeleteRow(section, key string) error {
	if !ed.pipeline.Profile().RowsDeletable {
		return fmt.Errorf("rows cannot be deleted in status %s", ed.pipeline.Status())
	}
	table := ed.tableForSection(section)
	if table == nil {
		return fmt.Errorf("unknown section %q", section)
	}
	if _, ok := ed.pipeline.RemoveRow(table, key); !ok {
		return fmt.Errorf("no row %q in section %s", key, section)
	}
	return nil
}

// Flush forces an immediate save of everything pending.
func (ed *Editor) Flush(ctx context.Context) error {
	return ed.pipeline.Flush(ctx)
}

// Stop cancels any pending coalesced save.
func (ed *Editor) Stop() {
	ed.pipeline.Stop()
}

// Status returns the session's current document status.
func (ed *Editor) Status() lifecycle.Status {
	return ed.pipeline.Status()
}

// ApplyStatus records a status change confirmed by the transition
// endpoint.
func (ed *Editor) ApplyStatus(s lifecycle.Status) {
	ed.pipeline.ApplyStatus(s)
}

// LastSaveSucceeded reports whether the latest save round-trip was
// acknowledged. Submission is blocked while false.
func (ed *Editor) LastSaveSucceeded() bool {
	return ed.pipeline.LastSaveSucceeded()
}

// Sections returns a render snapshot of all three grids.
func (ed *Editor) Sections() []SectionView {
	var out []SectionView
	ed.pipeline.View(func() {
		out = []SectionView{
			{Name: SectionMaterials, Title: "Materials", Kind: rows.KindMaterial, Rows: ed.materials.Rows()},
			{Name: SectionTime, Title: "Time", Kind: rows.KindTime, Rows: ed.timeRows.Rows()},
			{Name: SectionAdjustments, Title: "Adjustments", Kind: rows.KindAdjustment, Rows: ed.adjustments.Rows()},
		}
	})
	return out
}

// HeaderFields returns a render snapshot of the header.
func (ed *Editor) HeaderFields() map[string]string {
	var out map[string]string
	ed.pipeline.View(func() {
		out = ed.header.Fields()
	})
	return out
}

// State summarizes the session for the edit/flush JSON endpoints,
// including the identifiers assigned to formerly temp-marker rows.
func (ed *Editor) State() EditState {
	state := EditState{
		SaveFailed: !ed.pipeline.LastSaveSucceeded(),
		Status:     string(ed.pipeline.Status()),
		Messages:   ed.pipeline.Messages(),
	}
	assigned := make(map[string]string)
	ed.pipeline.View(func() {
		for _, table := range []*rows.Table{ed.materials, ed.timeRows, ed.adjustments} {
			table.ForEachRow(func(r *rows.Row) {
				if r.Persisted() {
					assigned[r.Key] = r.ID
				}
			})
		}
	})
	if len(assigned) > 0 {
		state.AssignedIDs = assigned
	}
	for _, m := range state.Messages {
		if m.Level == "error" {
			state.Message = m.Text
			break
		}
	}
	return state
}

// EditorRegistry tracks the live editing session per document. Sessions
// are created on first editor-page load and torn down when the document
// leaves editing.
type EditorRegistry struct {
	mu      sync.Mutex
	editors map[int64]*Editor

	// QuietFor resolves the debounce interval per document type. Defaults
	// to the engine's built-in intervals; overridden from settings.
	QuietFor func(docType string) time.Duration
}

func NewEditorRegistry() *EditorRegistry {
	return &EditorRegistry{
		editors:  make(map[int64]*Editor),
		QuietFor: autosave.QuietIntervalFor,
	}
}

// Get returns the live session for a document, if any.
func (reg *EditorRegistry) Get(documentID int64) (*Editor, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	ed, ok := reg.editors[documentID]
	return ed, ok
}

// GetOrCreate returns the live session for a document, building it with
// build on first use.
func (reg *EditorRegistry) GetOrCreate(documentID int64, build func() (*Editor, error)) (*Editor, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if ed, ok := reg.editors[documentID]; ok {
		return ed, nil
	}
	ed, err := build()
	if err != nil {
		return nil, err
	}
	reg.editors[documentID] = ed
	return ed, nil
}

// Remove tears down the session for a document.
func (reg *EditorRegistry) Remove(documentID int64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if ed, ok := reg.editors[documentID]; ok {
		ed.Stop()
		delete(reg.editors, documentID)
	}
}
