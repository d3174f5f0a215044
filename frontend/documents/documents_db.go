package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"costdesk/engine/allocation"
	"costdesk/engine/autosave"
	"costdesk/engine/lifecycle"
	"costdesk/engine/rows"
	"costdesk/infrastructure/audit"
	"costdesk/infrastructure/ledger"
	"costdesk/infrastructure/sqlite"
	"costdesk/models"
)

// HoldingTargetCode is the seeded cost center that receives goods whose
// line has no intended cost center when receiving starts.
const HoldingTargetCode = "HOLD"

// LineRef formats a document line primary key as the identifier the
// editing engine carries.
func LineRef(pk int64) string {
	return fmt.Sprintf("L-%d", pk)
}

// ParseLineRef extracts the primary key from a line identifier.
func ParseLineRef(ref string) (int64, error) {
	rest, ok := strings.CutPrefix(ref, "L-")
	if !ok {
		return 0, fmt.Errorf("invalid line ref %q", ref)
	}
	pk, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || pk <= 0 {
		return 0, fmt.Errorf("invalid line ref %q", ref)
	}
	return pk, nil
}

// Store is the persistence layer behind the document editor.
type Store struct {
	db    *sqlite.DB
	audit *audit.Service
}

func NewStore(db *sqlite.DB, auditSvc *audit.Service) *Store {
	return &Store{db: db, audit: auditSvc}
}

// DispatcherFor binds the store to a user for autosave dispatching; the
// user attribution flows into audit rows and newly created drafts.
func (s *Store) DispatcherFor(userID int64) autosave.Dispatcher {
	return &storeDispatcher{store: s, userID: userID}
}

type storeDispatcher struct {
	store  *Store
	userID int64
}

func (d *storeDispatcher) Dispatch(ctx context.Context, p autosave.Payload) (autosave.Result, error) {
	return d.store.SaveDocument(ctx, d.userID, p)
}

// errValidation signals a rejected payload; the transaction rolls back
// and the messages are returned with Success=false.
var errValidation = errors.New("validation failed")

// SaveDocument applies one autosave payload in a single transaction:
// header fields, inserted and updated lines, queued deletions, default
// allocations for newly received quantities and the derived receiving
// status. A validation failure rolls everything back and surfaces
// field-level messages; nothing is half-applied.
func (s *Store) SaveDocument(ctx context.Context, userID int64, p autosave.Payload) (autosave.Result, error) {
	result := autosave.Result{AssignedIDs: make(map[string]string)}
	var msgs []autosave.Message

	if bad := validatePayload(p); len(bad) > 0 {
		return autosave.Result{Messages: bad}, nil
	}

	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		doc, err := s.resolveDocument(ctx, tx, userID, p)
		if err != nil {
			return err
		}
		status := lifecycle.Status(doc.Status)
		profile := lifecycle.EditabilityFor(status)

		if len(p.Lines) > 0 && !profile.LinesEditable {
			msgs = append(msgs, autosave.Message{Level: "error", Text: fmt.Sprintf("lines are locked in status %s", status)})
			return errValidation
		}
		if len(p.DeletedLineIDs) > 0 && !profile.RowsDeletable {
			msgs = append(msgs, autosave.Message{Level: "error", Text: fmt.Sprintf("rows cannot be deleted in status %s", status)})
			return errValidation
		}

		ccIDByCode, err := costCenterIDsByCode(ctx, tx)
		if err != nil {
			return err
		}
		holdingID, ok := ccIDByCode[HoldingTargetCode]
		if !ok {
			return fmt.Errorf("holding cost center %s is missing", HoldingTargetCode)
		}

		if p.HeaderChanged {
			if bad := applyHeader(&doc, profile, p.Header); len(bad) > 0 {
				msgs = append(msgs, bad...)
				return errValidation
			}
		}

		for _, line := range p.Lines {
			var ccID *int64
			if target := strings.TrimSpace(line.TargetRef); target != "" {
				id, ok := ccIDByCode[target]
				if !ok {
					msgs = append(msgs, autosave.Message{Level: "error", Field: "target_ref", Text: fmt.Sprintf("unknown cost center %q", target)})
					return errValidation
				}
				ccID = &id
			}

			if line.Persisted() {
				pk, err := ParseLineRef(line.ID)
				if err != nil {
					return err
				}
				if err := s.updateLine(ctx, tx, doc.ID, pk, line, ccID, holdingID); err != nil {
					return err
				}
				continue
			}

			if !profile.RowsAddable {
				msgs = append(msgs, autosave.Message{Level: "error", Text: fmt.Sprintf("rows cannot be added in status %s", status)})
				return errValidation
			}
			pk, err := s.insertLine(ctx, tx, doc.ID, line, ccID, holdingID)
			if err != nil {
				return err
			}
			result.AssignedIDs[line.Key] = LineRef(pk)
		}

		for _, ref := range p.DeletedLineIDs {
			pk, err := ParseLineRef(ref)
			if err != nil {
				return err
			}
			if err := deleteLine(ctx, tx, doc.ID, pk); err != nil {
				return err
			}
		}

		derived, err := deriveReceivingStatus(ctx, tx, doc.ID, status)
		if err != nil {
			return err
		}
		if derived != status {
			doc.Status = string(derived)
			result.Status = derived
		}

		doc.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().Model(&doc).WherePK().Exec(ctx); err != nil {
			return err
		}
		if s.audit != nil {
			if err := s.audit.Write(ctx, tx, userID, "document.autosave", "documents", strconv.FormatInt(doc.ID, 10), nil, p); err != nil {
				return err
			}
		}

		result.DocumentID = strconv.FormatInt(doc.ID, 10)
		return nil
	})
	if err != nil {
		if errors.Is(err, errValidation) {
			return autosave.Result{Messages: msgs}, nil
		}
		return autosave.Result{}, err
	}

	result.Success = true
	return result, nil
}

// resolveDocument loads the payload's document, creating a fresh draft
// when the payload carries no identifier yet.
func (s *Store) resolveDocument(ctx context.Context, tx bun.Tx, userID int64, p autosave.Payload) (models.Document, error) {
	if p.DocumentID == "" {
		return s.insertDraft(ctx, tx, userID, p.DocType)
	}
	id, err := strconv.ParseInt(p.DocumentID, 10, 64)
	if err != nil {
		return models.Document{}, fmt.Errorf("invalid document id %q", p.DocumentID)
	}
	var doc models.Document
	if err := tx.NewSelect().Model(&doc).Where("d.id = ?", id).Limit(1).Scan(ctx); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

func (s *Store) insertDraft(ctx context.Context, tx bun.Tx, userID int64, docType string) (models.Document, error) {
	if !KnownDocType(docType) {
		return models.Document{}, fmt.Errorf("unknown document type %q", docType)
	}
	number, err := nextDocNumber(ctx, tx, docType)
	if err != nil {
		return models.Document{}, err
	}
	doc := models.Document{
		DocType:         docType,
		DocNumber:       number,
		Status:          string(lifecycle.StatusDraft),
		Currency:        "GBP",
		CreatedByUserID: userID,
	}
	if _, err := tx.NewInsert().Model(&doc).Exec(ctx); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

func nextDocNumber(ctx context.Context, tx bun.Tx, docType string) (string, error) {
	var n int64
	if err := tx.NewRaw(`SELECT COUNT(*) FROM documents WHERE doc_type = ?`, docType).Scan(ctx, &n); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%05d", numberPrefix(docType), n+1), nil
}

func validatePayload(p autosave.Payload) []autosave.Message {
	var msgs []autosave.Message
	for _, line := range p.Lines {
		if !rows.KnownKind(line.Kind) {
			msgs = append(msgs, autosave.Message{Level: "error", Text: fmt.Sprintf("unknown line kind %q", line.Kind)})
		}
		if line.Quantity < 0 {
			msgs = append(msgs, autosave.Message{Level: "error", Field: "quantity", Text: "quantity cannot be negative"})
		}
		if line.UnitCost != nil && *line.UnitCost < 0 {
			msgs = append(msgs, autosave.Message{Level: "error", Field: "unit_cost", Text: "unit cost cannot be negative"})
		}
		if line.ReceivedQty < 0 {
			msgs = append(msgs, autosave.Message{Level: "error", Field: "received_qty", Text: "received quantity cannot be negative"})
		}
	}
	if cur, ok := p.Header[lifecycle.FieldCurrency]; ok && p.HeaderChanged {
		cur = strings.TrimSpace(cur)
		if cur != "" && len(cur) != 3 {
			msgs = append(msgs, autosave.Message{Level: "error", Field: lifecycle.FieldCurrency, Text: "currency must be a 3-letter code"})
		}
	}
	return msgs
}

// applyHeader copies editable header fields into doc, rejecting edits to
// fields the current status locks.
func applyHeader(doc *models.Document, profile lifecycle.Profile, header map[string]string) []autosave.Message {
	var msgs []autosave.Message
	for field, value := range header {
		value = strings.TrimSpace(value)
		current := headerValue(doc, field)
		if value == current {
			continue
		}
		if !profile.HeaderEditable(field) {
			msgs = append(msgs, autosave.Message{Level: "error", Field: field, Text: fmt.Sprintf("%s is locked in status %s", field, doc.Status)})
			continue
		}
		switch field {
		case lifecycle.FieldSupplier:
			doc.Supplier = value
		case lifecycle.FieldJobRef:
			doc.JobRef = value
		case lifecycle.FieldNotes:
			doc.Notes = value
		case lifecycle.FieldCurrency:
			doc.Currency = strings.ToUpper(value)
		case lifecycle.FieldExpectedDate:
			if value == "" {
				doc.ExpectedDate = nil
				continue
			}
			d, err := time.Parse("2006-01-02", value)
			if err != nil {
				msgs = append(msgs, autosave.Message{Level: "error", Field: field, Text: "expected date must be YYYY-MM-DD"})
				continue
			}
			doc.ExpectedDate = &d
		}
	}
	return msgs
}

func headerValue(doc *models.Document, field string) string {
	switch field {
	case lifecycle.FieldSupplier:
		return doc.Supplier
	case lifecycle.FieldJobRef:
		return doc.JobRef
	case lifecycle.FieldNotes:
		return doc.Notes
	case lifecycle.FieldCurrency:
		return doc.Currency
	case lifecycle.FieldExpectedDate:
		if doc.ExpectedDate == nil {
			return ""
		}
		return doc.ExpectedDate.Format("2006-01-02")
	default:
		return ""
	}
}

func (s *Store) insertLine(ctx context.Context, tx bun.Tx, docID int64, line rows.Row, ccID *int64, holdingID int64) (int64, error) {
	var maxPos int64
	if err := tx.NewRaw(`SELECT COALESCE(MAX(position), 0) FROM document_lines WHERE document_id = ?`, docID).Scan(ctx, &maxPos); err != nil {
		return 0, err
	}
	model := models.DocumentLine{
		DocumentID:   docID,
		Kind:         string(line.Kind),
		Description:  line.Description,
		PartNumber:   line.PartNumber,
		CostCenterID: ccID,
		Quantity:     line.Quantity,
		UnitCost:     line.UnitCost,
		Hours:        line.Hours,
		ReceivedQty:  line.ReceivedQty,
		Position:     maxPos + 1,
	}
	if _, err := tx.NewInsert().Model(&model).Exec(ctx); err != nil {
		return 0, err
	}
	if err := ensureDefaultAllocation(ctx, tx, model, holdingID); err != nil {
		return 0, err
	}
	return model.ID, nil
}

func (s *Store) updateLine(ctx context.Context, tx bun.Tx, docID, pk int64, line rows.Row, ccID *int64, holdingID int64) error {
	var model models.DocumentLine
	if err := tx.NewSelect().Model(&model).Where("dl.id = ?", pk).Where("dl.document_id = ?", docID).Limit(1).Scan(ctx); err != nil {
		return err
	}
	model.Description = line.Description
	model.PartNumber = line.PartNumber
	model.CostCenterID = ccID
	model.Quantity = line.Quantity
	model.UnitCost = line.UnitCost
	model.Hours = line.Hours
	model.ReceivedQty = line.ReceivedQty
	model.UpdatedAt = time.Now()
	if _, err := tx.NewUpdate().Model(&model).WherePK().Exec(ctx); err != nil {
		return err
	}
	return ensureDefaultAllocation(ctx, tx, model, holdingID)
}

// ensureDefaultAllocation creates the single full-quantity allocation the
// first time a received quantity appears on a line: to the line's intended
// cost center, or the holding target when none was chosen.
func ensureDefaultAllocation(ctx context.Context, tx bun.Tx, line models.DocumentLine, holdingID int64) error {
	if line.ReceivedQty <= 0 {
		return nil
	}
	var existing int64
	if err := tx.NewRaw(`SELECT COUNT(*) FROM allocation_entries WHERE document_line_id = ?`, line.ID).Scan(ctx, &existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	target := holdingID
	if line.CostCenterID != nil {
		target = *line.CostCenterID
	}
	entry := models.AllocationEntry{
		DocumentLineID: line.ID,
		CostCenterID:   target,
		Quantity:       line.ReceivedQty,
	}
	_, err := tx.NewInsert().Model(&entry).Exec(ctx)
	return err
}

func deleteLine(ctx context.Context, tx bun.Tx, docID, pk int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM allocation_entries WHERE document_line_id = ?`, pk); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM document_lines WHERE id = ? AND document_id = ?`, pk, docID)
	return err
}

// deriveReceivingStatus recomputes the receiving status from line
// quantities. Only documents already in the receiving flow move; the
// draft -> submitted transition is always explicit.
func deriveReceivingStatus(ctx context.Context, tx bun.Tx, docID int64, current lifecycle.Status) (lifecycle.Status, error) {
	if current != lifecycle.StatusSubmitted && current != lifecycle.StatusPartiallyReceived {
		return current, nil
	}
	var total, anyReceived, fullyReceived int64
	if err := tx.NewRaw(`
SELECT COUNT(*) ,
       COALESCE(SUM(CASE WHEN received_qty > 0 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN received_qty >= quantity THEN 1 ELSE 0 END), 0)
FROM document_lines
WHERE document_id = ? AND quantity > 0`, docID).Scan(ctx, &total, &anyReceived, &fullyReceived); err != nil {
		return current, err
	}
	if total == 0 {
		return current, nil
	}
	derived := current
	switch {
	case fullyReceived == total:
		derived = lifecycle.StatusFullyReceived
	case anyReceived > 0:
		derived = lifecycle.StatusPartiallyReceived
	}
	if derived == current || !lifecycle.CanTransition(current, derived) {
		return current, nil
	}
	return derived, nil
}

func costCenterIDsByCode(ctx context.Context, tx bun.Tx) (map[string]int64, error) {
	var ccs []models.CostCenter
	if err := tx.NewSelect().Model(&ccs).Where("active = ?", true).Scan(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(ccs))
	for _, cc := range ccs {
		out[cc.Code] = cc.ID
	}
	return out, nil
}

// ListDocuments returns the documents index, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentListItem, error) {
	items := make([]DocumentListItem, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT d.id, d.doc_type, d.doc_number, d.status, COALESCE(d.supplier, '') AS supplier,
       COALESCE(d.job_ref, '') AS job_ref,
       (SELECT COUNT(*) FROM document_lines dl WHERE dl.document_id = d.id) AS line_count,
       strftime('%d/%m/%Y %H:%M', d.updated_at) AS updated_at_uk
FROM documents d
WHERE d.status != 'deleted'
ORDER BY d.updated_at DESC, d.id DESC`).Scan(ctx, &items)
	})
	return items, err
}

// CreateDocument inserts a fresh draft and returns it.
func (s *Store) CreateDocument(ctx context.Context, userID int64, docType string) (models.Document, error) {
	var doc models.Document
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		doc, err = s.insertDraft(ctx, tx, userID, docType)
		if err != nil {
			return err
		}
		if s.audit != nil {
			return s.audit.Write(ctx, tx, userID, "document.create", "documents", strconv.FormatInt(doc.ID, 10), nil, doc)
		}
		return nil
	})
	return doc, err
}

// LoadDocument returns a document and its lines in position order.
func (s *Store) LoadDocument(ctx context.Context, id int64) (models.Document, []models.DocumentLine, error) {
	var doc models.Document
	lines := make([]models.DocumentLine, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&doc).Where("d.id = ?", id).Limit(1).Scan(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(&lines).
			Where("document_id = ?", id).
			OrderExpr("position ASC, id ASC").
			Scan(ctx)
	})
	return doc, lines, err
}

// CostCenters returns the active allocation targets, holding account last.
func (s *Store) CostCenters(ctx context.Context) ([]models.CostCenter, error) {
	ccs := make([]models.CostCenter, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&ccs).
			Where("active = ?", true).
			OrderExpr("CASE WHEN kind = 'holding' THEN 1 ELSE 0 END, code ASC").
			Scan(ctx)
	})
	return ccs, err
}

// CostCenterCodesByID maps cost center primary keys to codes.
func (s *Store) CostCenterCodesByID(ctx context.Context) (map[int64]string, error) {
	ccs, err := s.CostCenters(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(ccs))
	for _, cc := range ccs {
		out[cc.ID] = cc.Code
	}
	return out, nil
}

// LoadAllocation returns a line's allocation entries as engine entries,
// together with the received quantity they must conserve.
func (s *Store) LoadAllocation(ctx context.Context, documentID, lineID int64) (entries []allocation.Entry, received float64, intendedTarget string, err error) {
	err = s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var line models.DocumentLine
		if err := tx.NewSelect().Model(&line).
			Where("dl.id = ?", lineID).
			Where("dl.document_id = ?", documentID).
			Limit(1).
			Scan(ctx); err != nil {
			return err
		}
		received = line.ReceivedQty
		if line.CostCenterID != nil {
			if err := tx.NewRaw(`SELECT code FROM cost_centers WHERE id = ?`, *line.CostCenterID).Scan(ctx, &intendedTarget); err != nil {
				return err
			}
		}
		var dbEntries []struct {
			Code     string  `bun:"code"`
			Quantity float64 `bun:"quantity"`
		}
		if err := tx.NewRaw(`
SELECT cc.code, ae.quantity
FROM allocation_entries ae
JOIN cost_centers cc ON cc.id = ae.cost_center_id
WHERE ae.document_line_id = ?
ORDER BY ae.id`, lineID).Scan(ctx, &dbEntries); err != nil {
			return err
		}
		for _, e := range dbEntries {
			entries = append(entries, allocation.Entry{LineID: LineRef(lineID), Target: e.Code, Quantity: e.Quantity})
		}
		return nil
	})
	return entries, received, intendedTarget, err
}

// SaveAllocation replaces a line's allocation after checking the
// conservation invariant against the line's current received quantity.
// Zero-quantity blank rows are dropped on save.
func (s *Store) SaveAllocation(ctx context.Context, userID, documentID, lineID int64, entries []allocation.Entry) (allocation.Validation, error) {
	var v allocation.Validation
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var line models.DocumentLine
		if err := tx.NewSelect().Model(&line).
			Where("dl.id = ?", lineID).
			Where("dl.document_id = ?", documentID).
			Limit(1).
			Scan(ctx); err != nil {
			return err
		}

		v = allocation.Validate(entries, line.ReceivedQty)
		if !v.Valid {
			return errValidation
		}

		ccIDByCode, err := costCenterIDsByCode(ctx, tx)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM allocation_entries WHERE document_line_id = ?`, lineID); err != nil {
			return err
		}
		for _, e := range entries {
			if e.Quantity == 0 && strings.TrimSpace(e.Target) == "" {
				continue
			}
			ccID, ok := ccIDByCode[strings.TrimSpace(e.Target)]
			if !ok {
				v.Valid = false
				v.Problems = append(v.Problems, fmt.Sprintf("unknown cost center %q", e.Target))
				return errValidation
			}
			entry := models.AllocationEntry{DocumentLineID: lineID, CostCenterID: ccID, Quantity: e.Quantity}
			if _, err := tx.NewInsert().Model(&entry).Exec(ctx); err != nil {
				return err
			}
		}

		if s.audit != nil {
			return s.audit.Write(ctx, tx, userID, "allocation.save", "document_lines", strconv.FormatInt(lineID, 10), nil, entries)
		}
		return nil
	})
	if errors.Is(err, errValidation) {
		return v, nil
	}
	return v, err
}

// TransitionStatus applies an explicit status change. Submission posts to
// the ledger first; a failed post leaves the document untouched in draft.
func (s *Store) TransitionStatus(ctx context.Context, userID, docID int64, to lifecycle.Status, poster ledger.Poster) (models.Document, error) {
	var doc models.Document
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&doc).Where("d.id = ?", docID).Limit(1).Scan(ctx)
	})
	if err != nil {
		return doc, err
	}

	from := lifecycle.Status(doc.Status)
	if err := lifecycle.Transition(from, to); err != nil {
		return doc, err
	}

	ledgerRef := doc.LedgerRef
	if to == lifecycle.StatusSubmitted && poster != nil {
		total, err := s.documentTotal(ctx, docID)
		if err != nil {
			return doc, err
		}
		ref, err := poster.Post(ctx, ledger.Submission{
			DocumentID: doc.ID,
			DocType:    doc.DocType,
			DocNumber:  doc.DocNumber,
			Supplier:   doc.Supplier,
			Currency:   doc.Currency,
			TotalCost:  total,
		})
		if err != nil {
			return doc, fmt.Errorf("ledger post failed: %w", err)
		}
		ledgerRef = ref
	}

	before := doc
	err = s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		// Re-check under the write lock; another request may have moved it.
		var current string
		if err := tx.NewRaw(`SELECT status FROM documents WHERE id = ?`, docID).Scan(ctx, &current); err != nil {
			return err
		}
		if lifecycle.Status(current) != from {
			return fmt.Errorf("document status changed to %s; reload and retry", current)
		}
		doc.Status = string(to)
		doc.LedgerRef = ledgerRef
		doc.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().Model(&doc).WherePK().Exec(ctx); err != nil {
			return err
		}
		if s.audit != nil {
			return s.audit.Write(ctx, tx, userID, "document.status", "documents", strconv.FormatInt(doc.ID, 10), before, doc)
		}
		return nil
	})
	return doc, err
}

// documentTotal sums quantity x unit cost over lines with confirmed
// prices.
func (s *Store) documentTotal(ctx context.Context, docID int64) (float64, error) {
	var total sql.NullFloat64
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT SUM(quantity * unit_cost)
FROM document_lines
WHERE document_id = ? AND unit_cost IS NOT NULL`, docID).Scan(ctx, &total)
	})
	return total.Float64, err
}
