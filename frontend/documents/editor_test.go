package documents

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"costdesk/engine/autosave"
	"costdesk/engine/lifecycle"
	"costdesk/models"
)

// recordingDispatcher acknowledges every payload and assigns identifiers
// to temp rows, recording what it was sent.
type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []autosave.Payload
	nextID   int
}

func (d *recordingDispatcher) Dispatch(_ context.Context, p autosave.Payload) (autosave.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
	result := autosave.Result{Success: true, DocumentID: p.DocumentID, AssignedIDs: make(map[string]string)}
	for _, line := range p.Lines {
		if !line.Persisted() {
			d.nextID++
			result.AssignedIDs[line.Key] = fmt.Sprintf("L-%d", d.nextID)
		}
	}
	return result, nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.payloads)
}

func (d *recordingDispatcher) last() autosave.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.payloads[len(d.payloads)-1]
}

func testDocument(status string) models.Document {
	return models.Document{ID: 7, DocType: TypePurchaseOrder, DocNumber: "PO-00007", Status: status, Currency: "GBP"}
}

func persistedMaterial(id int64, desc string, qty float64) models.DocumentLine {
	return models.DocumentLine{ID: id, DocumentID: 7, Kind: "material", Description: desc, Quantity: qty, Position: id}
}

func newTestEditor(t *testing.T, status string, lines []models.DocumentLine) (*Editor, *recordingDispatcher) {
	t.Helper()
	d := &recordingDispatcher{}
	ed := NewEditor(testDocument(status), lines, map[int64]string{1: "JOB1"}, d, time.Hour)
	t.Cleanup(ed.Stop)
	return ed, d
}

func TestEditor_UntouchedDocumentFlushesNothing(t *testing.T) {
	ed, d := newTestEditor(t, "draft", []models.DocumentLine{persistedMaterial(1, "Widget", 5)})
	if err := ed.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if d.count() != 0 {
		t.Fatalf("expected no dispatch for an untouched document, got %d", d.count())
	}
}

func TestEditor_EditCollectsOnlyChangedRow(t *testing.T) {
	ed, d := newTestEditor(t, "draft", []models.DocumentLine{
		persistedMaterial(1, "Widget", 5),
		persistedMaterial(2, "Bracket", 3),
	})

	sections := ed.Sections()
	key := sections[0].Rows[0].Key
	if err := ed.EditRow(SectionMaterials, key, "quantity", "6"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := ed.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if d.count() != 1 {
		t.Fatalf("expected 1 dispatch, got %d", d.count())
	}
	payload := d.last()
	if len(payload.Lines) != 1 {
		t.Fatalf("expected only the changed row, got %d lines", len(payload.Lines))
	}
	if payload.Lines[0].Quantity != 6 {
		t.Fatalf("expected updated quantity, got %v", payload.Lines[0].Quantity)
	}
	if payload.HeaderChanged {
		t.Fatal("header was not edited")
	}
}

func TestEditor_BlankRowStaysLocal(t *testing.T) {
	ed, d := newTestEditor(t, "draft", nil)
	key, err := ed.AddRow(SectionMaterials)
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := ed.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if d.count() != 0 {
		t.Fatal("blank row must not be collected")
	}

	if err := ed.EditRow(SectionMaterials, key, "description", "Gasket"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := ed.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if d.count() != 1 {
		t.Fatalf("expected 1 dispatch after the row became substantive, got %d", d.count())
	}

	state := ed.State()
	if state.AssignedIDs[key] != "L-1" {
		t.Fatalf("expected assigned id L-1 for %s, got %q", key, state.AssignedIDs[key])
	}
}

func TestEditor_HeaderLockingFollowsStatus(t *testing.T) {
	ed, _ := newTestEditor(t, "submitted", nil)
	if err := ed.SetHeaderField(lifecycle.FieldSupplier, "Acme"); err == nil {
		t.Fatal("supplier must be locked after submission")
	}
	if err := ed.SetHeaderField(lifecycle.FieldNotes, "chased supplier"); err != nil {
		t.Fatalf("notes must stay editable: %v", err)
	}
}

func TestEditor_ReceivingModeRestrictsRowEdits(t *testing.T) {
	ed, _ := newTestEditor(t, "submitted", []models.DocumentLine{persistedMaterial(1, "Widget", 5)})
	key := ed.Sections()[0].Rows[0].Key

	if err := ed.EditRow(SectionMaterials, key, "description", "changed"); err == nil {
		t.Fatal("description must be locked during receiving")
	}
	if err := ed.EditRow(SectionMaterials, key, "received_qty", "3"); err != nil {
		t.Fatalf("received qty must stay editable: %v", err)
	}
	if _, err := ed.AddRow(SectionMaterials); err == nil {
		t.Fatal("rows must not be addable during receiving")
	}
	if err := ed.DeleteRow(SectionMaterials, key); err == nil {
		t.Fatal("rows must not be deletable during receiving")
	}
}

func TestEditor_FullyReceivedLocksEverythingButNotes(t *testing.T) {
	ed, _ := newTestEditor(t, "fully_received", []models.DocumentLine{persistedMaterial(1, "Widget", 5)})
	key := ed.Sections()[0].Rows[0].Key

	if err := ed.EditRow(SectionMaterials, key, "received_qty", "9"); err == nil {
		t.Fatal("rows must be locked once fully received")
	}
	if err := ed.SetHeaderField(lifecycle.FieldNotes, "done"); err != nil {
		t.Fatalf("notes must stay editable: %v", err)
	}
}

func TestEditor_DeletePersistedRowQueuesIt(t *testing.T) {
	ed, d := newTestEditor(t, "draft", []models.DocumentLine{persistedMaterial(1, "Widget", 5)})
	key := ed.Sections()[0].Rows[0].Key

	if err := ed.DeleteRow(SectionMaterials, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ed.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	payload := d.last()
	if len(payload.DeletedLineIDs) != 1 || payload.DeletedLineIDs[0] != "L-1" {
		t.Fatalf("expected deletion of L-1, got %v", payload.DeletedLineIDs)
	}
}

func TestEditor_StatusTransitionRecomputesProfile(t *testing.T) {
	ed, _ := newTestEditor(t, "draft", nil)
	if _, err := ed.AddRow(SectionMaterials); err != nil {
		t.Fatalf("add row in draft: %v", err)
	}
	ed.ApplyStatus(lifecycle.StatusSubmitted)
	if _, err := ed.AddRow(SectionMaterials); err == nil {
		t.Fatal("add row must fail after submission")
	}
}
