package autosave

import "testing"

func TestDeletionQueue_OrderAndDedupe(t *testing.T) {
	q := NewDeletionQueue()
	q.Enqueue("L-3")
	q.Enqueue("L-1")
	q.Enqueue("L-3")
	q.Enqueue("")

	got := q.Pending()
	if len(got) != 2 || got[0] != "L-3" || got[1] != "L-1" {
		t.Fatalf("unexpected queue contents: %v", got)
	}
}

func TestDeletionQueue_PartialAck(t *testing.T) {
	q := NewDeletionQueue()
	q.Enqueue("L-1")
	q.Enqueue("L-2")

	// The server confirmed only the first id; the second stays queued.
	q.Ack([]string{"L-1"})
	if got := q.Pending(); len(got) != 1 || got[0] != "L-2" {
		t.Fatalf("expected [L-2] after partial ack, got %v", got)
	}

	// Re-enqueueing an acked id works again.
	q.Enqueue("L-1")
	if q.Len() != 2 {
		t.Fatalf("expected 2 queued, got %d", q.Len())
	}
}

func TestSnapshotStore_ChangeDetection(t *testing.T) {
	s := NewSnapshotStore()
	if !s.Changed("mat-1", `{"q":1}`) {
		t.Fatalf("unknown keys are always changed")
	}
	s.Commit("mat-1", `{"q":1}`)
	if s.Changed("mat-1", `{"q":1}`) {
		t.Fatalf("identical form must not be changed")
	}
	if !s.Changed("mat-1", `{"q":2}`) {
		t.Fatalf("different form must be changed")
	}
	s.Forget("mat-1")
	if !s.Changed("mat-1", `{"q":1}`) {
		t.Fatalf("forgotten keys are changed again")
	}
}
