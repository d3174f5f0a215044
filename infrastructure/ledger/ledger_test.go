package ledger

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestLocalPosterAssignsSequentialRefs(t *testing.T) {
	p := NewLocalPoster()
	p.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	sub := Submission{DocumentID: 1, DocType: "purchase_order", DocNumber: "PO-00001"}
	first, err := p.Post(context.Background(), sub)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if first != "LGR-20260314-000001" {
		t.Fatalf("unexpected ref %q", first)
	}

	sub.DocumentID = 2
	second, err := p.Post(context.Background(), sub)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if second == first {
		t.Fatal("expected distinct refs for distinct posts")
	}
	if !strings.HasSuffix(second, "000002") {
		t.Fatalf("unexpected ref %q", second)
	}
}

func TestLocalPosterRejectsUnsavedDocument(t *testing.T) {
	p := NewLocalPoster()
	if _, err := p.Post(context.Background(), Submission{DocNumber: "PO-00001"}); err == nil {
		t.Fatal("expected error for unsaved document")
	}
}

func TestLocalPosterRejectsMissingNumber(t *testing.T) {
	p := NewLocalPoster()
	if _, err := p.Post(context.Background(), Submission{DocumentID: 7}); err == nil {
		t.Fatal("expected error for missing document number")
	}
}
