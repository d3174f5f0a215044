package exports

import (
	"bytes"
	"database/sql"
	"testing"
	"time"
)

func TestRenderDocumentPDF_GeneratesPDF(t *testing.T) {
	t.Parallel()

	header := documentHeader{
		ID:           1,
		DocType:      "purchase_order",
		DocNumber:    "PO-00042",
		Status:       "submitted",
		Supplier:     "Acme Fasteners",
		JobRef:       "JOB1",
		Currency:     "GBP",
		ExpectedDate: "19/02/2026",
		LedgerRef:    "LGR-20260219-000001",
	}
	lines := []documentLineRow{
		{
			Kind:        "material",
			Description: "M8 bolts",
			PartNumber:  "M8-50",
			CostCenter:  "JOB1",
			Quantity:    200,
			UnitCost:    sql.NullFloat64{Float64: 0.12, Valid: true},
			ReceivedQty: 200,
		},
		{
			Kind:        "material",
			Description: "Angle brackets",
			PartNumber:  "AB-90",
			CostCenter:  "JOB1",
			Quantity:    40,
		},
		{
			Kind:        "time",
			Description: "Site fitting",
			CostCenter:  "JOB1",
			Hours:       6.5,
			UnitCost:    sql.NullFloat64{Float64: 45, Valid: true},
			Quantity:    6.5,
		},
	}

	pdf, err := renderDocumentPDF(header, lines, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("renderDocumentPDF returned error: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("expected non-empty pdf bytes")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf header, got %q", pdf[:8])
	}
}

func TestRenderCode128PNG(t *testing.T) {
	t.Parallel()

	img, err := renderCode128PNG("PO-00042", 900, 200)
	if err != nil {
		t.Fatalf("renderCode128PNG returned error: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatalf("expected png signature")
	}
}
