package exports

import (
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/uptrace/bun"

	"costdesk/infrastructure/sqlite"
)

type documentHeader struct {
	ID           int64  `bun:"id"`
	DocType      string `bun:"doc_type"`
	DocNumber    string `bun:"doc_number"`
	Status       string `bun:"status"`
	Supplier     string `bun:"supplier"`
	JobRef       string `bun:"job_ref"`
	Currency     string `bun:"currency"`
	ExpectedDate string `bun:"expected_date"`
	LedgerRef    string `bun:"ledger_ref"`
}

type documentLineRow struct {
	Kind        string          `bun:"kind"`
	Description string          `bun:"description"`
	PartNumber  string          `bun:"part_number"`
	CostCenter  string          `bun:"cost_center"`
	Quantity    float64         `bun:"quantity"`
	UnitCost    sql.NullFloat64 `bun:"unit_cost"`
	Hours       float64         `bun:"hours"`
	ReceivedQty float64         `bun:"received_qty"`
}

func loadDocumentHeader(ctx context.Context, db *sqlite.DB, docID int64) (documentHeader, error) {
	var h documentHeader
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT d.id, d.doc_type, d.doc_number, d.status,
       COALESCE(d.supplier, '') AS supplier,
       COALESCE(d.job_ref, '') AS job_ref,
       d.currency,
       COALESCE(strftime('%d/%m/%Y', d.expected_date), '') AS expected_date,
       COALESCE(d.ledger_ref, '') AS ledger_ref
FROM documents d
WHERE d.id = ?`, docID).Scan(ctx, &h)
	})
	return h, err
}

func loadDocumentLines(ctx context.Context, db *sqlite.DB, docID int64) ([]documentLineRow, error) {
	lines := make([]documentLineRow, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT dl.kind,
       COALESCE(dl.description, '') AS description,
       COALESCE(dl.part_number, '') AS part_number,
       COALESCE(cc.code, '') AS cost_center,
       dl.quantity, dl.unit_cost, dl.hours, dl.received_qty
FROM document_lines dl
LEFT JOIN cost_centers cc ON cc.id = dl.cost_center_id
WHERE dl.document_id = ?
ORDER BY dl.position ASC, dl.id ASC`, docID).Scan(ctx, &lines)
	})
	return lines, err
}

// writeDocumentCSV exports a single document's lines. Unconfirmed unit
// costs are exported as TBC, matching what the editor shows.
func writeDocumentCSV(ctx context.Context, db *sqlite.DB, w io.Writer, docID int64) error {
	header, err := loadDocumentHeader(ctx, db, docID)
	if err != nil {
		return err
	}
	lines, err := loadDocumentLines(ctx, db, docID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"doc_number", "kind", "description", "part_number", "cost_center", "quantity", "unit_cost", "line_total", "hours", "received_qty"}); err != nil {
		return err
	}
	for _, line := range lines {
		unitCost := "TBC"
		lineTotal := ""
		if line.UnitCost.Valid {
			unitCost = formatFloat(line.UnitCost.Float64)
			lineTotal = formatFloat(line.Quantity * line.UnitCost.Float64)
		}
		record := []string{
			header.DocNumber,
			line.Kind,
			line.Description,
			line.PartNumber,
			line.CostCenter,
			formatFloat(line.Quantity),
			unitCost,
			lineTotal,
			formatFloat(line.Hours),
			formatFloat(line.ReceivedQty),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

// writeDocumentStatusCSV exports the status ledger across all documents.
func writeDocumentStatusCSV(ctx context.Context, db *sqlite.DB, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"doc_number", "doc_type", "status", "supplier", "job_ref", "ledger_ref", "line_count", "updated_at"}); err != nil {
		return err
	}

	type row struct {
		DocNumber string `bun:"doc_number"`
		DocType   string `bun:"doc_type"`
		Status    string `bun:"status"`
		Supplier  string `bun:"supplier"`
		JobRef    string `bun:"job_ref"`
		LedgerRef string `bun:"ledger_ref"`
		LineCount int64  `bun:"line_count"`
		UpdatedAt string `bun:"updated_at"`
	}

	records := make([]row, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT d.doc_number, d.doc_type, d.status,
       COALESCE(d.supplier, '') AS supplier,
       COALESCE(d.job_ref, '') AS job_ref,
       COALESCE(d.ledger_ref, '') AS ledger_ref,
       (SELECT COUNT(*) FROM document_lines dl WHERE dl.document_id = d.id) AS line_count,
       strftime('%d/%m/%Y %H:%M', d.updated_at) AS updated_at
FROM documents d
WHERE d.status != 'deleted'
ORDER BY d.id ASC`).Scan(ctx, &records)
	})
	if err != nil {
		return err
	}

	for _, r := range records {
		if err := writer.Write([]string{r.DocNumber, r.DocType, r.Status, r.Supplier, r.JobRef, r.LedgerRef, toString(r.LineCount), r.UpdatedAt}); err != nil {
			return err
		}
	}
	return writer.Error()
}

func toString(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
