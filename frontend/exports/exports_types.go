package exports

import (
	"context"

	"github.com/uptrace/bun"

	"costdesk/frontend/documents"
	"costdesk/infrastructure/sqlite"
)

type DocumentOption struct {
	ID        int64  `bun:"id"`
	DocType   string `bun:"doc_type"`
	DocNumber string `bun:"doc_number"`
	Supplier  string `bun:"supplier"`
	Status    string `bun:"status"`
	LineCount int64  `bun:"line_count"`
}

type PageData struct {
	Documents []DocumentOption
}

func (o DocumentOption) TypeLabel() string {
	return documents.TypeLabel(o.DocType)
}

func listExportDocuments(ctx context.Context, db *sqlite.DB) ([]DocumentOption, error) {
	var options []DocumentOption
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT d.id, d.doc_type, d.doc_number,
       COALESCE(d.supplier, '') AS supplier,
       d.status,
       (SELECT COUNT(*) FROM document_lines l WHERE l.document_id = d.id AND l.deleted_at IS NULL) AS line_count
FROM documents d
WHERE d.status <> 'deleted'
ORDER BY d.id DESC`).Scan(ctx, &options)
	})
	if err != nil {
		return nil, err
	}
	return options, nil
}
