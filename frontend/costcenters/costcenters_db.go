package costcenters

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/uptrace/bun"

	"costdesk/infrastructure/audit"
	"costdesk/infrastructure/sqlite"
)

// holdingCode is seeded by migration and can never be deactivated; it is
// the fallback target for unallocated receipts.
const holdingCode = "HOLD"

type ImportSummary struct {
	Inserted int
	Updated  int
	Errors   int
}

type CostCenterRecord struct {
	ID        int64  `bun:"id"`
	Code      string `bun:"code"`
	Name      string `bun:"name"`
	Kind      string `bun:"kind"`
	Active    bool   `bun:"active"`
	UpdatedAt string `bun:"updated_at"`
}

func ListCostCenters(ctx context.Context, db *sqlite.DB) ([]CostCenterRecord, error) {
	records := make([]CostCenterRecord, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT id, code, name, kind, active,
       strftime('%d/%m/%Y %H:%M', updated_at) AS updated_at
FROM cost_centers
ORDER BY code COLLATE NOCASE ASC`).Scan(ctx, &records)
	})
	return records, err
}

// ImportCSV upserts cost centers from a code,name[,kind] CSV. Bad rows
// are counted, not fatal; the valid remainder still lands.
func ImportCSV(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, userID int64, reader io.Reader) (ImportSummary, error) {
	summary := ImportSummary{}
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return summary, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "code") || !strings.EqualFold(strings.TrimSpace(header[1]), "name") {
		return summary, fmt.Errorf("invalid CSV header; expected code,name[,kind]")
	}

	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for {
			record, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				summary.Errors++
				continue
			}
			if len(record) < 2 {
				summary.Errors++
				continue
			}
			code := strings.ToUpper(strings.TrimSpace(record[0]))
			name := strings.TrimSpace(record[1])
			kind := "job"
			if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
				kind = strings.ToLower(strings.TrimSpace(record[2]))
			}
			if code == "" || name == "" {
				summary.Errors++
				continue
			}
			if kind != "job" && kind != "overhead" && kind != "holding" {
				summary.Errors++
				continue
			}

			var exists int
			if err := tx.NewRaw("SELECT COUNT(1) FROM cost_centers WHERE code = ?", code).Scan(ctx, &exists); err != nil {
				return err
			}
			if exists > 0 {
				summary.Updated++
			} else {
				summary.Inserted++
			}

			if _, err := tx.ExecContext(ctx, `
INSERT INTO cost_centers (code, name, kind, active, created_at, updated_at)
VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(code) DO UPDATE SET
  name = excluded.name,
  kind = excluded.kind,
  active = 1,
  updated_at = CURRENT_TIMESTAMP`, code, name, kind); err != nil {
				summary.Errors++
			}
		}

		if auditSvc != nil {
			after := map[string]any{"inserted": summary.Inserted, "updated": summary.Updated, "errors": summary.Errors}
			if err := auditSvc.Write(ctx, tx, userID, "costcenter.import", "cost_centers", "batch", nil, after); err != nil {
				return err
			}
		}
		return nil
	})
	return summary, err
}

// Deactivate retires a cost center from new allocations without touching
// the history that references it.
func Deactivate(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, userID, id int64) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var code string
		if err := tx.NewRaw(`SELECT code FROM cost_centers WHERE id = ?`, id).Scan(ctx, &code); err != nil {
			return err
		}
		if code == holdingCode {
			return fmt.Errorf("the holding cost center cannot be deactivated")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cost_centers SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
			return err
		}
		if auditSvc != nil {
			return auditSvc.Write(ctx, tx, userID, "costcenter.deactivate", "cost_centers", code, nil, nil)
		}
		return nil
	})
}
