package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"costdesk/engine/autosave"
	"costdesk/frontend/documents"
	"costdesk/infrastructure/sqlite"
)

const (
	minQuietMs = 200
	maxQuietMs = 10000
)

// SaveQuietInterval stores an autosave debounce override for one document
// type, in milliseconds.
func SaveQuietInterval(ctx context.Context, db *sqlite.DB, docType string, quietMs int64) error {
	if !documents.KnownDocType(docType) {
		return fmt.Errorf("unknown document type %q", docType)
	}
	if quietMs < minQuietMs || quietMs > maxQuietMs {
		return fmt.Errorf("quiet interval must be between %d and %d ms", minQuietMs, maxQuietMs)
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS autosave_settings (
  doc_type TEXT PRIMARY KEY,
  quiet_ms INTEGER NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
INSERT INTO autosave_settings (doc_type, quiet_ms, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(doc_type) DO UPDATE SET
  quiet_ms = excluded.quiet_ms,
  updated_at = CURRENT_TIMESTAMP`, docType, quietMs)
		return err
	})
}

// LoadQuietIntervals returns the stored overrides, keyed by document type.
func LoadQuietIntervals(ctx context.Context, db *sqlite.DB) (map[string]int64, error) {
	type row struct {
		DocType string `bun:"doc_type"`
		QuietMs int64  `bun:"quiet_ms"`
	}
	var stored []row
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var exists int64
		if err := tx.NewRaw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'autosave_settings'`).Scan(ctx, &exists); err != nil {
			return err
		}
		if exists == 0 {
			return nil
		}
		return tx.NewRaw(`SELECT doc_type, quiet_ms FROM autosave_settings`).Scan(ctx, &stored)
	})
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]int64, len(stored))
	for _, r := range stored {
		overrides[r.DocType] = r.QuietMs
	}
	return overrides, nil
}

// QuietIntervalResolver builds the per-type debounce lookup used by editor
// sessions. Stored overrides win; anything else falls back to the built-in
// defaults.
func QuietIntervalResolver(db *sqlite.DB) func(docType string) time.Duration {
	return func(docType string) time.Duration {
		overrides, err := LoadQuietIntervals(context.Background(), db)
		if err == nil {
			if ms, ok := overrides[docType]; ok {
				return time.Duration(ms) * time.Millisecond
			}
		}
		return autosave.QuietIntervalFor(docType)
	}
}
