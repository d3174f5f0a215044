package costcenters

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/uptrace/bun"

	"costdesk/infrastructure/sqlite"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "costcenters-test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func costCenterByCode(t *testing.T, db *sqlite.DB, code string) (name string, active bool) {
	t.Helper()
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT name, active FROM cost_centers WHERE code = ?`, code).Scan(ctx, &name, &active)
	})
	if err != nil {
		t.Fatalf("load cost center %s: %v", code, err)
	}
	return name, active
}

func TestImportCSV_InsertsAndUpdates(t *testing.T) {
	db := openTestDB(t)

	csv := "code,name,kind\nJOB1,Kitchen refit,job\nOVH1,Workshop overhead,overhead\n"
	summary, err := ImportCSV(context.Background(), db, nil, 1, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Inserted != 2 || summary.Updated != 0 || summary.Errors != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	csv = "code,name\njob1,Kitchen refit phase 2\n"
	summary, err = ImportCSV(context.Background(), db, nil, 1, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if summary.Updated != 1 {
		t.Fatalf("expected code to be upserted case-insensitively, got %+v", summary)
	}
	name, active := costCenterByCode(t, db, "JOB1")
	if name != "Kitchen refit phase 2" || !active {
		t.Fatalf("unexpected record name=%q active=%v", name, active)
	}
}

func TestImportCSV_CountsBadRows(t *testing.T) {
	db := openTestDB(t)

	csv := "code,name,kind\nJOB1,Kitchen refit\n,missing code\nJOB2,Bad kind,airplane\n"
	summary, err := ImportCSV(context.Background(), db, nil, 1, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Inserted != 1 || summary.Errors != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestImportCSV_RejectsWrongHeader(t *testing.T) {
	db := openTestDB(t)
	if _, err := ImportCSV(context.Background(), db, nil, 1, strings.NewReader("sku,description\nX,Y\n")); err == nil {
		t.Fatal("expected header error")
	}
}

func TestDeactivate_ProtectsHoldingTarget(t *testing.T) {
	db := openTestDB(t)

	var holdID int64
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT id FROM cost_centers WHERE code = 'HOLD'`).Scan(ctx, &holdID)
	})
	if err != nil {
		t.Fatalf("holding target should be seeded: %v", err)
	}
	if err := Deactivate(context.Background(), db, nil, 1, holdID); err == nil {
		t.Fatal("expected holding target to be protected")
	}

	summary, err := ImportCSV(context.Background(), db, nil, 1, strings.NewReader("code,name\nJOB1,Kitchen refit\n"))
	if err != nil || summary.Inserted != 1 {
		t.Fatalf("seed job: err=%v summary=%+v", err, summary)
	}
	var jobID int64
	err = db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT id FROM cost_centers WHERE code = 'JOB1'`).Scan(ctx, &jobID)
	})
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if err := Deactivate(context.Background(), db, nil, 1, jobID); err != nil {
		t.Fatalf("deactivate job: %v", err)
	}
	if _, active := costCenterByCode(t, db, "JOB1"); active {
		t.Fatal("expected JOB1 to be inactive")
	}
}
