package settings

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"costdesk/infrastructure/sqlite"
)

func openSettingsTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "settings-test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

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

func TestSaveQuietInterval_Upsert(t *testing.T) {
	db := openSettingsTestDB(t)

	if err := SaveQuietInterval(context.Background(), db, "purchase_order", 1000); err != nil {
		t.Fatalf("save interval: %v", err)
	}
	if err := SaveQuietInterval(context.Background(), db, "purchase_order", 2000); err != nil {
		t.Fatalf("update interval: %v", err)
	}

	overrides, err := LoadQuietIntervals(context.Background(), db)
	if err != nil {
		t.Fatalf("load intervals: %v", err)
	}
	if overrides["purchase_order"] != 2000 {
		t.Fatalf("expected latest value 2000, got %d", overrides["purchase_order"])
	}
}

func TestSaveQuietInterval_Validation(t *testing.T) {
	db := openSettingsTestDB(t)

	if err := SaveQuietInterval(context.Background(), db, "invoice", 1000); err == nil {
		t.Fatalf("expected unknown doc type to be rejected")
	}
	if err := SaveQuietInterval(context.Background(), db, "purchase_order", 50); err == nil {
		t.Fatalf("expected too-short interval to be rejected")
	}
	if err := SaveQuietInterval(context.Background(), db, "purchase_order", 60000); err == nil {
		t.Fatalf("expected too-long interval to be rejected")
	}
}

func TestQuietIntervalResolver_OverridesAndDefaults(t *testing.T) {
	db := openSettingsTestDB(t)

	resolve := QuietIntervalResolver(db)
	if got := resolve("delivery_receipt"); got != 500*time.Millisecond {
		t.Fatalf("expected built-in default 500ms, got %s", got)
	}

	if err := SaveQuietInterval(context.Background(), db, "delivery_receipt", 300); err != nil {
		t.Fatalf("save override: %v", err)
	}
	if got := resolve("delivery_receipt"); got != 300*time.Millisecond {
		t.Fatalf("expected stored override 300ms, got %s", got)
	}
	if got := resolve("job_cost_sheet"); got != 1500*time.Millisecond {
		t.Fatalf("expected untouched type to keep default, got %s", got)
	}
}
