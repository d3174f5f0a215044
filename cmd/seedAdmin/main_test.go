package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveMigrationsDir(t *testing.T) {
	dir, err := resolveMigrationsDir()
	if err != nil {
		t.Fatalf("resolveMigrationsDir: %v", err)
	}

	if !filepath.IsAbs(dir) {
		t.Errorf("expected absolute path, got %q", dir)
	}

	// The resolved dir must hold the schema the seeder applies, not
	// just any directory that happens to exist.
	for _, name := range []string{"0001_init.sql", "0002_seed_holding_target.sql"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected migration %s in %s: %v", name, dir, err)
		}
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("COSTDESK_TEST_KEY", "set")
	if got := getenv("COSTDESK_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("getenv with value set = %q, want %q", got, "set")
	}

	t.Setenv("COSTDESK_TEST_KEY", "")
	if got := getenv("COSTDESK_TEST_KEY", "fallback"); got != "fallback" {
		t.Errorf("getenv with empty value = %q, want %q", got, "fallback")
	}
}
