package database

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	tables := []string{
		"users", "parent_settings", "tasks", "submissions", "submission_evidence",
		"rewards", "reward_redemptions", "points_ledger", "badges", "child_badges",
		"announcements", "announcement_reads", "announcement_dismissals", "push_subscriptions",
	}
	for _, name := range tables {
		var got string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&got)
		if err != nil {
			t.Errorf("table %s: %v", name, err)
		}
	}

	var badges int
	if err := db.QueryRow(`SELECT COUNT(*) FROM badges`).Scan(&badges); err != nil {
		t.Fatalf("count badges: %v", err)
	}
	if badges != 7 {
		t.Errorf("badges = %d, want 7", badges)
	}

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestOpenFileTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	// Migrations are idempotent; the badge seed must not duplicate.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()

	var badges int
	if err := db.QueryRow(`SELECT COUNT(*) FROM badges`).Scan(&badges); err != nil {
		t.Fatalf("count badges: %v", err)
	}
	if badges != 7 {
		t.Errorf("badges = %d, want 7", badges)
	}
}
