package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q; want wal", journalMode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d; want 1", fk)
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	version, err := db.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 1 {
		t.Errorf("Version() = %d; want 1", version)
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='progress'").Scan(&name)
	if err != nil {
		t.Errorf("table progress not found: %v", err)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	version, _ = db.Version(ctx)
	if version != 1 {
		t.Errorf("Version() after second Migrate = %d; want 1", version)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"001_progress.sql", 1, false},
		{"012_add_index.sql", 12, false},
		{"readme.sql", 0, true},
		{"abc_x.sql", 0, true},
	}
	for _, tt := range tests {
		got, err := parseVersion(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVersion(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVersion(%q) = %d; want %d", tt.name, got, tt.want)
		}
	}
}

func TestCheckpoint(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `INSERT INTO progress (learner_id, xp, level, streak, last_login_date,
		current_day, completed_days, quiz_scores, total_quizzes_taken,
		completed_challenges, embedded_streak, created_at, updated_at)
		VALUES ('l1', 40, 1, 0, '2024-06-12', '1', '[]', '{}', 0, '[]', 0, datetime('now'), datetime('now'))`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := db.Checkpoint(ctx); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	var xp int
	if err := db.GetContext(ctx, &xp, "SELECT xp FROM progress WHERE learner_id = 'l1'"); err != nil {
		t.Fatalf("read after checkpoint: %v", err)
	}
	if xp != 40 {
		t.Errorf("xp = %d, want 40", xp)
	}
}
