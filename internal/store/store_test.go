package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_CreatesDatabaseFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing after New: %v", err)
	}
}

func TestNew_Schema(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		kind string
		name string
	}{
		{"table", "runs"},
		{"table", "detections"},
		{"table", "thumbnails"},
		{"index", "idx_detections_run_id"},
	}

	for _, tt := range tests {
		t.Run(tt.kind+" "+tt.name, func(t *testing.T) {
			var name string
			err := s.DB().QueryRow(
				"SELECT name FROM sqlite_master WHERE type = ? AND name = ?",
				tt.kind, tt.name,
			).Scan(&name)
			if err != nil {
				t.Errorf("%s %q missing: %v", tt.kind, tt.name, err)
			}
		})
	}
}

func TestNew_ReopenKeepsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	run := &Run{Kind: RunKindVideo, Source: "clip.mp4"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	s.Close()

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("migrations should be repeatable: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Runs().GetByID(run.ID); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}

func TestStore_ForeignKeysOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	s.DB().SetMaxOpenConns(4)

	// Hold connections open so later statements land on fresh ones.
	for i := 0; i < 3; i++ {
		conn, err := s.DB().Conn(context.Background())
		if err != nil {
			t.Fatalf("failed to get connection: %v", err)
		}
		defer conn.Close()

		var enabled int
		if err := conn.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("failed to read pragma: %v", err)
		}
		if enabled != 1 {
			t.Errorf("connection %d: foreign keys disabled", i)
		}
	}

	_, err := s.DB().Exec(
		"INSERT INTO thumbnails (run_id, data) VALUES (?, ?)",
		"no-such-run", []byte{0xff},
	)
	if err == nil {
		t.Error("thumbnail for a missing run should violate the foreign key")
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close returned error: %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("queries should fail after close")
	}
}
