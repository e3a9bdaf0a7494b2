package maintenance

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneDirRemovesOnlyStaleFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	now := time.Now()

	stale := filepath.Join(dir, "old.txt")
	fresh := filepath.Join(dir, "new.txt")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	old := now.Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := pruneDir(dir, 14*24*time.Hour, now)
	if err != nil {
		t.Fatalf("pruneDir: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale file survived")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
}

func TestPruneDirMissingDirIsNoop(t *testing.T) {
	t.Parallel()
	removed, err := pruneDir(filepath.Join(t.TempDir(), "nope"), time.Hour, time.Now())
	if err != nil || removed != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", removed, err)
	}
}
