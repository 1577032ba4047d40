package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewManager_CreatesDestDir(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "databases")

	m, err := NewManager(dest, 0)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	info, err := os.Stat(dest)
	if err != nil || !info.IsDir() {
		t.Fatalf("destination dir not created: %v", err)
	}
	if m.DestDir() != dest {
		t.Errorf("DestDir() = %q, want %q", m.DestDir(), dest)
	}
}

func TestManager_WriteFile(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	path, n, err := m.WriteFile("ripe.db.route.gz", strings.NewReader("route data"))
	if err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if n != int64(len("route data")) {
		t.Errorf("bytes written = %d, want %d", n, len("route data"))
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(got) != "route data" {
		t.Errorf("content = %q, want %q", got, "route data")
	}

	// No partial file left behind
	if m.FileExists(path + partialSuffix) {
		t.Error("partial file left after successful write")
	}
}

func TestManager_WriteFile_ReplacesExisting(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := m.WriteFile("afrinic.db.gz", strings.NewReader("old")); err != nil {
		t.Fatal(err)
	}
	path, _, err := m.WriteFile("afrinic.db.gz", strings.NewReader("new"))
	if err != nil {
		t.Fatal(err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestManager_WriteFile_StripsPathComponents(t *testing.T) {
	dest := t.TempDir()
	m, err := NewManager(dest, 0)
	if err != nil {
		t.Fatal(err)
	}

	path, _, err := m.WriteFile("../escape.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dest {
		t.Errorf("file written outside destination: %s", path)
	}
}

func TestManager_MoveIntoDest(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "arin_db.txt")
	if err := os.WriteFile(src, []byte("bulk data"), 0644); err != nil {
		t.Fatal(err)
	}

	path, err := m.MoveIntoDest(src, "arin_db.txt")
	if err != nil {
		t.Fatalf("MoveIntoDest() error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading moved file: %v", err)
	}
	if string(got) != "bulk data" {
		t.Errorf("content = %q, want %q", got, "bulk data")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file still present after move")
	}
}

func TestManager_CopyIntoDest(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "arin_db.txt")
	if err := os.WriteFile(src, []byte("copied bulk"), 0644); err != nil {
		t.Fatal(err)
	}

	path, err := m.copyIntoDest(src, "arin_db.txt")
	if err != nil {
		t.Fatalf("copyIntoDest() error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "copied bulk" {
		t.Errorf("content = %q, want %q", got, "copied bulk")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file still present after copy fallback")
	}
}

func TestManager_CleanStalePartials(t *testing.T) {
	dest := t.TempDir()
	m, err := NewManager(dest, 0)
	if err != nil {
		t.Fatal(err)
	}

	stale := filepath.Join(dest, "lacnic.db.gz"+partialSuffix)
	fresh := filepath.Join(dest, "radb.db.gz"+partialSuffix)
	keep := filepath.Join(dest, "ripe.db.route.gz")
	for _, p := range []string{stale, fresh, keep} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	n, err := m.CleanStalePartials(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanStalePartials() error: %v", err)
	}
	if n != 1 {
		t.Errorf("cleaned %d files, want 1", n)
	}
	if m.FileExists(stale) {
		t.Error("stale partial not removed")
	}
	if !m.FileExists(fresh) || !m.FileExists(keep) {
		t.Error("fresh partial or completed file removed")
	}
}
