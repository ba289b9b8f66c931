package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestNewSnapshotID(t *testing.T) {
	a, b := NewSnapshotID(), NewSnapshotID()
	if a == b {
		t.Error("expected distinct ids")
	}
	id, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("invalid uuid %q: %v", a, err)
	}
	if id.Version() != 4 {
		t.Errorf("expected version 4, got %d", id.Version())
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.tmp")
	dst := filepath.Join(dir, "nested", "b.wav")

	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MakeDir(filepath.Dir(dst)); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if FileExists(src) || !FileExists(dst) {
		t.Error("expected file to move")
	}
	if err := MoveFile(src, dst); err == nil {
		t.Error("expected error moving a missing file")
	}
}
