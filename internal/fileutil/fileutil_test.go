package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"crate/internal/fileutil"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	dst := filepath.Join(dir, "dst.mp3")
	payload := []byte("not really audio, but good enough")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("content mismatch: %q", got)
	}
	// Source must be untouched.
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source missing after copy: %v", err)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a", "track.flac")
	dst := filepath.Join(dir, "b", "track.flac")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	if err := fileutil.EnsureParent(dst); err != nil {
		t.Fatalf("EnsureParent: %v", err)
	}

	if err := fileutil.MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if fileutil.Exists(src) {
		t.Fatal("source still present after move")
	}
	if !fileutil.Exists(dst) {
		t.Fatal("destination missing after move")
	}
}

func TestLinkFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.ogg")
	dst := filepath.Join(dir, "dst.ogg")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if err := fileutil.LinkFile(src, dst); err != nil {
		t.Fatalf("LinkFile: %v", err)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat src: %v", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat dst: %v", err)
	}
	if !os.SameFile(srcInfo, dstInfo) {
		t.Fatal("expected hardlink to same inode")
	}
}

func TestEnsureParentIdempotent(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "x", "y", "z.mp3")
	if err := fileutil.EnsureParent(dst); err != nil {
		t.Fatalf("EnsureParent: %v", err)
	}
	if err := fileutil.EnsureParent(dst); err != nil {
		t.Fatalf("EnsureParent twice: %v", err)
	}
	if !fileutil.Exists(filepath.Join(dir, "x", "y")) {
		t.Fatal("parent not created")
	}
}
