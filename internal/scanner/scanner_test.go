package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crate/internal/logging"
	"crate/internal/testsupport"
)

func TestIsAudioFile(t *testing.T) {
	for _, path := range []string{"a.mp3", "b.FLAC", "dir/c.ogg", "d.m4a", "e.wav"} {
		if !IsAudioFile(path) {
			t.Errorf("%s should be recognized", path)
		}
	}
	for _, path := range []string{"cover.jpg", "notes.txt", "album.cue", "song.mp3.bak", "noext"} {
		if IsAudioFile(path) {
			t.Errorf("%s should not be recognized", path)
		}
	}
}

func TestScanAddsAndSkipsUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	s := New(cfg, store, logging.NewNop())
	ctx := context.Background()

	root := cfg.Paths.LibraryDir
	testsupport.WriteFile(t, filepath.Join(root, "a.mp3"), 1024)
	testsupport.WriteFile(t, filepath.Join(root, "sub", "b.flac"), 2048)
	testsupport.WriteFileContent(t, filepath.Join(root, "cover.jpg"), []byte("img"))

	result, err := s.Scan(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if result.Scanned != 2 || result.Added != 2 {
		t.Fatalf("first pass: %+v", result)
	}

	track, err := store.GetByPath(ctx, filepath.Join(root, "a.mp3"))
	if err != nil || track == nil {
		t.Fatalf("track not cataloged: %v", err)
	}
	if track.Title != "a" {
		t.Errorf("untagged file should fall back to stem title, got %q", track.Title)
	}
	if track.Format != "mp3" {
		t.Errorf("format = %q", track.Format)
	}

	result, err = s.Scan(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if result.Unchanged != 2 || result.Added != 0 || result.Updated != 0 {
		t.Fatalf("second pass should skip unchanged files: %+v", result)
	}
}

func TestScanDetectsModification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	s := New(cfg, store, logging.NewNop())
	ctx := context.Background()

	root := cfg.Paths.LibraryDir
	path := filepath.Join(root, "a.mp3")
	testsupport.WriteFile(t, path, 1024)
	if _, err := s.Scan(ctx, root); err != nil {
		t.Fatal(err)
	}

	track, err := store.GetByPath(ctx, path)
	if err != nil || track == nil {
		t.Fatal(err)
	}
	if err := store.SetPartialHash(ctx, track.ID, "stale"); err != nil {
		t.Fatal(err)
	}

	testsupport.WriteFile(t, path, 4096)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	result, err := s.Scan(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected one update: %+v", result)
	}
	track, err = store.GetByPath(ctx, path)
	if err != nil || track == nil {
		t.Fatal(err)
	}
	if track.FileSize != 4096 {
		t.Errorf("size not refreshed: %d", track.FileSize)
	}
	if track.PartialHash != "" {
		t.Error("stale content hash survived a rescan of changed content")
	}
}

func TestScanMarksMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	s := New(cfg, store, logging.NewNop())
	ctx := context.Background()

	root := cfg.Paths.LibraryDir
	keep := filepath.Join(root, "keep.mp3")
	gone := filepath.Join(root, "gone.mp3")
	testsupport.WriteFile(t, keep, 1024)
	testsupport.WriteFile(t, gone, 1024)
	if _, err := s.Scan(ctx, root); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	result, err := s.Scan(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if result.Missing != 1 {
		t.Fatalf("expected one missing track: %+v", result)
	}

	track, err := store.GetByPath(ctx, gone)
	if err != nil || track == nil {
		t.Fatal(err)
	}
	if !track.Missing {
		t.Error("vanished file not marked missing")
	}

	// Restoring the file clears the flag on the next pass.
	testsupport.WriteFile(t, gone, 1024)
	if _, err := s.Scan(ctx, root); err != nil {
		t.Fatal(err)
	}
	track, err = store.GetByPath(ctx, gone)
	if err != nil || track == nil {
		t.Fatal(err)
	}
	if track.Missing {
		t.Error("missing flag not cleared after the file returned")
	}
}

func TestScanProgressCallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	s := New(cfg, store, logging.NewNop())

	root := cfg.Paths.LibraryDir
	testsupport.WriteFile(t, filepath.Join(root, "a.mp3"), 512)
	testsupport.WriteFile(t, filepath.Join(root, "b.mp3"), 512)

	var calls []string
	s.Progress = func(path string) { calls = append(calls, path) }
	if _, err := s.Scan(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 {
		t.Errorf("progress called %d times, want 2", len(calls))
	}
}

func TestScanRejectsBadRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	s := New(cfg, store, logging.NewNop())

	if _, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("nonexistent root accepted")
	}
}
