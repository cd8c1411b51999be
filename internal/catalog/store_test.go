package catalog_test

import (
	"context"
	"path/filepath"
	"testing"

	"crate/internal/catalog"
	"crate/internal/testsupport"
)

func TestUpsertInsertsAndUpdatesByPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	track := catalog.Track{
		Path:     filepath.Join(testsupport.BaseDir(cfg), "music", "a.mp3"),
		Title:    "A",
		Artist:   "Artist",
		Format:   "MP3",
		Duration: 245.1,
		Bitrate:  128000,
		FileSize: 8388608,
	}
	if err := store.Upsert(ctx, &track); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if track.ID == 0 {
		t.Fatal("expected assigned ID")
	}

	track.Bitrate = 320000
	track.Title = "A (proper rip)"
	if err := store.Upsert(ctx, &track); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err := store.GetByID(ctx, track.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("track not found")
	}
	if got.Bitrate != 320000 || got.Title != "A (proper rip)" {
		t.Fatalf("update lost: %+v", got)
	}
	if got.Format != "mp3" {
		t.Fatalf("format should be normalized lowercase, got %q", got.Format)
	}
}

func TestListFiltersLifecycleStates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := testsupport.BaseDir(cfg)

	active := testsupport.SeedTrack(t, store, catalog.Track{Path: filepath.Join(base, "a.flac"), Format: "flac"})
	missing := testsupport.SeedTrack(t, store, catalog.Track{Path: filepath.Join(base, "b.flac"), Format: "flac"})
	deleted := testsupport.SeedTrack(t, store, catalog.Track{Path: filepath.Join(base, "c.mp3"), Format: "mp3"})

	if err := store.MarkMissing(ctx, missing.ID, true); err != nil {
		t.Fatalf("MarkMissing: %v", err)
	}
	if err := store.MarkDeleted(ctx, deleted.ID); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	tracks, err := store.List(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != active.ID {
		t.Fatalf("default filter should return only active tracks, got %d", len(tracks))
	}

	tracks, err = store.List(ctx, catalog.Filter{IncludeMissing: true, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(tracks))
	}

	tracks, err = store.List(ctx, catalog.Filter{Format: "FLAC"})
	if err != nil {
		t.Fatalf("List by format: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 active flac track, got %d", len(tracks))
	}
}

func TestUpdatePathClearsMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := testsupport.BaseDir(cfg)

	track := testsupport.SeedTrack(t, store, catalog.Track{Path: filepath.Join(base, "old.mp3"), Format: "mp3"})
	if err := store.MarkMissing(ctx, track.ID, true); err != nil {
		t.Fatalf("MarkMissing: %v", err)
	}

	newPath := filepath.Join(base, "Rock", "new.mp3")
	if err := store.UpdatePath(ctx, track.ID, newPath); err != nil {
		t.Fatalf("UpdatePath: %v", err)
	}

	got, err := store.GetByPath(ctx, newPath)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if got == nil || got.ID != track.ID {
		t.Fatal("expected track at new path")
	}
	if got.Missing {
		t.Fatal("UpdatePath should clear the missing flag")
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := testsupport.BaseDir(cfg)

	a := testsupport.SeedTrack(t, store, catalog.Track{Path: filepath.Join(base, "a.mp3"), Format: "mp3"})
	testsupport.SeedTrack(t, store, catalog.Track{Path: filepath.Join(base, "b.mp3"), Format: "mp3"})
	if err := store.MarkDeleted(ctx, a.ID); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.Active != 1 || stats.Deleted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.TotalTracks != 2 {
		t.Fatalf("expected 2 tracks in health, got %d", health.TotalTracks)
	}
}
