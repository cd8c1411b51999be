package testsupport

import (
	"context"
	"testing"

	"crate/internal/catalog"
	"crate/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedTrack upserts a track and returns it with its assigned ID.
func SeedTrack(t testing.TB, store *catalog.Store, track catalog.Track) *catalog.Track {
	t.Helper()

	if err := store.Upsert(context.Background(), &track); err != nil {
		t.Fatalf("catalog.Upsert(%s): %v", track.Path, err)
	}
	return &track
}
