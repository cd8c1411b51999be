package duplicates

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"crate/internal/catalog"
)

func track(id int64, path, format string, size int64, duration float64, bitrate int) *catalog.Track {
	return &catalog.Track{
		ID:       id,
		Path:     path,
		Format:   format,
		FileSize: size,
		Duration: duration,
		Bitrate:  bitrate,
	}
}

func TestDetectPrefersHigherBitrate(t *testing.T) {
	tracks := []*catalog.Track{
		track(1, "/music/a/song.mp3", "mp3", 9_000_000, 245.0, 128),
		track(2, "/music/b/song.mp3", "mp3", 9_000_000, 245.4, 320),
	}

	groups := Detect(context.Background(), tracks, Options{DurationToleranceSeconds: 1.0})
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if groups[0].Keeper.ID != 2 {
		t.Errorf("expected 320kbps keeper, got track %d", groups[0].Keeper.ID)
	}
	if len(groups[0].Losers) != 1 || groups[0].Losers[0].ID != 1 {
		t.Errorf("unexpected losers: %+v", groups[0].Losers)
	}
}

func TestSelectKeeperPrefersLossless(t *testing.T) {
	members := []*catalog.Track{
		track(1, "/music/song.mp3", "mp3", 12_000_000, 200.0, 320),
		track(2, "/music/song.flac", "flac", 42_000_000, 200.2, 0),
	}
	keeper, losers := selectKeeper(members)
	if keeper.ID != 2 {
		t.Errorf("lossless should beat any bitrate, got track %d", keeper.ID)
	}
	if len(losers) != 1 || losers[0].ID != 1 {
		t.Errorf("unexpected losers: %+v", losers)
	}
}

func TestDetectRespectsDurationTolerance(t *testing.T) {
	tracks := []*catalog.Track{
		track(1, "/a.mp3", "mp3", 5_000_000, 100.0, 192),
		track(2, "/b.mp3", "mp3", 5_000_000, 103.0, 192),
	}

	groups := Detect(context.Background(), tracks, Options{DurationToleranceSeconds: 1.0})
	if len(groups) != 0 {
		t.Fatalf("tracks 3s apart should not group, got %d groups", len(groups))
	}

	groups = Detect(context.Background(), tracks, Options{DurationToleranceSeconds: 5.0})
	if len(groups) != 1 {
		t.Fatalf("expected one group under wide tolerance, got %d", len(groups))
	}
}

func TestDetectSeparatesFormatsAndSizes(t *testing.T) {
	tracks := []*catalog.Track{
		track(1, "/a.mp3", "mp3", 5_000_000, 100.0, 192),
		track(2, "/b.flac", "flac", 5_000_000, 100.0, 0),
		track(3, "/c.mp3", "mp3", 6_000_000, 100.0, 192),
	}

	groups := Detect(context.Background(), tracks, Options{})
	if len(groups) != 0 {
		t.Fatalf("differing format or size should not group, got %d groups", len(groups))
	}
}

func TestDetectSkipsIncompleteRecords(t *testing.T) {
	tracks := []*catalog.Track{
		track(1, "/a.mp3", "mp3", 5_000_000, 0, 192),
		track(2, "/b.mp3", "mp3", 5_000_000, 0, 192),
		track(3, "/c.mp3", "", 5_000_000, 100.0, 192),
		track(4, "/d.mp3", "mp3", 0, 100.0, 192),
	}

	groups := Detect(context.Background(), tracks, Options{})
	if len(groups) != 0 {
		t.Fatalf("records missing duration, format, or size must not group, got %d groups", len(groups))
	}
}

func TestDetectOrderIndependent(t *testing.T) {
	base := []*catalog.Track{
		track(1, "/music/a.mp3", "mp3", 9_000_000, 245.0, 128),
		track(2, "/music/b.mp3", "mp3", 9_000_000, 245.4, 320),
		track(3, "/music/c.flac", "flac", 30_000_000, 245.0, 0),
		track(4, "/music/d.flac", "flac", 30_000_000, 245.1, 0),
		track(5, "/other/e.mp3", "mp3", 7_000_000, 180.0, 192),
	}

	want := Detect(context.Background(), base, Options{})
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]*catalog.Track(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Detect(context.Background(), shuffled, Options{})
		if len(got) != len(want) {
			t.Fatalf("trial %d: group count %d, want %d", trial, len(got), len(want))
		}
		for i := range want {
			if got[i].Keeper.ID != want[i].Keeper.ID {
				t.Fatalf("trial %d group %d: keeper %d, want %d", trial, i, got[i].Keeper.ID, want[i].Keeper.ID)
			}
			if len(got[i].Losers) != len(want[i].Losers) {
				t.Fatalf("trial %d group %d: loser count mismatch", trial, i)
			}
			for j := range want[i].Losers {
				if got[i].Losers[j].ID != want[i].Losers[j].ID {
					t.Fatalf("trial %d group %d: loser order differs", trial, i)
				}
			}
		}
	}
}

func TestDetectContentHashSplitsGroups(t *testing.T) {
	dir := t.TempDir()
	same1 := filepath.Join(dir, "one.mp3")
	same2 := filepath.Join(dir, "two.mp3")
	other := filepath.Join(dir, "three.mp3")

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	for _, path := range []string{same1, same2} {
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	altered := append([]byte(nil), payload...)
	altered[2048] ^= 0xff
	if err := os.WriteFile(other, altered, 0o644); err != nil {
		t.Fatal(err)
	}

	tracks := []*catalog.Track{
		track(1, same1, "mp3", 4096, 100.0, 192),
		track(2, same2, "mp3", 4096, 100.0, 192),
		track(3, other, "mp3", 4096, 100.0, 192),
	}

	groups := Detect(context.Background(), tracks, Options{UseContentHash: true})
	if len(groups) != 1 {
		t.Fatalf("expected one hash-confirmed group, got %d", len(groups))
	}
	if groups[0].Size() != 2 {
		t.Fatalf("expected the altered file excluded, group size %d", groups[0].Size())
	}
	for _, member := range append([]*catalog.Track{groups[0].Keeper}, groups[0].Losers...) {
		if member.ID == 3 {
			t.Error("altered file grouped despite differing content")
		}
	}
	for _, tr := range tracks {
		if tr.PartialHash == "" {
			t.Errorf("hash not memoized on track %d", tr.ID)
		}
	}
}

func TestDetectHashFailureKeepsCoarseGroup(t *testing.T) {
	tracks := []*catalog.Track{
		track(1, "/does/not/exist/a.mp3", "mp3", 4096, 100.0, 192),
		track(2, "/does/not/exist/b.mp3", "mp3", 4096, 100.0, 128),
	}

	groups := Detect(context.Background(), tracks, Options{UseContentHash: true})
	if len(groups) != 1 {
		t.Fatalf("unhashable tracks must keep their coarse group, got %d groups", len(groups))
	}
	if groups[0].Keeper.ID != 1 {
		t.Errorf("expected higher-bitrate keeper, got track %d", groups[0].Keeper.ID)
	}
}

func TestPartialHashSmallAndLargeFiles(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.bin")
	if err := os.WriteFile(small, []byte("tiny"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1, err := PartialHash(small)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := PartialHash(small)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("hash not stable across calls")
	}

	large := filepath.Join(dir, "large.bin")
	payload := make([]byte, 4*sampleSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := os.WriteFile(large, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	h3, err := PartialHash(large)
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Error("distinct files produced identical hashes")
	}

	tailChanged := append([]byte(nil), payload...)
	tailChanged[len(tailChanged)-1] ^= 0xff
	other := filepath.Join(dir, "tail.bin")
	if err := os.WriteFile(other, tailChanged, 0o644); err != nil {
		t.Fatal(err)
	}
	h4, err := PartialHash(other)
	if err != nil {
		t.Fatal(err)
	}
	if h4 == h3 {
		t.Error("tail change not reflected in hash")
	}
}

func TestIsLossless(t *testing.T) {
	for _, format := range []string{"flac", "alac", "wav", "aiff", "ape", "wv"} {
		if !IsLossless(format) {
			t.Errorf("%s should be lossless", format)
		}
	}
	for _, format := range []string{"mp3", "aac", "ogg", "opus", "m4a", ""} {
		if IsLossless(format) {
			t.Errorf("%s should not be lossless", format)
		}
	}
}

func TestSelectKeeperMedianTiebreak(t *testing.T) {
	members := []*catalog.Track{
		track(1, "/a.mp3", "mp3", 1000, 100.0, 192),
		track(2, "/b.mp3", "mp3", 1000, 100.4, 192),
		track(3, "/c.mp3", "mp3", 1000, 100.9, 192),
	}
	keeper, losers := selectKeeper(members)
	if keeper.ID != 2 {
		t.Errorf("expected the median-duration track, got %d", keeper.ID)
	}
	if len(losers) != 2 {
		t.Errorf("expected two losers, got %d", len(losers))
	}
}
