package duplicates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"crate/internal/catalog"
	"crate/internal/logging"
)

// sampleSize is the number of bytes read from the head, middle, and tail of
// a file when computing its partial hash.
const sampleSize = 64 * 1024

// PartialHash returns a hex digest of three sampled regions of the file at
// path. Files no larger than three samples are hashed in full, so the digest
// of a small file is simply the digest of its contents prefixed by its size.
func PartialHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()

	h := sha256.New()
	fmt.Fprintf(h, "%d:", size)

	if size <= 3*sampleSize {
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	offsets := []int64{0, size/2 - sampleSize/2, size - sampleSize}
	buf := make([]byte, sampleSize)
	for _, offset := range offsets {
		if _, err := f.ReadAt(buf, offset); err != nil {
			return "", err
		}
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashCandidates fills in PartialHash for every candidate track that lacks
// one, reading files with a bounded worker pool. Failures are logged and the
// track's hash stays empty.
func hashCandidates(ctx context.Context, candidates [][]*catalog.Track, workers int, logger *slog.Logger) {
	if workers <= 0 {
		workers = 4
	}

	pending := make(map[int64]*catalog.Track)
	for _, members := range candidates {
		for _, track := range members {
			if track.PartialHash == "" {
				pending[track.ID] = track
			}
		}
	}
	if len(pending) == 0 {
		return
	}
	jobs := make([]*catalog.Track, 0, len(pending))
	for _, track := range pending {
		jobs = append(jobs, track)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, track := range jobs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(track *catalog.Track) {
			defer wg.Done()
			defer func() { <-sem }()
			hash, err := PartialHash(track.Path)
			if err != nil {
				logger.Warn("partial hash failed",
					logging.Int64(logging.FieldTrackID, track.ID),
					logging.String("path", track.Path),
					logging.Error(err))
				return
			}
			track.PartialHash = hash
		}(track)
	}
	wg.Wait()
}
