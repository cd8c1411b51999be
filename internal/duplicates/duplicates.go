package duplicates

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"crate/internal/catalog"
	"crate/internal/logging"
)

// Options controls duplicate detection.
type Options struct {
	// DurationToleranceSeconds bounds the duration span of a group. Defaults
	// to one second when zero or negative.
	DurationToleranceSeconds float64
	// UseContentHash splits coarse groups using sampled content hashes,
	// preventing false positives from the coarse key.
	UseContentHash bool
	// HashWorkers bounds concurrent hash computations. Defaults to 4.
	HashWorkers int
	// Logger receives warnings for unreadable files. Optional.
	Logger *slog.Logger
}

// Group is a set of tracks believed to represent the same recording, with a
// designated keeper.
type Group struct {
	Keeper *catalog.Track
	Losers []*catalog.Track
}

// Size returns the total number of tracks in the group.
func (g Group) Size() int {
	return 1 + len(g.Losers)
}

// Detect groups tracks into duplicate sets and selects the keeper of each.
// The grouping is independent of input order: candidates are sorted before
// clustering and hash results are merged by track identifier. Detect never
// deletes or moves anything; disposition of losers is the caller's policy.
// Its one write is memoization: content hashes computed under UseContentHash
// are stored on the input records so callers can persist them and later runs
// skip the file reads.
func Detect(ctx context.Context, tracks []*catalog.Track, opts Options) []Group {
	tolerance := opts.DurationToleranceSeconds
	if tolerance <= 0 {
		tolerance = 1.0
	}
	logger := logging.NewComponentLogger(opts.Logger, "duplicates")

	type coarseKey struct {
		format string
		size   int64
	}
	buckets := make(map[coarseKey][]*catalog.Track)
	var keys []coarseKey
	for _, track := range tracks {
		if track == nil || track.Duration <= 0 || track.FileSize <= 0 {
			continue
		}
		format := strings.ToLower(strings.TrimSpace(track.Format))
		if format == "" {
			continue
		}
		key := coarseKey{format: format, size: track.FileSize}
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], track)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].format != keys[j].format {
			return keys[i].format < keys[j].format
		}
		return keys[i].size < keys[j].size
	})

	var candidates [][]*catalog.Track
	for _, key := range keys {
		members := buckets[key]
		sort.Slice(members, func(i, j int) bool {
			if members[i].Duration != members[j].Duration {
				return members[i].Duration < members[j].Duration
			}
			return members[i].ID < members[j].ID
		})
		var cluster []*catalog.Track
		for _, track := range members {
			if len(cluster) == 0 || track.Duration-cluster[0].Duration <= tolerance {
				cluster = append(cluster, track)
				continue
			}
			if len(cluster) > 1 {
				candidates = append(candidates, cluster)
			}
			cluster = []*catalog.Track{track}
		}
		if len(cluster) > 1 {
			candidates = append(candidates, cluster)
		}
	}

	if opts.UseContentHash {
		hashCandidates(ctx, candidates, opts.HashWorkers, logger)
		candidates = splitByHash(candidates)
	}

	groups := make([]Group, 0, len(candidates))
	for _, members := range candidates {
		if len(members) < 2 {
			continue
		}
		keeper, losers := selectKeeper(members)
		groups = append(groups, Group{Keeper: keeper, Losers: losers})
	}
	return groups
}

// splitByHash partitions each candidate group by partial hash. Tracks whose
// hash could not be computed keep their coarse grouping among themselves and
// are never split from each other.
func splitByHash(candidates [][]*catalog.Track) [][]*catalog.Track {
	var out [][]*catalog.Track
	for _, members := range candidates {
		byHash := make(map[string][]*catalog.Track)
		var hashes []string
		for _, track := range members {
			hash := track.PartialHash
			if _, seen := byHash[hash]; !seen {
				hashes = append(hashes, hash)
			}
			byHash[hash] = append(byHash[hash], track)
		}
		sort.Strings(hashes)
		for _, hash := range hashes {
			subgroup := byHash[hash]
			if len(subgroup) > 1 {
				out = append(out, subgroup)
			}
		}
	}
	return out
}
