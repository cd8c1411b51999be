package duplicates

import (
	"math"
	"sort"
	"strings"

	"crate/internal/catalog"
)

var losslessFormats = map[string]struct{}{
	"flac": {},
	"alac": {},
	"wav":  {},
	"aiff": {},
	"aif":  {},
	"ape":  {},
	"wv":   {},
}

// IsLossless reports whether format names a lossless audio codec.
func IsLossless(format string) bool {
	_, ok := losslessFormats[format]
	return ok
}

// selectKeeper picks the preferred track of a group. Preference order:
// lossless over lossy, then highest bitrate, then duration closest to the
// group median, then lexicographically smallest path. Losers come back
// sorted by path.
func selectKeeper(members []*catalog.Track) (*catalog.Track, []*catalog.Track) {
	survivors := members

	var lossless []*catalog.Track
	for _, track := range survivors {
		if IsLossless(normalizedFormat(track)) {
			lossless = append(lossless, track)
		}
	}
	if len(lossless) > 0 {
		survivors = lossless
	}

	best := -1
	for _, track := range survivors {
		if track.Bitrate > best {
			best = track.Bitrate
		}
	}
	var highest []*catalog.Track
	for _, track := range survivors {
		if track.Bitrate == best {
			highest = append(highest, track)
		}
	}
	survivors = highest

	median := medianDuration(members)
	closest := math.Inf(1)
	for _, track := range survivors {
		if d := math.Abs(track.Duration - median); d < closest {
			closest = d
		}
	}
	var nearest []*catalog.Track
	for _, track := range survivors {
		if math.Abs(track.Duration-median) == closest {
			nearest = append(nearest, track)
		}
	}
	survivors = nearest

	keeper := survivors[0]
	for _, track := range survivors[1:] {
		if track.Path < keeper.Path {
			keeper = track
		}
	}

	losers := make([]*catalog.Track, 0, len(members)-1)
	for _, track := range members {
		if track != keeper {
			losers = append(losers, track)
		}
	}
	sort.Slice(losers, func(i, j int) bool { return losers[i].Path < losers[j].Path })
	return keeper, losers
}

// medianDuration computes the median over the whole group, not just the
// survivors of earlier filters, so the tiebreak reflects group consensus.
func medianDuration(members []*catalog.Track) float64 {
	durations := make([]float64, len(members))
	for i, track := range members {
		durations[i] = track.Duration
	}
	sort.Float64s(durations)
	n := len(durations)
	if n%2 == 1 {
		return durations[n/2]
	}
	return (durations[n/2-1] + durations[n/2]) / 2
}

func normalizedFormat(track *catalog.Track) string {
	return strings.ToLower(strings.TrimSpace(track.Format))
}
