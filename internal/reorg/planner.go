package reorg

import (
	"fmt"
	"path/filepath"
	"strings"

	"crate/internal/catalog"
	"crate/internal/layout"
)

// maxDisambiguation bounds the numeric suffix search when several tracks
// render to the same target.
const maxDisambiguation = 100

// claim records which source holds a planned target, with the source's
// content hash when one is known.
type claim struct {
	source string
	hash   string
}

// BuildPlan computes the full source to target mapping for tracks under the
// given destination root. It is a pure function: it inspects no filesystem
// state and mutates nothing. Classification:
//
//   - no-op when the normalized source already equals the target
//   - the mode's operation otherwise
//   - conflict when rendering fails, when disambiguation is exhausted, when
//     two byte-identical files claim one target, or when an entry's target is
//     another entry's source (a swap the executor will not attempt)
func BuildPlan(tracks []*catalog.Track, tmpl *layout.Template, root string, mode Mode) (*Plan, error) {
	if !mode.Mutates() && mode != ModeSimulate {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	root = filepath.Clean(root)
	if root == "." || root == "" {
		return nil, fmt.Errorf("destination root is empty")
	}

	operation := OpMove
	switch mode {
	case ModeCopy:
		operation = OpCopy
	case ModeLink:
		operation = OpLink
	}

	claimed := make(map[string]claim, len(tracks))
	entries := make([]Entry, 0, len(tracks))

	for _, rendered := range tmpl.RenderAll(tracks) {
		track := rendered.Track
		source := filepath.Clean(track.Path)
		if rendered.Err != nil {
			entries = append(entries, Entry{
				TrackID: track.ID,
				Source:  source,
				Op:      OpConflict,
				Reason:  rendered.Err.Error(),
			})
			continue
		}

		target := filepath.Clean(filepath.Join(root, filepath.FromSlash(rendered.RelPath)))
		if !strings.HasPrefix(target, root+string(filepath.Separator)) {
			entries = append(entries, Entry{
				TrackID: track.ID,
				Source:  source,
				Op:      OpConflict,
				Reason:  "rendered path escapes destination root",
			})
			continue
		}

		if source == target {
			claimed[target] = claim{source: source, hash: track.PartialHash}
			entries = append(entries, Entry{TrackID: track.ID, Source: source, Target: target, Op: OpNoop})
			continue
		}

		entry := Entry{TrackID: track.ID, Source: source, Target: target, Op: operation}
		if prior, taken := claimed[target]; taken && prior.source != source {
			if prior.hash != "" && prior.hash == track.PartialHash {
				// Same bytes under two paths is a duplicate, not a
				// placement problem. Refuse rather than silently merging.
				entry.Op = OpConflict
				entry.Target = ""
				entry.Reason = fmt.Sprintf("identical content already planned at %s; resolve duplicates first", target)
				entries = append(entries, entry)
				continue
			}
			resolved, ok := disambiguate(target, claimed)
			if !ok {
				entry.Op = OpConflict
				entry.Target = ""
				entry.Reason = fmt.Sprintf("no free variant of %s", target)
				entries = append(entries, entry)
				continue
			}
			entry.Target = resolved
			entry.Disambiguated = true
		}
		claimed[entry.Target] = claim{source: source, hash: track.PartialHash}
		entries = append(entries, entry)
	}

	rejectAliases(entries)
	return &Plan{Mode: mode, Root: root, Entries: entries}, nil
}

// disambiguate appends " (2)", " (3)", ... before the extension until it
// finds a target no other entry has claimed.
func disambiguate(target string, claimed map[string]claim) (string, bool) {
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for n := 2; n < maxDisambiguation; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, taken := claimed[candidate]; !taken {
			return candidate, true
		}
	}
	return "", false
}

// rejectAliases demotes entries whose target is another entry's current
// source. Applying such an entry would require a two-phase swap, so it is
// surfaced for the user instead.
func rejectAliases(entries []Entry) {
	sources := make(map[string]int64, len(entries))
	for _, entry := range entries {
		if entry.Op != OpNoop && entry.Op != OpConflict {
			sources[entry.Source] = entry.TrackID
		}
	}
	for i := range entries {
		entry := &entries[i]
		if entry.Op == OpNoop || entry.Op == OpConflict {
			continue
		}
		if owner, taken := sources[entry.Target]; taken && owner != entry.TrackID {
			entry.Op = OpConflict
			entry.Reason = fmt.Sprintf("target %s is the current location of another planned track", entry.Target)
			entry.Target = ""
		}
	}
}
