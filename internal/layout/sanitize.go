package layout

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxSegmentRunes = 200

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*` + "\x00-\x1f" + `]`)
	multiSpace     = regexp.MustCompile(`\s{2,}`)

	// Trailing promotional parentheticals. Stripped only when the
	// corresponding rule is enabled, and never when it would empty the value.
	promoParen = regexp.MustCompile(`(?i)\s*\((?:(?:\d{4}\s+)?remaster(?:ed)?[^)]*|deluxe[^)]*|expanded[^)]*|anniversary[^)]*|bonus track[^)]*|re-?issue[^)]*|radio edit|single version|promo[^)]*)\)\s*$`)
)

// sanitizeSegment applies per-segment filename cleanup: NFKC normalization,
// whitespace trimming and collapsing, forbidden character substitution, and a
// length cap. Empty segments become the substitute character so rendering a
// track with a usable title and extension always yields a non-empty path.
func sanitizeSegment(segment string, rules Rules) string {
	s := norm.NFKC.String(segment)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if rules.SanitizeForbidden {
		s = forbiddenChars.ReplaceAllString(s, rules.SubstituteChar)
	}
	s = strings.ReplaceAll(s, "..", rules.SubstituteChar)
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return rules.SubstituteChar
	}
	runes := []rune(s)
	if len(runes) > maxSegmentRunes {
		s = strings.TrimSpace(string(runes[:maxSegmentRunes]))
	}
	return s
}

// stripPromoParens removes trailing promotional parentheticals such as
// "(Remastered 2011)" or "(Deluxe Edition)". Applied repeatedly so stacked
// suffixes collapse.
func stripPromoParens(value string) string {
	for {
		stripped := promoParen.ReplaceAllString(value, "")
		stripped = strings.TrimSpace(stripped)
		if stripped == "" || stripped == value {
			if stripped == "" {
				return value
			}
			return stripped
		}
		value = stripped
	}
}
