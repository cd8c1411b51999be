package layout

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"crate/internal/catalog"
)

// Field identifies a placeholder resolvable against a track record.
type Field int

const (
	FieldGenre Field = iota
	FieldYear
	FieldArtist
	FieldAlbum
	FieldTrackNo
	FieldTitle
	FieldExt
	FieldReleaseID
)

// fieldAliases maps placeholder spellings to fields. The Spanish names match
// the template syntax users already have; English spellings are accepted as
// aliases.
var fieldAliases = map[string]Field{
	"Genero":    FieldGenre,
	"Género":    FieldGenre,
	"Genre":     FieldGenre,
	"Año":       FieldYear,
	"Year":      FieldYear,
	"Artista":   FieldArtist,
	"Artist":    FieldArtist,
	"Álbum":     FieldAlbum,
	"Album":     FieldAlbum,
	"TrackNo":   FieldTrackNo,
	"Título":    FieldTitle,
	"Title":     FieldTitle,
	"ext":       FieldExt,
	"ReleaseID": FieldReleaseID,
}

// aliasesByLength caches placeholder names longest-first so that compound
// blocks match greedily ("TrackNo" before "Track...").
var aliasesByLength = func() []string {
	names := make([]string, 0, len(fieldAliases))
	for name := range fieldAliases {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

// Rules carries the sanitization and fallback switches applied at render time.
type Rules struct {
	SubstituteChar        string
	SanitizeForbidden     bool
	StripPromoParens      bool
	FallbackToAlbumArtist bool
	CompilationDetection  bool
	CompilationPattern    string
}

// TemplateError reports a malformed template pattern. It is fatal to that
// template selection only.
type TemplateError struct {
	Pattern string
	Detail  string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %s", e.Pattern, e.Detail)
}

// RenderError reports a track that cannot be rendered because a required
// field is absent.
type RenderError struct {
	TrackID int64
	Field   string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("track %d: missing required field %s", e.TrackID, e.Field)
}

type partKind int

const (
	partLiteral partKind = iota
	partField
)

type part struct {
	kind    partKind
	literal string
	field   Field
}

// Template is the compiled, reusable form of a template pattern.
type Template struct {
	pattern     string
	parts       []part
	rules       Rules
	compilation *Template
}

// Pattern returns the source pattern this template was compiled from.
func (t *Template) Pattern() string {
	return t.pattern
}

// Compile parses a template pattern into a reusable plan. Placeholders are
// delimited by braces; a block may mix literal text with field names, e.g.
// {TrackNo - Título}. Unknown placeholder names and unbalanced delimiters
// yield a TemplateError.
func Compile(pattern string, rules Rules) (*Template, error) {
	if rules.SubstituteChar == "" {
		rules.SubstituteChar = "_"
	}
	parts, err := parse(pattern)
	if err != nil {
		return nil, err
	}
	tmpl := &Template{pattern: pattern, parts: parts, rules: rules}

	if rules.CompilationDetection && strings.TrimSpace(rules.CompilationPattern) != "" {
		subRules := rules
		subRules.CompilationDetection = false
		compilation, err := Compile(rules.CompilationPattern, subRules)
		if err != nil {
			return nil, err
		}
		tmpl.compilation = compilation
	}
	return tmpl, nil
}

func parse(pattern string) ([]part, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &TemplateError{Pattern: pattern, Detail: "empty pattern"}
	}
	var parts []part
	rest := pattern
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.ContainsRune(rest, '}') {
				return nil, &TemplateError{Pattern: pattern, Detail: "unbalanced delimiter"}
			}
			parts = append(parts, part{kind: partLiteral, literal: rest})
			break
		}
		if open > 0 {
			head := rest[:open]
			if strings.ContainsRune(head, '}') {
				return nil, &TemplateError{Pattern: pattern, Detail: "unbalanced delimiter"}
			}
			parts = append(parts, part{kind: partLiteral, literal: head})
		}
		rest = rest[open+1:]
		close := strings.IndexByte(rest, '}')
		if close < 0 {
			return nil, &TemplateError{Pattern: pattern, Detail: "unbalanced delimiter"}
		}
		block := rest[:close]
		rest = rest[close+1:]
		if strings.ContainsRune(block, '{') {
			return nil, &TemplateError{Pattern: pattern, Detail: "nested delimiter"}
		}
		blockParts, matched := parseBlock(block)
		if !matched {
			return nil, &TemplateError{Pattern: pattern, Detail: fmt.Sprintf("unknown placeholder %q", block)}
		}
		parts = append(parts, blockParts...)
	}
	return parts, nil
}

// parseBlock substitutes every known field name occurring inside a block and
// keeps the surrounding text literal. It reports whether at least one field
// name matched.
func parseBlock(block string) ([]part, bool) {
	if block == "" {
		return nil, false
	}
	for _, name := range aliasesByLength {
		idx := strings.Index(block, name)
		if idx < 0 {
			continue
		}
		var parts []part
		if idx > 0 {
			before, _ := parseBlock(block[:idx])
			if before == nil {
				before = []part{{kind: partLiteral, literal: block[:idx]}}
			}
			parts = append(parts, before...)
		}
		parts = append(parts, part{kind: partField, field: fieldAliases[name]})
		if tail := block[idx+len(name):]; tail != "" {
			after, _ := parseBlock(tail)
			if after == nil {
				after = []part{{kind: partLiteral, literal: tail}}
			}
			parts = append(parts, after...)
		}
		return parts, true
	}
	return nil, false
}

// Render substitutes the track's fields into the template and returns the
// sanitized relative path. Missing optional fields render as sentinel
// segments; a missing title or extension is a RenderError.
func (t *Template) Render(track *catalog.Track) (string, error) {
	var sb strings.Builder
	for _, p := range t.parts {
		if p.kind == partLiteral {
			sb.WriteString(p.literal)
			continue
		}
		value, err := t.fieldValue(track, p.field)
		if err != nil {
			return "", err
		}
		sb.WriteString(value)
	}

	rendered := sb.String()
	segments := strings.Split(rendered, "/")
	cleaned := make([]string, 0, len(segments))
	for _, segment := range segments {
		cleaned = append(cleaned, sanitizeSegment(segment, t.rules))
	}
	rel := path.Join(cleaned...)
	if rel == "" || rel == "." {
		return "", &RenderError{TrackID: track.ID, Field: "title"}
	}
	return rel, nil
}

func (t *Template) fieldValue(track *catalog.Track, field Field) (string, error) {
	switch field {
	case FieldGenre:
		if v := strings.TrimSpace(track.Genre); v != "" {
			return v, nil
		}
		return "Unknown Genre", nil
	case FieldYear:
		if track.Year > 0 {
			return fmt.Sprintf("%d", track.Year), nil
		}
		return "Unknown Year", nil
	case FieldArtist:
		if v := strings.TrimSpace(track.Artist); v != "" {
			return v, nil
		}
		if t.rules.FallbackToAlbumArtist {
			if v := strings.TrimSpace(track.AlbumArtist); v != "" {
				return v, nil
			}
		}
		return "Unknown Artist", nil
	case FieldAlbum:
		if v := strings.TrimSpace(track.Album); v != "" {
			return t.maybeStripPromo(v), nil
		}
		return "Unknown Album", nil
	case FieldTrackNo:
		if track.TrackNo > 0 {
			return fmt.Sprintf("%02d", track.TrackNo), nil
		}
		return "00", nil
	case FieldTitle:
		if v := strings.TrimSpace(track.Title); v != "" {
			return t.maybeStripPromo(v), nil
		}
		return "", &RenderError{TrackID: track.ID, Field: "title"}
	case FieldExt:
		if v := strings.TrimSpace(track.Format); v != "" {
			return strings.ToLower(v), nil
		}
		if ext := strings.TrimPrefix(filepath.Ext(track.Path), "."); ext != "" {
			return strings.ToLower(ext), nil
		}
		return "", &RenderError{TrackID: track.ID, Field: "extension"}
	case FieldReleaseID:
		if v := strings.TrimSpace(track.ReleaseID); v != "" {
			return v, nil
		}
		return "Unknown Release", nil
	default:
		return "", &TemplateError{Pattern: t.pattern, Detail: "unresolvable field"}
	}
}

func (t *Template) maybeStripPromo(value string) string {
	if !t.rules.StripPromoParens {
		return value
	}
	return stripPromoParens(value)
}

// Rendered pairs a track with its rendering outcome.
type Rendered struct {
	Track   *catalog.Track
	RelPath string
	Err     error
}

// RenderAll renders every track, applying compilation-album detection when the
// rule is enabled: albums whose rendered directory collects more than one
// distinct primary artist are re-rendered with the compilation pattern.
// Results preserve input order.
func (t *Template) RenderAll(tracks []*catalog.Track) []Rendered {
	results := make([]Rendered, len(tracks))
	for i, track := range tracks {
		rel, err := t.Render(track)
		results[i] = Rendered{Track: track, RelPath: rel, Err: err}
	}
	if t.compilation == nil {
		return results
	}

	// Tracks sharing an album tag are destined for the same album directory
	// under the compilation pattern, so the album name is the grouping key.
	artistsByAlbum := make(map[string]map[string]struct{})
	for _, r := range results {
		if r.Err != nil || strings.TrimSpace(r.Track.Album) == "" {
			continue
		}
		key := albumGroupKey(r.Track)
		artist := primaryArtist(r.Track)
		if artist == "" {
			continue
		}
		set := artistsByAlbum[key]
		if set == nil {
			set = make(map[string]struct{})
			artistsByAlbum[key] = set
		}
		set[artist] = struct{}{}
	}

	for i, r := range results {
		if r.Err != nil || strings.TrimSpace(r.Track.Album) == "" {
			continue
		}
		if len(artistsByAlbum[albumGroupKey(r.Track)]) <= 1 {
			continue
		}
		rel, err := t.compilation.Render(r.Track)
		results[i] = Rendered{Track: r.Track, RelPath: rel, Err: err}
	}
	return results
}

func albumGroupKey(track *catalog.Track) string {
	return strings.ToLower(strings.TrimSpace(track.Album))
}

func primaryArtist(track *catalog.Track) string {
	if v := strings.TrimSpace(track.Artist); v != "" {
		return strings.ToLower(v)
	}
	return strings.ToLower(strings.TrimSpace(track.AlbumArtist))
}
