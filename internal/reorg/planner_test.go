package reorg

import (
	"testing"

	"crate/internal/catalog"
	"crate/internal/layout"
)

func compile(t *testing.T, pattern string) *layout.Template {
	t.Helper()
	tmpl, err := layout.Compile(pattern, layout.Rules{SanitizeForbidden: true})
	if err != nil {
		t.Fatalf("compile %q: %v", pattern, err)
	}
	return tmpl
}

func TestBuildPlanIdempotent(t *testing.T) {
	tmpl := compile(t, "{Artista}/{Título}.{ext}")
	tracks := []*catalog.Track{
		{ID: 1, Path: "/music/Queen/Bohemian Rhapsody.flac", Artist: "Queen", Title: "Bohemian Rhapsody", Format: "flac"},
		{ID: 2, Path: "/music/ABBA/Waterloo.mp3", Artist: "ABBA", Title: "Waterloo", Format: "mp3"},
	}

	plan, err := BuildPlan(tracks, tmpl, "/music", ModeMove)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range plan.Entries {
		if entry.Op != OpNoop {
			t.Errorf("track %d: expected no-op, got %s", entry.TrackID, entry.Op)
		}
	}
	if plan.HasChanges() {
		t.Error("correctly organized library should plan no changes")
	}
}

func TestBuildPlanMissingGenreIsStillMove(t *testing.T) {
	tmpl := compile(t, "{Genero}/{Artista}/{Título}.{ext}")
	tracks := []*catalog.Track{
		{ID: 1, Path: "/downloads/song.mp3", Artist: "Queen", Title: "Song", Format: "mp3"},
	}

	plan, err := BuildPlan(tracks, tmpl, "/music", ModeMove)
	if err != nil {
		t.Fatal(err)
	}
	entry := plan.Entries[0]
	if entry.Op != OpMove {
		t.Fatalf("expected move, got %s (%s)", entry.Op, entry.Reason)
	}
	if want := "/music/Unknown Genre/Queen/Song.mp3"; entry.Target != want {
		t.Errorf("target = %q, want %q", entry.Target, want)
	}
}

func TestBuildPlanMissingTitleIsConflict(t *testing.T) {
	tmpl := compile(t, "{Artista}/{Título}.{ext}")
	tracks := []*catalog.Track{
		{ID: 1, Path: "/downloads/unknown.mp3", Artist: "Queen", Format: "mp3"},
	}

	plan, err := BuildPlan(tracks, tmpl, "/music", ModeMove)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Entries[0].Op != OpConflict {
		t.Errorf("expected conflict for missing title, got %s", plan.Entries[0].Op)
	}
	if plan.Entries[0].Reason == "" {
		t.Error("conflict entry should carry a reason")
	}
}

func TestBuildPlanCollisionDisambiguation(t *testing.T) {
	tmpl := compile(t, "{Título}.{ext}")
	tracks := []*catalog.Track{
		{ID: 1, Path: "/a/song.mp3", Title: "Song", Format: "mp3", PartialHash: "h1"},
		{ID: 2, Path: "/b/song.mp3", Title: "Song", Format: "mp3", PartialHash: "h2"},
		{ID: 3, Path: "/c/song.mp3", Title: "Song", Format: "mp3", PartialHash: "h3"},
	}

	plan, err := BuildPlan(tracks, tmpl, "/music", ModeMove)
	if err != nil {
		t.Fatal(err)
	}
	targets := make(map[string]bool)
	for _, entry := range plan.Entries {
		if entry.Op != OpMove {
			t.Fatalf("track %d: expected move, got %s (%s)", entry.TrackID, entry.Op, entry.Reason)
		}
		if targets[entry.Target] {
			t.Fatalf("duplicate target %s", entry.Target)
		}
		targets[entry.Target] = true
	}
	if !targets["/music/Song.mp3"] || !targets["/music/Song (2).mp3"] || !targets["/music/Song (3).mp3"] {
		t.Errorf("unexpected target set: %v", targets)
	}
	if plan.Entries[0].Disambiguated || !plan.Entries[1].Disambiguated || !plan.Entries[2].Disambiguated {
		t.Error("only the later colliding entries should be marked disambiguated")
	}
}

func TestBuildPlanIdenticalContentCollisionIsConflict(t *testing.T) {
	tmpl := compile(t, "{Título}.{ext}")
	tracks := []*catalog.Track{
		{ID: 1, Path: "/a/song.mp3", Title: "Song", Format: "mp3", PartialHash: "same"},
		{ID: 2, Path: "/b/song.mp3", Title: "Song", Format: "mp3", PartialHash: "same"},
	}

	plan, err := BuildPlan(tracks, tmpl, "/music", ModeMove)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Entries[0].Op != OpMove {
		t.Errorf("first claimant should move, got %s", plan.Entries[0].Op)
	}
	if plan.Entries[1].Op != OpConflict {
		t.Errorf("identical content collision should conflict, got %s", plan.Entries[1].Op)
	}
}

func TestBuildPlanRejectsSourceTargetAlias(t *testing.T) {
	tmpl := compile(t, "{Título}.{ext}")
	tracks := []*catalog.Track{
		{ID: 1, Path: "/music/Old.mp3", Title: "New", Format: "mp3"},
		{ID: 2, Path: "/music/New.mp3", Title: "Other", Format: "mp3"},
	}

	plan, err := BuildPlan(tracks, tmpl, "/music", ModeMove)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Entries[0].Op != OpConflict {
		t.Errorf("entry targeting another entry's source should conflict, got %s", plan.Entries[0].Op)
	}
	if plan.Entries[1].Op != OpMove {
		t.Errorf("the other entry should still move, got %s", plan.Entries[1].Op)
	}
}

func TestBuildPlanModePicksOperation(t *testing.T) {
	tmpl := compile(t, "{Título}.{ext}")
	tracks := []*catalog.Track{
		{ID: 1, Path: "/a/song.mp3", Title: "Song", Format: "mp3"},
	}

	for mode, want := range map[Mode]Operation{ModeMove: OpMove, ModeCopy: OpCopy, ModeLink: OpLink, ModeSimulate: OpMove} {
		plan, err := BuildPlan(tracks, tmpl, "/music", mode)
		if err != nil {
			t.Fatal(err)
		}
		if plan.Entries[0].Op != want {
			t.Errorf("mode %s: op = %s, want %s", mode, plan.Entries[0].Op, want)
		}
	}
}

func TestBuildPlanEmptyRoot(t *testing.T) {
	tmpl := compile(t, "{Título}.{ext}")
	if _, err := BuildPlan(nil, tmpl, "", ModeMove); err == nil {
		t.Error("empty destination root must be rejected")
	}
}

func TestParseMode(t *testing.T) {
	if mode, ok := ParseMode(""); !ok || mode != ModeSimulate {
		t.Error("empty mode should default to simulate")
	}
	if _, ok := ParseMode("shuffle"); ok {
		t.Error("unknown mode accepted")
	}
	if ModeSimulate.Mutates() {
		t.Error("simulate must not mutate")
	}
}
