package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/layout"
)

// rulesFromConfig maps template configuration onto render-time rules.
func rulesFromConfig(cfg *config.Config) layout.Rules {
	return layout.Rules{
		SubstituteChar:        cfg.Templates.SubstituteChar,
		SanitizeForbidden:     cfg.Templates.SanitizeForbidden,
		StripPromoParens:      cfg.Templates.StripPromoParens,
		FallbackToAlbumArtist: cfg.Templates.FallbackToAlbumArtist,
		CompilationDetection:  cfg.Templates.CompilationDetection,
		CompilationPattern:    cfg.Templates.Compilation,
	}
}

// compileTemplate resolves a named or literal template pattern against the
// configuration and compiles it.
func compileTemplate(cfg *config.Config, name string) (*layout.Template, error) {
	pattern := cfg.TemplatePattern(name)
	tmpl, err := layout.Compile(pattern, rulesFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", pattern, err)
	}
	return tmpl, nil
}

// activeTracks loads the records eligible for planning: present on disk and
// not deleted.
func activeTracks(ctx context.Context, eng *engine) ([]*catalog.Track, error) {
	tracks, err := eng.store.List(ctx, catalog.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return tracks, nil
}

// confirm asks for a yes/no answer on in, defaulting to no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
