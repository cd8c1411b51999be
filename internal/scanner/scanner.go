// Package scanner discovers audio files on disk and keeps the catalog in
// sync, skipping files whose size and mtime have not changed.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/faults"
	"crate/internal/logging"
)

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".ogg":  {},
	".oga":  {},
	".opus": {},
	".m4a":  {},
	".m4b":  {},
	".aac":  {},
	".wav":  {},
	".wma":  {},
	".aiff": {},
	".aif":  {},
	".ape":  {},
	".wv":   {},
}

// IsAudioFile reports whether path has a recognized audio extension.
func IsAudioFile(path string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Result summarizes one scan pass.
type Result struct {
	Scanned   int
	Added     int
	Updated   int
	Unchanged int
	Missing   int
}

// Scanner walks a directory tree, reads tags from audio files, and keeps the
// catalog in sync with what is on disk.
type Scanner struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger

	// Progress, when set, is called once per discovered audio file.
	Progress func(path string)
}

func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "scanner"),
	}
}

// Scan walks root, upserting a track per audio file. Files whose size and
// modification time match the catalog are skipped without reading them.
// Catalog entries under root whose file has disappeared are marked missing.
func (s *Scanner) Scan(ctx context.Context, root string) (Result, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Result{}, faults.Wrap(faults.ErrValidation, "scanner", "scan", "root is not a directory", err)
	}

	var result Result
	seen := make(map[string]struct{})
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("walk error", logging.String("path", path), logging.Error(err))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			if s.skipDir(path, root) {
				return fs.SkipDir
			}
			return nil
		}
		if !IsAudioFile(path) {
			return nil
		}

		result.Scanned++
		if s.Progress != nil {
			s.Progress(path)
		}
		seen[path] = struct{}{}
		s.scanFile(ctx, path, &result)
		return nil
	})
	if walkErr != nil {
		return result, faults.Wrap(faults.ErrIO, "scanner", "scan", "walk library", walkErr)
	}

	missing, err := s.markMissing(ctx, root, seen)
	if err != nil {
		return result, err
	}
	result.Missing = missing

	s.logger.Info("scan complete",
		logging.String("root", root),
		logging.Int("scanned", result.Scanned),
		logging.Int("added", result.Added),
		logging.Int("updated", result.Updated),
		logging.Int("unchanged", result.Unchanged),
		logging.Int("missing", result.Missing))
	return result, nil
}

// skipDir excludes dot-directories and the trash area from scans.
func (s *Scanner) skipDir(path, root string) bool {
	if path == root {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	return path == filepath.Clean(s.cfg.Paths.TrashDir)
}

func (s *Scanner) scanFile(ctx context.Context, path string, result *Result) {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("stat failed", logging.String("path", path), logging.Error(err))
		return
	}

	existing, err := s.store.GetByPath(ctx, path)
	if err != nil {
		s.logger.Warn("catalog lookup failed", logging.String("path", path), logging.Error(err))
		return
	}
	if existing != nil && existing.FileSize == info.Size() && existing.MTimeNanos == info.ModTime().UnixNano() {
		result.Unchanged++
		if existing.Missing {
			if err := s.store.MarkMissing(ctx, existing.ID, false); err != nil {
				s.logger.Warn("clear missing failed", logging.Int64(logging.FieldTrackID, existing.ID), logging.Error(err))
			}
		}
		return
	}

	track := readTrack(path, info)
	if existing != nil {
		track.PartialHash = "" // content changed, cached hash is stale
	}
	if err := s.store.Upsert(ctx, track); err != nil {
		s.logger.Warn("upsert failed", logging.String("path", path), logging.Error(err))
		return
	}
	if existing == nil {
		result.Added++
	} else {
		result.Updated++
	}
}

// markMissing flags catalog entries under root whose file was not seen in
// this pass. Deleted records are left alone.
func (s *Scanner) markMissing(ctx context.Context, root string, seen map[string]struct{}) (int, error) {
	tracks, err := s.store.List(ctx, catalog.Filter{PathPrefix: root, IncludeMissing: true})
	if err != nil {
		return 0, faults.Wrap(faults.ErrIO, "scanner", "scan", "list catalog", err)
	}
	missing := 0
	for _, track := range tracks {
		if _, ok := seen[track.Path]; ok || track.Missing {
			continue
		}
		if err := s.store.MarkMissing(ctx, track.ID, true); err != nil {
			s.logger.Warn("mark missing failed", logging.Int64(logging.FieldTrackID, track.ID), logging.Error(err))
			continue
		}
		missing++
		s.logger.Info("file gone", logging.String("path", track.Path))
	}
	return missing, nil
}
