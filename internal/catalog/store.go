package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"crate/internal/config"
)

// Store manages track persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying database handle so sibling stores (the undo log)
// can share the same file and transaction semantics.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the catalog database file path.
func (s *Store) Path() string {
	return s.path
}

// Upsert inserts a track by path or updates the existing row in place,
// preserving the identifier. The track's ID is populated on return.
func (s *Store) Upsert(ctx context.Context, track *Track) error {
	if track == nil {
		return errors.New("track is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	existing, err := s.GetByPath(ctx, track.Path)
	if err != nil {
		return err
	}
	if existing == nil {
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO tracks (
                path, title, artist, album, album_artist, genre, year, track_no, release_id,
                duration, bitrate, format, file_size, mtime_ns, missing, deleted, partial_hash,
                created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			track.Path,
			nullableString(track.Title),
			nullableString(track.Artist),
			nullableString(track.Album),
			nullableString(track.AlbumArtist),
			nullableString(track.Genre),
			nullableInt(int64(track.Year)),
			nullableInt(int64(track.TrackNo)),
			nullableString(track.ReleaseID),
			track.Duration,
			track.Bitrate,
			nullableString(strings.ToLower(track.Format)),
			track.FileSize,
			track.MTimeNanos,
			boolToInt(track.Missing),
			boolToInt(track.Deleted),
			nullableString(track.PartialHash),
			timestamp,
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		track.ID = id
		track.CreatedAt = now
		track.UpdatedAt = now
		return nil
	}

	track.ID = existing.ID
	track.CreatedAt = existing.CreatedAt
	track.UpdatedAt = now
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE tracks
         SET title = ?, artist = ?, album = ?, album_artist = ?, genre = ?, year = ?,
             track_no = ?, release_id = ?, duration = ?, bitrate = ?, format = ?,
             file_size = ?, mtime_ns = ?, missing = ?, deleted = ?, partial_hash = ?,
             updated_at = ?
         WHERE id = ?`,
		nullableString(track.Title),
		nullableString(track.Artist),
		nullableString(track.Album),
		nullableString(track.AlbumArtist),
		nullableString(track.Genre),
		nullableInt(int64(track.Year)),
		nullableInt(int64(track.TrackNo)),
		nullableString(track.ReleaseID),
		track.Duration,
		track.Bitrate,
		nullableString(strings.ToLower(track.Format)),
		track.FileSize,
		track.MTimeNanos,
		boolToInt(track.Missing),
		boolToInt(track.Deleted),
		nullableString(track.PartialHash),
		timestamp,
		track.ID,
	)
	if err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	return nil
}

// GetByID fetches a track by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// GetByPath fetches a track by its current absolute path.
func (s *Store) GetByPath(ctx context.Context, path string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE path = ?`, path)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track by path: %w", err)
	}
	return track, nil
}

// List returns tracks matching the filter, ordered by path for deterministic
// downstream processing.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks`
	var clauses []string
	var args []any
	if !filter.IncludeDeleted {
		clauses = append(clauses, "deleted = 0")
	}
	if !filter.IncludeMissing {
		clauses = append(clauses, "missing = 0")
	}
	if filter.Format != "" {
		clauses = append(clauses, "format = ?")
		args = append(args, strings.ToLower(filter.Format))
	}
	if filter.PathPrefix != "" {
		clauses = append(clauses, "path LIKE ?")
		args = append(args, filter.PathPrefix+"%")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// UpdatePath records a track's new location after a successful file operation.
func (s *Store) UpdatePath(ctx context.Context, id int64, newPath string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tracks SET path = ?, missing = 0, updated_at = ? WHERE id = ?`,
		newPath,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update path: %w", err)
	}
	return nil
}

// SetPartialHash caches a lazily computed content hash.
func (s *Store) SetPartialHash(ctx context.Context, id int64, hash string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tracks SET partial_hash = ?, updated_at = ? WHERE id = ?`,
		nullableString(hash),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set partial hash: %w", err)
	}
	return nil
}

// MarkDeleted flags a track as removed by duplicate disposition.
func (s *Store) MarkDeleted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tracks SET deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	return nil
}

// Restore reinstates a track at path, clearing deleted and missing flags.
// Used when an undo puts a trashed duplicate back in place.
func (s *Store) Restore(ctx context.Context, id int64, path string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tracks SET path = ?, deleted = 0, missing = 0, updated_at = ? WHERE id = ?`,
		path,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("restore track: %w", err)
	}
	return nil
}

// MarkMissing flags or clears the missing state for a path seen (or not) by the scanner.
func (s *Store) MarkMissing(ctx context.Context, id int64, missing bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tracks SET missing = ?, updated_at = ? WHERE id = ?`,
		boolToInt(missing),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark missing: %w", err)
	}
	return nil
}

// Stats returns track counts grouped by lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               SUM(CASE WHEN deleted = 0 AND missing = 0 THEN 1 ELSE 0 END),
               SUM(CASE WHEN missing = 1 AND deleted = 0 THEN 1 ELSE 0 END),
               SUM(CASE WHEN deleted = 1 THEN 1 ELSE 0 END)
        FROM tracks`)
	var stats Stats
	var active, missing, deleted sql.NullInt64
	if err := row.Scan(&stats.Total, &active, &missing, &deleted); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	stats.Active = int(active.Int64)
	stats.Missing = int(missing.Int64)
	stats.Deleted = int(deleted.Int64)
	return stats, nil
}

// CheckHealth returns diagnostic information about the catalog database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("catalog database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat catalog database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("catalog database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("catalog database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'tracks'")
	if err := row.Scan(&tableName); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM tracks")
		if err := row.Scan(&health.TotalTracks); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count tracks: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

const trackColumns = "id, path, title, artist, album, album_artist, genre, year, track_no, release_id, duration, bitrate, format, file_size, mtime_ns, missing, deleted, partial_hash, created_at, updated_at"

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*Track, error) {
	var (
		id          int64
		path        string
		title       sql.NullString
		artist      sql.NullString
		album       sql.NullString
		albumArtist sql.NullString
		genre       sql.NullString
		year        sql.NullInt64
		trackNo     sql.NullInt64
		releaseID   sql.NullString
		duration    sql.NullFloat64
		bitrate     sql.NullInt64
		format      sql.NullString
		fileSize    sql.NullInt64
		mtimeNanos  sql.NullInt64
		missing     sql.NullInt64
		deleted     sql.NullInt64
		partialHash sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&path,
		&title,
		&artist,
		&album,
		&albumArtist,
		&genre,
		&year,
		&trackNo,
		&releaseID,
		&duration,
		&bitrate,
		&format,
		&fileSize,
		&mtimeNanos,
		&missing,
		&deleted,
		&partialHash,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	track := &Track{
		ID:          id,
		Path:        path,
		Title:       title.String,
		Artist:      artist.String,
		Album:       album.String,
		AlbumArtist: albumArtist.String,
		Genre:       genre.String,
		Year:        int(year.Int64),
		TrackNo:     int(trackNo.Int64),
		ReleaseID:   releaseID.String,
		Duration:    duration.Float64,
		Bitrate:     int(bitrate.Int64),
		Format:      format.String,
		FileSize:    fileSize.Int64,
		MTimeNanos:  mtimeNanos.Int64,
		Missing:     missing.Int64 != 0,
		Deleted:     deleted.Int64 != 0,
		PartialHash: partialHash.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		track.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		track.UpdatedAt = updated
	}
	return track, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
