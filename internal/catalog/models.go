package catalog

import "time"

// Track represents one audio file known to the catalog.
//
// Path is unique among active (non-deleted) tracks. The reorganization engine
// mutates only Path (on successful execution) and the deleted flag (duplicate
// disposition); every other field is owned by the scanner and the metadata
// enrichment pipeline.
type Track struct {
	ID          int64
	Path        string
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Year        int
	TrackNo     int
	ReleaseID   string

	Duration float64
	Bitrate  int
	Format   string

	FileSize    int64
	MTimeNanos  int64
	Missing     bool
	Deleted     bool
	PartialHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter restricts the track listing.
type Filter struct {
	// IncludeMissing also returns tracks whose file was absent at last scan.
	IncludeMissing bool
	// IncludeDeleted also returns tracks removed by duplicate disposition.
	IncludeDeleted bool
	// Format limits results to a single audio format (lowercase extension).
	Format string
	// PathPrefix limits results to tracks under a directory.
	PathPrefix string
}

// Stats summarizes catalog contents for diagnostics.
type Stats struct {
	Total   int
	Active  int
	Missing int
	Deleted int
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalTracks      int
	Error            string
}
