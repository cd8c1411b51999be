package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"crate/internal/catalog"
)

// readTrack builds a catalog record from a file's tags. Tag parsing is best
// effort: unreadable or untagged files still get a record with the title
// falling back to the file stem, so the template engine always has a usable
// title and extension.
func readTrack(path string, info os.FileInfo) *catalog.Track {
	track := &catalog.Track{
		Path:       path,
		Format:     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		FileSize:   info.Size(),
		MTimeNanos: info.ModTime().UnixNano(),
	}

	if f, err := os.Open(path); err == nil {
		if meta, err := tag.ReadFrom(f); err == nil {
			track.Title = strings.TrimSpace(meta.Title())
			track.Artist = strings.TrimSpace(meta.Artist())
			track.Album = strings.TrimSpace(meta.Album())
			track.AlbumArtist = strings.TrimSpace(meta.AlbumArtist())
			track.Genre = strings.TrimSpace(meta.Genre())
			track.Year = meta.Year()
			trackNo, _ := meta.Track()
			track.TrackNo = trackNo
		}
		f.Close()
	}

	if track.Title == "" {
		track.Title = fileStem(path)
	}
	track.Duration, track.Bitrate = readAudioProps(path, track.Format, track.FileSize)
	return track
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
