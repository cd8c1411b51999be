package scanner

import (
	"os"
	"time"

	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// readAudioProps extracts playback duration in seconds and average bitrate
// in kbps from the audio stream itself. Like tag reading this is best
// effort: formats without a supported header reader keep zero values, and
// the duplicate detector skips records without a duration.
func readAudioProps(path, format string, size int64) (float64, int) {
	var duration float64
	switch format {
	case "flac":
		duration = flacDuration(path)
	case "mp3":
		duration = mp3Duration(path)
	default:
		return 0, 0
	}
	if duration <= 0 {
		return 0, 0
	}
	return duration, int(float64(size) * 8 / duration / 1000)
}

// flacDuration reads total samples and sample rate from the STREAMINFO
// block.
func flacDuration(path string) float64 {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0
	}
	defer stream.Close()
	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return 0
	}
	return float64(info.NSamples) / float64(info.SampleRate)
}

// mp3Duration walks every frame header and sums frame durations, which
// stays accurate for VBR files where a single-header estimate would not.
func mp3Duration(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total time.Duration
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			break
		}
		total += frame.Duration()
	}
	return total.Seconds()
}
