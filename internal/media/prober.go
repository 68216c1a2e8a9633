package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avtoolkit/clipforge/internal/ffmpeg"
)

// ErrNoVideoStream is returned when a probed file carries no video
// stream at all (e.g. a bare audio file).
var ErrNoVideoStream = errors.New("no video stream present in media file")

// Prober extracts Info from media files on disk using ffprobe.
type Prober struct {
	config *ffmpeg.Config
}

func NewProber(config *ffmpeg.Config) *Prober {
	return &Prober{config: config}
}

// Probe reads the container and stream metadata of the file at path.
// The bulk of the information comes from the transcoder library's probe;
// the display rotation requires a second, direct ffprobe invocation as
// the library does not expose stream side data.
func (prober *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	metadata, err := ffmpeg.ProbeFile(path, prober.config)
	if err != nil {
		return nil, err
	}

	info := Info{
		SourcePath: path,
		Filename:   filepath.Base(path),
	}

	foundVideo := false
	for _, stream := range metadata.GetStreams() {
		switch stream.GetCodecType() {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true

			info.Width = stream.GetWidth()
			info.Height = stream.GetHeight()
			info.Codec = stream.GetCodecName()
			info.FrameRate = parseFrameRate(stream.GetAvgFrameRate())
		case "audio":
			info.HasAudio = true
		}
	}

	if !foundVideo {
		return nil, fmt.Errorf("failed to probe %s: %w", path, ErrNoVideoStream)
	}

	format := metadata.GetFormat()
	info.Duration = parseSeconds(format.GetDuration())
	if size, err := strconv.ParseInt(format.GetSize(), 10, 64); err == nil {
		info.Size = size
	}

	streams, err := ffmpeg.ProbeSideData(ctx, path, prober.config)
	if err != nil {
		return nil, err
	}
	for i := range streams {
		if streams[i].CodecType == "video" {
			info.Rotation = streams[i].Rotation()
			break
		}
	}

	return &info, nil
}

// parseFrameRate converts ffprobe's fractional frame rate notation
// (e.g. "30000/1001") to a float. Malformed input yields 0.
func parseFrameRate(raw string) float64 {
	if raw == "" {
		return 0
	}

	parts := strings.SplitN(raw, "/", 2)
	numerator, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return numerator
	}

	denominator, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || denominator == 0 {
		return 0
	}

	return numerator / denominator
}

func parseSeconds(raw string) time.Duration {
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}
