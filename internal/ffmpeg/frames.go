package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/floostack/transcoder/ffmpeg"
)

// ExtractSampleFrames decodes the video at inputPath and writes up to
// maxFrames JPEG stills (sampled at framesPerSecond) into a fresh temp
// directory. The returned cleanup function removes the directory; it is
// safe to call even when an error is returned.
func ExtractSampleFrames(ctx context.Context, inputPath string, config *Config, framesPerSecond float64, maxFrames int) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "clipforge-frames-")
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to create frame sampling directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	pattern := filepath.Join(dir, "frame_%05d.jpg")
	sampleFilter := fmt.Sprintf("fps=%g", framesPerSecond)
	skipAudio := true
	opts := ffmpeg.Options{
		VideoFilter: &sampleFilter,
		SkipAudio:   &skipAudio,
		Vframes:     &maxFrames,
	}

	if err := NewCmd(inputPath, pattern, config).Run(ctx, opts, nil); err != nil {
		return nil, cleanup, fmt.Errorf("frame sampling of %s failed: %w", inputPath, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to list sampled frames: %w", err)
	}

	frames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jpg") {
			frames = append(frames, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(frames)

	return frames, cleanup, nil
}
