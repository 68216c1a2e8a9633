package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
)

// ProbeFile extracts container and stream information via ffprobe.
func ProbeFile(path string, config *Config) (transcoder.Metadata, error) {
	cfg := ffmpeg.Config{
		FfmpegBinPath:  config.FfmpegBinPath,
		FfprobeBinPath: config.FfprobeBinPath,
	}

	metadata, err := ffmpeg.New(&cfg).Input(path).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %w", err)
	}

	return metadata, nil
}

type sideDataProbe struct {
	Streams []SideDataStream `json:"streams"`
}

// SideDataStream carries the per-stream fields the transcoder library does
// not surface, most importantly the display rotation.
type SideDataStream struct {
	CodecType string `json:"codec_type"`
	Tags      struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideDataList []struct {
		Rotation int `json:"rotation"`
	} `json:"side_data_list"`
}

// ProbeSideData runs ffprobe directly and decodes its JSON output. This is
// the only way to read the display-rotation metadata some recording devices
// (phones in particular) attach to their video streams.
func ProbeSideData(ctx context.Context, path string, config *Config) ([]SideDataStream, error) {
	cmd := exec.CommandContext(
		ctx,
		config.FfprobeBinPath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		path,
	)

	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe side-data probe of %s failed: %w", path, err)
	}

	var probe sideDataProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode ffprobe output for %s: %w", path, err)
	}

	return probe.Streams, nil
}

// Rotation returns the display rotation for this stream normalised to one
// of 0, 90, 180 or 270. Rotation may be recorded as negative (e.g. -90 for
// a phone recorded in landscape) or via the legacy rotate tag.
func (stream *SideDataStream) Rotation() int {
	for _, sd := range stream.SideDataList {
		if sd.Rotation != 0 {
			return normaliseRotation(sd.Rotation)
		}
	}

	if stream.Tags.Rotate != "" {
		var rotation int
		if _, err := fmt.Sscanf(stream.Tags.Rotate, "%d", &rotation); err == nil {
			return normaliseRotation(rotation)
		}
	}

	return 0
}

func normaliseRotation(rotation int) int {
	rotation %= 360
	if rotation < 0 {
		rotation += 360
	}

	return rotation
}
