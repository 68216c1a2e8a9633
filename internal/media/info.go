package media

import (
	"fmt"
	"time"
)

// Info is the probed metadata for a single video file. Width and Height
// are the *stored* dimensions; callers that care about how the video is
// actually displayed should use EffectiveDimensions, which accounts for
// the display-rotation metadata.
type Info struct {
	SourcePath string
	Filename   string
	Width      int
	Height     int
	Rotation   int
	Duration   time.Duration
	Codec      string
	FrameRate  float64
	HasAudio   bool
	Size       int64
}

// EffectiveDimensions returns the dimensions of the video as displayed,
// swapping width and height when the rotation metadata calls for a
// quarter turn.
func (info *Info) EffectiveDimensions() (width int, height int) {
	if info.Rotation == 90 || info.Rotation == 270 {
		return info.Height, info.Width
	}

	return info.Width, info.Height
}

func (info *Info) String() string {
	return fmt.Sprintf(
		"Info{file=%s codec=%s %dx%d rotation=%d duration=%s fps=%.3f audio=%v}",
		info.Filename, info.Codec, info.Width, info.Height, info.Rotation, info.Duration, info.FrameRate, info.HasAudio,
	)
}
