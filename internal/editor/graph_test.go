package editor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtoolkit/clipforge/internal/media"
)

func graphTestInfo() *media.Info {
	return &media.Info{
		SourcePath: "/videos/holiday.mp4",
		Filename:   "holiday.mp4",
		Width:      1920,
		Height:     1080,
		Duration:   time.Minute,
		FrameRate:  30,
		HasAudio:   true,
	}
}

// compileGraph renders the filter graph to the ffmpeg argument list so
// tests can assert on the generated filter_complex expression.
func compileGraph(t *testing.T, info *media.Info, config Config, ops []operation) string {
	t.Helper()

	stream := buildGraph(info, config, ops, "/tmp/out.mp4")
	require.NotNil(t, stream)

	return strings.Join(stream.GetArgs(), " ")
}

func Test_BuildGraph_InsertImage(t *testing.T) {
	ops := []operation{insertOp{
		source:   "/images/cover.png",
		at:       10 * time.Second,
		duration: 800 * time.Millisecond,
		scale:    true,
	}}

	args := compileGraph(t, graphTestInfo(), Config{}, ops)

	assert.Contains(t, args, "-filter_complex")
	assert.Contains(t, args, "/images/cover.png")
	assert.Contains(t, args, "-loop 1", "still images should be looped for their display duration")
	assert.Contains(t, args, "scale=1920:1080")
	assert.Contains(t, args, "concat=", "a mid-timeline splice should concat pre, clip and post segments")
	assert.Contains(t, args, "n=3")
	assert.Contains(t, args, "anullsrc", "an image contributes silence while audio is kept")
	assert.Contains(t, args, "end=10.000")
	assert.Contains(t, args, "start=10.000")
	assert.Contains(t, args, "split", "the main video feeds both the pre and post trim")
	assert.Contains(t, args, "asplit", "the main audio feeds both the pre and post trim")
}

func Test_BuildGraph_InsertAtEdges(t *testing.T) {
	t.Run("prepend", func(t *testing.T) {
		args := compileGraph(t, graphTestInfo(), Config{}, []operation{insertOp{
			source:   "/images/cover.png",
			at:       0,
			duration: time.Second,
			scale:    true,
		}})

		assert.Contains(t, args, "n=2", "splicing at the start should not cut the main video")
		assert.NotContains(t, args, "trim=start=")
	})

	t.Run("append", func(t *testing.T) {
		args := compileGraph(t, graphTestInfo(), Config{}, []operation{insertOp{
			source:   "/images/cover.png",
			at:       2 * time.Minute,
			duration: time.Second,
			scale:    true,
		}})

		assert.Contains(t, args, "n=2", "splicing past the end should not cut the main video")
	})
}

func Test_BuildGraph_InsertWithoutAudio(t *testing.T) {
	info := graphTestInfo()
	info.HasAudio = false

	args := compileGraph(t, info, Config{}, []operation{insertOp{
		source:   "/images/cover.png",
		at:       10 * time.Second,
		duration: time.Second,
		scale:    true,
	}})

	assert.Contains(t, args, "a=0")
	assert.Contains(t, args, "n=3")
	assert.NotContains(t, args, "anullsrc")
	assert.Contains(t, args, "split")
	assert.NotContains(t, args, "asplit", "no audio means nothing to split")
}

func Test_BuildGraph_Overlay(t *testing.T) {
	ops := []operation{overlayOp{
		source:   "/images/logo.png",
		at:       5 * time.Second,
		duration: 3 * time.Second,
		position: "bottom-right",
	}}

	args := compileGraph(t, graphTestInfo(), Config{}, ops)

	assert.Contains(t, args, "overlay=")
	assert.Contains(t, args, "between(t")
	assert.Contains(t, args, "main_w-overlay_w-10")
	assert.Contains(t, args, "main_h-overlay_h-10")
}

func Test_BuildGraph_MixedPlan(t *testing.T) {
	ops := []operation{
		trimOp{Start: 2 * time.Second, End: 30 * time.Second},
		rotateOp{Angle: 90},
		overlayOp{source: "/images/logo.png", at: 0, duration: time.Second, position: "center"},
	}

	args := compileGraph(t, graphTestInfo(), Config{WriteThreads: 4}, ops)

	assert.Contains(t, args, "end=30.000")
	assert.Contains(t, args, "start=2.000")
	assert.Contains(t, args, "atrim=")
	assert.Contains(t, args, "transpose=2")
	assert.Contains(t, args, "overlay=")
	assert.Contains(t, args, "-threads 4")
}

func Test_BuildGraph_RotationSwapsScaleTarget(t *testing.T) {
	ops := []operation{
		rotateOp{Angle: 90},
		insertOp{source: "/images/cover.png", at: 0, duration: time.Second, scale: true},
	}

	args := compileGraph(t, graphTestInfo(), Config{}, ops)

	assert.Contains(t, args, "scale=1080:1920", "clips spliced after a quarter turn should scale to the rotated dimensions")
}

func Test_EffectiveFrameRate(t *testing.T) {
	info := graphTestInfo()

	assert.Equal(t, float64(30), effectiveFrameRate(info, Config{}))
	assert.Equal(t, float64(24), effectiveFrameRate(info, Config{FrameRate: 24}))

	info.FrameRate = 0
	assert.Equal(t, float64(25), effectiveFrameRate(info, Config{}), "an unknown source frame rate should fall back to 25")
}
