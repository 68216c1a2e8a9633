package plan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtoolkit/clipforge/internal/editor"
)

const samplePlan = `
steps:
  - op: trim
    start: 5s
    end: 1m30s
  - op: autorotate
  - op: insert-image
    source: ./cover.png
    at: -2s
    duration: 800ms
  - op: transcode
    format: mp4
    video_codec: libx264
    crf: 23
`

func Test_Parse(t *testing.T) {
	plan, err := Parse([]byte(samplePlan))
	require.NoError(t, err)
	require.Len(t, plan.Steps, 4)

	assert.Equal(t, "trim", plan.Steps[0].Op)
	assert.Equal(t, "5s", plan.Steps[0].Params["start"])
	assert.Equal(t, "autorotate", plan.Steps[1].Op)
	assert.Empty(t, plan.Steps[1].Params)
	assert.Equal(t, "insert-image", plan.Steps[2].Op)
	assert.Equal(t, "./cover.png", plan.Steps[2].Params["source"])
}

func Test_Parse_Rejections(t *testing.T) {
	tests := []struct {
		summary string
		raw     string
	}{
		{"malformed yaml", "steps: ["},
		{"no steps", "steps: []"},
		{"missing steps key", "ops: []"},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func Test_DecodeParams(t *testing.T) {
	t.Run("duration strings", func(t *testing.T) {
		var params trimParams
		err := decodeParams(map[string]any{"start": "1m30s", "end": "2m"}, &params)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, params.Start)
		assert.Equal(t, 2*time.Minute, params.End)
	})

	t.Run("negative durations count from the end", func(t *testing.T) {
		var params insertImageParams
		err := decodeParams(map[string]any{"source": "x.png", "at": "-2s", "duration": "800ms"}, &params)
		require.NoError(t, err)
		assert.Equal(t, -2*time.Second, params.At)
		assert.Equal(t, 800*time.Millisecond, params.Duration)
	})

	t.Run("numeric angle", func(t *testing.T) {
		var params rotateParams
		err := decodeParams(map[string]any{"angle": 90}, &params)
		require.NoError(t, err)
		assert.Equal(t, 90, params.Angle)
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		var params trimParams
		err := decodeParams(map[string]any{"start": "5s", "oops": true}, &params)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid parameters")
	})
}

func Test_Apply_ErrorsNameTheStep(t *testing.T) {
	plan, err := Parse([]byte("steps:\n  - op: strip-audio\n"))
	require.NoError(t, err)

	err = plan.Apply(context.Background(), editor.New(editor.Config{}), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, editor.ErrNoMedia)
	assert.Contains(t, err.Error(), "edit plan step 1 (strip-audio)")
}

func Test_Apply_UnknownOperation(t *testing.T) {
	plan, err := Parse([]byte("steps:\n  - op: explode\n"))
	require.NoError(t, err)

	err = plan.Apply(context.Background(), editor.New(editor.Config{}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown operation "explode"`)
}

func Test_Apply_AutorotateNeedsScanner(t *testing.T) {
	plan, err := Parse([]byte("steps:\n  - op: autorotate\n"))
	require.NoError(t, err)

	err = plan.Apply(context.Background(), editor.New(editor.Config{}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "face scanner")
}

func Test_InsertImageDurationDefault(t *testing.T) {
	var params insertImageParams
	require.NoError(t, decodeParams(map[string]any{"source": "cover.png"}, &params))
	assert.Equal(t, 800*time.Millisecond, params.options().Duration,
		"an omitted duration should fall back to the batch-mode default")

	require.NoError(t, decodeParams(map[string]any{"source": "cover.png", "duration": "2s"}, &params))
	assert.Equal(t, 2*time.Second, params.options().Duration)
}
