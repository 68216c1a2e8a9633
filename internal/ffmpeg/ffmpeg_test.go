package ffmpeg

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SideDataRotation(t *testing.T) {
	tests := []struct {
		summary  string
		raw      string
		expected int
	}{
		{
			"side data rotation",
			`{"codec_type":"video","side_data_list":[{"rotation":90}]}`,
			90,
		},
		{
			"negative rotation is normalised",
			`{"codec_type":"video","side_data_list":[{"rotation":-90}]}`,
			270,
		},
		{
			"full turns collapse",
			`{"codec_type":"video","side_data_list":[{"rotation":-450}]}`,
			270,
		},
		{
			"legacy rotate tag",
			`{"codec_type":"video","tags":{"rotate":"180"}}`,
			180,
		},
		{
			"side data wins over tag",
			`{"codec_type":"video","tags":{"rotate":"180"},"side_data_list":[{"rotation":90}]}`,
			90,
		},
		{
			"no rotation metadata",
			`{"codec_type":"video"}`,
			0,
		},
		{
			"unparseable tag",
			`{"codec_type":"video","tags":{"rotate":"sideways"}}`,
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			var stream SideDataStream
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &stream))
			assert.Equal(t, tt.expected, stream.Rotation())
		})
	}
}

func Test_ParseFfmpegError(t *testing.T) {
	t.Run("extracts the embedded error string", func(t *testing.T) {
		raw := errors.New(`ffmpeg version 6.0 Copyright (c) the FFmpeg developers
  built with gcc
message: {"error": {"string": "No such file or directory"}}`)

		err := ParseFfmpegError(raw)
		assert.EqualError(t, err, "No such file or directory")
	})

	t.Run("falls back to the message payload", func(t *testing.T) {
		raw := errors.New(`message: {"status": "failed"}`)

		err := ParseFfmpegError(raw)
		assert.EqualError(t, err, `{"status": "failed"}`)
	})

	t.Run("passes through errors without a message", func(t *testing.T) {
		raw := errors.New("exit status 1")
		assert.Same(t, raw, ParseFfmpegError(raw))
	})
}

func Test_TailLines(t *testing.T) {
	out := "ffmpeg version 6.0\nbuilt with gcc\n\nconfiguration: --enable-gpl\n\nInvalid data found when processing input"

	assert.Equal(
		t,
		"built with gcc; configuration: --enable-gpl; Invalid data found when processing input",
		tailLines(out, 3),
	)
	assert.Equal(t, "Invalid data found when processing input", tailLines(out, 1))
	assert.Equal(t, "", tailLines("", 3))
}
