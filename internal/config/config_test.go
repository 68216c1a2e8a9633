package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtoolkit/clipforge/internal/config"
)

const sampleConfig = `
ffmpeg:
  ffmpeg_bin: /opt/ffmpeg/bin/ffmpeg
  ffprobe_bin: /opt/ffmpeg/bin/ffprobe
output:
  format: mkv
  fps: 30
  threads: 4
face:
  cascade_path: /opt/cascades/facefinder
watch:
  path: /srv/incoming
  parallelism: 3
log:
  level: debug
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func Test_Load(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Ffmpeg.FfmpegBinPath)
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", cfg.Ffmpeg.FfprobeBinPath)
	assert.Equal(t, "mkv", cfg.Output.OutputFormat)
	assert.Equal(t, 30, cfg.Output.FrameRate)
	assert.Equal(t, 4, cfg.Output.WriteThreads)
	assert.Equal(t, "/opt/cascades/facefinder", cfg.Face.CascadePath)
	assert.Equal(t, "/srv/incoming", cfg.Watch.WatchPath)
	assert.Equal(t, 3, cfg.Watch.Parallelism)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func Test_Load_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "log: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, "ffmpeg", cfg.Ffmpeg.FfmpegBinPath)
	assert.Equal(t, "ffprobe", cfg.Ffmpeg.FfprobeBinPath)
	assert.Equal(t, "mp4", cfg.Output.OutputFormat)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Watch.ForceSyncSeconds)
	assert.Equal(t, 120, cfg.Face.MaxSamples)
}

func Test_Load_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FFMPEG_BIN", "/usr/local/bin/ffmpeg")
	t.Setenv("LOG_LEVEL", "verbose")

	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.Ffmpeg.FfmpegBinPath)
	assert.Equal(t, "verbose", cfg.Log.Level)
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func Test_EditorConfig_SharesFfmpegPaths(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	editorConfig := cfg.EditorConfig()
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", editorConfig.Ffmpeg.FfmpegBinPath)
	assert.Equal(t, "mkv", editorConfig.OutputFormat)
}
