// Package editor implements the video editing facade: a loaded source
// video, an ordered plan of operations, and an export step which compiles
// the plan down to a single ffmpeg invocation.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/avtoolkit/clipforge/internal/ffmpeg"
	"github.com/avtoolkit/clipforge/internal/media"
	"github.com/avtoolkit/clipforge/pkg/logger"
)

var (
	log = logger.Get("Editor")

	// ErrNoMedia is returned by operations that require a loaded video.
	ErrNoMedia = errors.New("no media loaded")
)

// Config carries the editor-wide export defaults. Zero values fall back
// to sensible defaults when the editor is constructed via New.
type Config struct {
	Ffmpeg       ffmpeg.Config `yaml:"-"`
	OutputFormat string        `yaml:"format" env:"OUTPUT_FORMAT" env-default:"mp4"`
	FrameRate    int           `yaml:"fps" env:"OUTPUT_FPS" env-default:"0"`
	WriteThreads int           `yaml:"threads" env:"OUTPUT_THREADS" env-default:"0"`
	StripAudio   bool          `yaml:"strip_audio" env:"OUTPUT_STRIP_AUDIO" env-default:"false"`
}

// Editor edits one video at a time. Load resets the pending plan; the
// operation methods append to it; Export runs it. An Editor is not safe
// for concurrent use.
type Editor struct {
	config Config
	prober *media.Prober
	info   *media.Info
	ops    []operation

	// OnProgress, when set, receives updates from single-input exports.
	// Multi-input filter graphs do not currently report progress.
	OnProgress func(*ffmpeg.Progress)
}

func New(config Config) *Editor {
	if config.OutputFormat == "" {
		config.OutputFormat = "mp4"
	}
	if config.WriteThreads <= 0 {
		config.WriteThreads = DefaultWriteThreads()
	}

	return &Editor{
		config: config,
		prober: media.NewProber(&config.Ffmpeg),
	}
}

// DefaultWriteThreads derives a write thread count from the logical CPU
// count, reserving two cores for the rest of the system on larger machines.
func DefaultWriteThreads() int {
	total := runtime.NumCPU()
	if total < 5 {
		return 2
	}

	return total - 2
}

// Load probes the video at path and makes it the editor's working media,
// discarding any operations queued against a previously loaded video.
func (editor *Editor) Load(ctx context.Context, path string) error {
	info, err := editor.prober.Probe(ctx, path)
	if err != nil {
		return err
	}

	editor.info = info
	editor.ops = nil
	log.Emit(logger.DEBUG, "Loaded %s\n", info)

	return nil
}

// Info returns the metadata of the loaded video, or nil if none is loaded.
func (editor *Editor) Info() *media.Info { return editor.info }

// PlanLength returns the number of operations queued for export.
func (editor *Editor) PlanLength() int { return len(editor.ops) }

// Export compiles the queued operations and runs ffmpeg. When outputPath is
// empty the output is placed next to the source as '<stem>-edited.<format>'.
// The transcode writes to a hidden temp file in the destination directory
// which is renamed into place only on success, so a cancelled or failed
// export never leaves a partial file at the final path.
func (editor *Editor) Export(ctx context.Context, outputPath string) (string, error) {
	if editor.info == nil {
		return "", ErrNoMedia
	}

	if outputPath == "" {
		outputPath = editor.defaultOutputPath()
	}

	tempPath := filepath.Join(
		filepath.Dir(outputPath),
		fmt.Sprintf(".clipforge-%s%s", uuid.NewString(), filepath.Ext(outputPath)),
	)
	defer os.Remove(tempPath)

	if planNeedsGraph(editor.ops) {
		stream := buildGraph(editor.info, editor.config, editor.ops, tempPath)
		if err := ffmpeg.NewComposeCmd(stream, tempPath, &editor.config.Ffmpeg).Run(ctx); err != nil {
			return "", err
		}
	} else {
		opts := buildSimpleOptions(editor.config, editor.ops)
		if err := ffmpeg.NewCmd(editor.info.SourcePath, tempPath, &editor.config.Ffmpeg).Run(ctx, opts, editor.OnProgress); err != nil {
			return "", err
		}
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		return "", fmt.Errorf("failed to move finished export into place: %w", err)
	}

	log.Emit(logger.SUCCESS, "Exported %s -> %s\n", editor.info.Filename, outputPath)
	return outputPath, nil
}

func (editor *Editor) defaultOutputPath() string {
	source := editor.info.SourcePath
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	return filepath.Join(filepath.Dir(source), fmt.Sprintf("%s-edited.%s", stem, editor.config.OutputFormat))
}
