package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/avtoolkit/clipforge/pkg/logger"
)

// ComposeCommand runs a multi-input ffmpeg filter graph. Graphs are built
// with the ffmpeg-go library by the editor (splicing and overlay need
// several inputs and a filter_complex, which the single-input transcoder
// pipeline cannot express) and executed here so that cancellation and
// binary resolution behave the same as TranscodeCommand.
type ComposeCommand struct {
	stream     *ffmpeggo.Stream
	outputPath string
	config     *Config
}

func NewComposeCmd(stream *ffmpeggo.Stream, outputPath string, config *Config) *ComposeCommand {
	return &ComposeCommand{stream, outputPath, config}
}

func (cmd *ComposeCommand) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(cmd.outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", cmd.outputPath, err)
	}

	args := cmd.stream.OverWriteOutput().GetArgs()
	log.Emit(logger.VERBOSE, "Composed ffmpeg invocation: %s %s\n", cmd.config.FfmpegBinPath, strings.Join(args, " "))

	proc := exec.CommandContext(ctx, cmd.config.FfmpegBinPath, args...)
	var stderr bytes.Buffer
	proc.Stderr = &stderr

	if err := proc.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("ffmpeg filter graph failed: %s", tailLines(stderr.String(), 6))
	}

	return nil
}

func (cmd *ComposeCommand) OutputPath() string { return cmd.outputPath }

// tailLines returns the last n non-empty lines of s; ffmpeg failure output
// buries the actual problem at the very bottom of a long banner.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			kept = append([]string{trimmed}, kept...)
		}
	}

	return strings.Join(kept, "; ")
}
