package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"

	"github.com/avtoolkit/clipforge/pkg/logger"
)

var log = logger.Get("FFmpeg")

// Config holds the location of the ffmpeg and ffprobe binaries used for
// every probe and transcode this package performs.
type Config struct {
	FfmpegBinPath  string `yaml:"ffmpeg_bin" env:"FFMPEG_BIN" env-default:"ffmpeg"`
	FfprobeBinPath string `yaml:"ffprobe_bin" env:"FFPROBE_BIN" env-default:"ffprobe"`
}

// Progress is a snapshot of an in-flight ffmpeg command, derived from
// the progress lines ffmpeg emits on stderr.
type Progress struct {
	FramesProcessed string
	CurrentTime     string
	CurrentBitrate  string
	Progress        float64
	Speed           string
}

// TranscodeCommand runs a single-input ffmpeg command via the transcoder
// library, reporting progress to a callback for the lifetime of the command.
type TranscodeCommand struct {
	inputPath      string
	outputPath     string
	config         *Config
	runningCommand *exec.Cmd
}

func NewCmd(input string, output string, config *Config) *TranscodeCommand {
	return &TranscodeCommand{input, output, config, nil}
}

func (cmd *TranscodeCommand) Run(ctx context.Context, opts transcoder.Options, updateHandler func(*Progress)) error {
	t := ffmpeg.
		New(&ffmpeg.Config{
			ProgressEnabled: true,
			FfmpegBinPath:   cmd.config.FfmpegBinPath,
			FfprobeBinPath:  cmd.config.FfprobeBinPath,
		}).
		Input(cmd.inputPath).
		Output(cmd.outputPath).
		WithContext(&ctx)

	if err := os.MkdirAll(filepath.Dir(cmd.outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", cmd.outputPath, err)
	}

	progressChannel, err := t.Start(opts)
	if err != nil {
		return ParseFfmpegError(err)
	}

	cmd.runningCommand = t.GetRunningCmdInstance()

	for {
		prog, ok := <-progressChannel
		if !ok {
			log.Emit(logger.DEBUG, "FFmpeg command for %s has closed its progress channel\n", cmd.inputPath)
			return nil
		}

		if updateHandler != nil {
			updateHandler(&Progress{
				FramesProcessed: prog.GetFramesProcessed(),
				CurrentTime:     prog.GetCurrentTime(),
				CurrentBitrate:  prog.GetCurrentBitrate(),
				Progress:        prog.GetProgress(),
				Speed:           prog.GetSpeed(),
			})
		}
	}
}

// Suspend pauses the underlying ffmpeg process (if any).
func (cmd *TranscodeCommand) Suspend() {
	if cmd.runningCommand == nil {
		log.Emit(logger.ERROR, "Cannot suspend FFmpeg command %v because it is not running\n", cmd)
		return
	}

	cmd.runningCommand.Process.Signal(syscall.SIGTSTP)
	log.Emit(logger.SUCCESS, "Suspended %v\n", cmd)
}

// Continue resumes a previously suspended ffmpeg process (if any).
func (cmd *TranscodeCommand) Continue() {
	if cmd.runningCommand == nil {
		log.Emit(logger.ERROR, "Cannot continue FFmpeg command %v because it is not running\n", cmd)
		return
	}

	cmd.runningCommand.Process.Signal(syscall.SIGCONT)
	log.Emit(logger.SUCCESS, "Resumed %v\n", cmd)
}

func (cmd *TranscodeCommand) InputPath() string  { return cmd.inputPath }
func (cmd *TranscodeCommand) OutputPath() string { return cmd.outputPath }

func (cmd *TranscodeCommand) String() string {
	pid := -1
	if cmd.runningCommand != nil {
		pid = cmd.runningCommand.Process.Pid
	}

	return fmt.Sprintf("{ffmpeg pid=%d | in_path=%s | out_path=%s}", pid, cmd.inputPath, cmd.outputPath)
}

// ParseFfmpegError tries to pick the relevant information out of the huge
// output log ffmpeg produces on failure. The error contains lots of noise
// about how the binary was compiled; we just want the 'message' JSON that
// is encoded inside.
func ParseFfmpegError(err error) error {
	messageMatcher := regexp.MustCompile(`(?s)message: ({.*})`)
	groups := messageMatcher.FindStringSubmatch(err.Error())
	if len(groups) == 0 {
		return err
	}

	var out map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(groups[1]), &out); jsonErr != nil {
		// We failed to extract the info, just use the entire string as our error
		return errors.New(groups[1])
	}

	if exception, ok := out["error"].(map[string]interface{}); ok {
		if msg, ok := exception["string"].(string); ok {
			return errors.New(msg)
		}
	}

	return errors.New(groups[1])
}
