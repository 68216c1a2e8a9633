package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avtoolkit/clipforge/internal/config"
	"github.com/avtoolkit/clipforge/internal/editor"
	"github.com/avtoolkit/clipforge/internal/face"
	"github.com/avtoolkit/clipforge/internal/ffmpeg"
	"github.com/avtoolkit/clipforge/internal/plan"
	"github.com/avtoolkit/clipforge/pkg/logger"
)

var log = logger.Get("Main")

// app carries the loaded configuration plus the global flag overrides
// shared by every subcommand.
type app struct {
	cfg *config.Config

	configPath string
	logLevel   string
	logFile    string

	outputPath string
	format     string
	frameRate  int
	threads    int
	noAudio    bool
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "clipforge",
		Short:         "Edit video files with ffmpeg: trim, rotate, overlay, transcode",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to config file (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "minimum log level (verbose, debug, info, warning, error)")
	flags.StringVar(&a.logFile, "log-file", "", "also write logs to this file")
	flags.StringVarP(&a.outputPath, "output", "o", "", "output file path (default: '<stem>-edited.<format>' next to the source)")
	flags.StringVar(&a.format, "format", "", "output container format (default: mp4)")
	flags.IntVar(&a.frameRate, "fps", 0, "frames per second for the output video (default: keep source)")
	flags.IntVar(&a.threads, "threads", 0, "number of threads for writing video (default: derived from CPU count)")
	flags.BoolVar(&a.noAudio, "no-audio", false, "remove audio from the output video")

	root.AddCommand(
		newProbeCommand(a),
		newTrimCommand(a),
		newRotateCommand(a),
		newAutoRotateCommand(a),
		newStripAudioCommand(a),
		newTranscodeCommand(a),
		newInsertCommand(a),
		newOverlayCommand(a),
		newApplyCommand(a),
		newWatchCommand(a),
		newVersionCommand(),
	)

	return root
}

// setup loads configuration and wires the logger; it runs before every
// subcommand.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger.SetMinLoggingLevel(logger.ParseStatus(level))

	logFilePath := cfg.Log.FilePath
	if a.logFile != "" {
		logFilePath = a.logFile
	}
	if logFilePath != "" {
		sink, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger.AttachSink(sink)
	}

	return nil
}

// editorConfig merges the global flag overrides into the configured
// editor defaults.
func (a *app) editorConfig() editor.Config {
	cfg := a.cfg.EditorConfig()
	if a.format != "" {
		cfg.OutputFormat = a.format
	}
	if a.frameRate > 0 {
		cfg.FrameRate = a.frameRate
	}
	if a.threads > 0 {
		cfg.WriteThreads = a.threads
	}
	if a.noAudio {
		cfg.StripAudio = true
	}

	return cfg
}

func (a *app) newScanner() (*face.Scanner, error) {
	if a.cfg.Face.CascadePath == "" {
		return nil, fmt.Errorf("face detection requires face.cascade_path to be configured")
	}

	return face.NewScanner(a.cfg.Face, &a.cfg.Ffmpeg)
}

// optionalScanner builds the face scanner only when a cascade is configured.
// Without one the returned scanner is nil and plans containing an autorotate
// step will fail; a configured but unusable cascade is an error.
func (a *app) optionalScanner() (plan.FaceScanner, error) {
	if a.cfg.Face.CascadePath == "" {
		return nil, nil
	}

	scanner, err := a.newScanner()
	if err != nil {
		return nil, err
	}

	return scanner, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM so a stuck
// ffmpeg can be interrupted cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runEdit is the shared single-shot command body: load the input, queue
// operations via the callback, export.
func (a *app) runEdit(inputPath string, queueOps func(ctx context.Context, ed *editor.Editor) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	ed := editor.New(a.editorConfig())
	ed.OnProgress = func(progress *ffmpeg.Progress) {
		log.Emit(logger.VERBOSE, "Progress %.1f%% (frames=%s speed=%s)\n",
			progress.Progress, progress.FramesProcessed, progress.Speed)
	}

	if err := ed.Load(ctx, inputPath); err != nil {
		return err
	}
	if err := queueOps(ctx, ed); err != nil {
		return err
	}

	output, err := ed.Export(ctx, a.outputPath)
	if err != nil {
		return err
	}

	fmt.Println(output)
	return nil
}
