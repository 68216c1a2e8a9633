package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/avtoolkit/clipforge/internal/editor"
	"github.com/avtoolkit/clipforge/pkg/logger"
)

func newTrimCommand(a *app) *cobra.Command {
	var start, end time.Duration

	cmd := &cobra.Command{
		Use:   "trim <video>",
		Short: "Extract a sub-range of the video's timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				return ed.Trim(start, end)
			})
		},
	}

	cmd.Flags().DurationVar(&start, "start", 0, "start of the range (e.g. 1m30s)")
	cmd.Flags().DurationVar(&end, "end", 0, "end of the range (default: end of video)")
	return cmd
}

func newRotateCommand(a *app) *cobra.Command {
	var angle int

	cmd := &cobra.Command{
		Use:   "rotate <video>",
		Short: "Rotate the video counter-clockwise by 90, 180 or 270 degrees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				return ed.Rotate(angle)
			})
		},
	}

	cmd.Flags().IntVar(&angle, "angle", 90, "rotation angle in degrees (90, 180 or 270)")
	return cmd
}

func newAutoRotateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "autorotate <video>",
		Short: "Rotate the video upright based on where faces are detected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := a.newScanner()
			if err != nil {
				return err
			}

			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				result, err := scanner.Scan(ctx, args[0])
				if err != nil {
					return err
				}

				log.Emit(logger.INFO, "Detected faces at grid (%d,%d), rotation %d\n", result.GridX, result.GridY, result.Rotation)
				return ed.Rotate(result.Rotation)
			})
		},
	}
}

func newStripAudioCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strip-audio <video>",
		Short: "Remove all audio streams from the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				return ed.StripAudio()
			})
		},
	}
}

func newTranscodeCommand(a *app) *cobra.Command {
	var opts editor.TranscodeOptions

	cmd := &cobra.Command{
		Use:   "transcode <video>",
		Short: "Convert the video's encoding and/or container format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Format = a.format
			opts.FrameRate = a.frameRate

			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				return ed.Transcode(opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.VideoCodec, "video-codec", "", "video codec (e.g. libx264)")
	cmd.Flags().StringVar(&opts.AudioCodec, "audio-codec", "", "audio codec (e.g. aac)")
	cmd.Flags().Uint32Var(&opts.CRF, "crf", 0, "constant rate factor (0-51)")
	cmd.Flags().StringVar(&opts.Preset, "preset", "", "encoder preset (e.g. medium, slow)")
	return cmd
}

func newInsertCommand(a *app) *cobra.Command {
	var (
		imagePath string
		videoPath string
		at        time.Duration
		duration  time.Duration
		trimStart time.Duration
		trimEnd   time.Duration
		noScale   bool
	)

	cmd := &cobra.Command{
		Use:   "insert <video>",
		Short: "Splice an image or another video into the timeline",
		Long: `Splice media into the video's timeline at a given point. An inserted
image is shown for --duration; an inserted video may first be trimmed with
--trim-start/--trim-end. A negative --at counts back from the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (imagePath == "") == (videoPath == "") {
				return errors.New("exactly one of --image or --video is required")
			}

			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				if imagePath != "" {
					return ed.InsertImage(imagePath, editor.InsertOptions{
						At:       at,
						Duration: duration,
						NoScale:  noScale,
					})
				}

				return ed.InsertVideo(ctx, videoPath, editor.InsertVideoOptions{
					At:        at,
					TrimStart: trimStart,
					TrimEnd:   trimEnd,
					NoScale:   noScale,
				})
			})
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to the image to insert")
	cmd.Flags().StringVar(&videoPath, "video", "", "path to the video to insert")
	cmd.Flags().DurationVar(&at, "at", 0, "where to splice the clip in (negative counts from the end)")
	cmd.Flags().DurationVar(&duration, "duration", 800*time.Millisecond, "how long an inserted image is shown")
	cmd.Flags().DurationVar(&trimStart, "trim-start", 0, "trim the inserted video from this point")
	cmd.Flags().DurationVar(&trimEnd, "trim-end", 0, "trim the inserted video up to this point")
	cmd.Flags().BoolVar(&noScale, "no-scale", false, "do not scale the inserted media to the video dimensions")
	return cmd
}

func newOverlayCommand(a *app) *cobra.Command {
	var (
		imagePath string
		at        time.Duration
		duration  time.Duration
		position  string
	)

	cmd := &cobra.Command{
		Use:   "overlay <video>",
		Short: "Composite an image on top of the video for a time window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				return ed.Overlay(imagePath, editor.OverlayOptions{
					At:       at,
					Duration: duration,
					Position: position,
				})
			})
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to the image to overlay")
	cmd.Flags().DurationVar(&at, "at", 0, "when the overlay appears")
	cmd.Flags().DurationVar(&duration, "duration", time.Second, "how long the overlay is shown")
	cmd.Flags().StringVar(&position, "position", "center", "overlay anchor (top-left, top-right, bottom-left, bottom-right, center)")
	cmd.MarkFlagRequired("image")
	return cmd
}
