package editor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	transcodeopts "github.com/floostack/transcoder/ffmpeg"
	"github.com/go-playground/validator/v10"

	"github.com/avtoolkit/clipforge/internal/media"
)

var validate = validator.New()

type operation interface {
	name() string
}

type trimOp struct {
	Start time.Duration `validate:"gte=0"`
	// End of 0 means "to the end of the video".
	End time.Duration `validate:"gte=0"`
}

type rotateOp struct {
	// Angle is a counter-clockwise rotation.
	Angle int `validate:"oneof=90 180 270"`
}

type stripAudioOp struct{}

// TranscodeOptions control the encoding of the export. Zero values leave
// the corresponding encoder setting untouched.
type TranscodeOptions struct {
	Format     string `validate:"omitempty,alphanum"`
	VideoCodec string
	AudioCodec string
	CRF        uint32 `validate:"lte=51"`
	Preset     string
	FrameRate  int `validate:"gte=0,lte=240"`
}

type transcodeOp struct {
	Options TranscodeOptions
}

// InsertOptions control timeline splicing. At is where the clip is spliced
// in: 0 prepends, a value at or beyond the video duration appends, and a
// negative value counts back from the end.
type InsertOptions struct {
	At       time.Duration
	Duration time.Duration `validate:"gt=0"`
	NoScale  bool
}

// InsertVideoOptions additionally allow trimming the inserted clip before
// it is spliced in.
type InsertVideoOptions struct {
	At        time.Duration
	TrimStart time.Duration `validate:"gte=0"`
	TrimEnd   time.Duration `validate:"gte=0"`
	NoScale   bool
}

// OverlayOptions control image composition on top of the video for the
// window [At, At+Duration).
type OverlayOptions struct {
	At       time.Duration `validate:"gte=0"`
	Duration time.Duration `validate:"gt=0"`
	Position string        `validate:"oneof=top-left top-right bottom-left bottom-right center"`
}

type insertOp struct {
	source    string
	clip      *media.Info // nil for still images
	at        time.Duration
	duration  time.Duration
	trimStart time.Duration
	trimEnd   time.Duration
	scale     bool
}

type overlayOp struct {
	source   string
	at       time.Duration
	duration time.Duration
	position string
}

func (trimOp) name() string       { return "trim" }
func (rotateOp) name() string     { return "rotate" }
func (stripAudioOp) name() string { return "strip-audio" }
func (transcodeOp) name() string  { return "transcode" }
func (insertOp) name() string     { return "insert" }
func (overlayOp) name() string    { return "overlay" }

// Trim restricts the export to the [start, end) range of the timeline.
// An end of 0 trims to the end of the video.
func (editor *Editor) Trim(start time.Duration, end time.Duration) error {
	if editor.info == nil {
		return ErrNoMedia
	}

	op := trimOp{Start: start, End: end}
	if err := validate.Struct(op); err != nil {
		return fmt.Errorf("invalid trim range: %w", err)
	}
	if end != 0 && end <= start {
		return fmt.Errorf("invalid trim range: end %s is not after start %s", end, start)
	}
	if start >= editor.info.Duration {
		return fmt.Errorf("invalid trim range: start %s is beyond the video duration %s", start, editor.info.Duration)
	}

	editor.ops = append(editor.ops, op)
	return nil
}

// Rotate turns the video counter-clockwise by the given angle
// (90, 180 or 270 degrees). An angle of 0 is a no-op.
func (editor *Editor) Rotate(angle int) error {
	if editor.info == nil {
		return ErrNoMedia
	}
	if angle == 0 {
		return nil
	}

	op := rotateOp{Angle: angle}
	if err := validate.Struct(op); err != nil {
		return fmt.Errorf("invalid rotation angle %d: must be one of 0, 90, 180, 270", angle)
	}

	editor.ops = append(editor.ops, op)
	return nil
}

// StripAudio drops all audio streams from the export.
func (editor *Editor) StripAudio() error {
	if editor.info == nil {
		return ErrNoMedia
	}

	editor.ops = append(editor.ops, stripAudioOp{})
	return nil
}

// Transcode re-encodes the export with the given encoder settings.
func (editor *Editor) Transcode(opts TranscodeOptions) error {
	if editor.info == nil {
		return ErrNoMedia
	}
	if err := validate.Struct(opts); err != nil {
		return fmt.Errorf("invalid transcode options: %w", err)
	}

	editor.ops = append(editor.ops, transcodeOp{Options: opts})
	return nil
}

// InsertImage splices a still image into the timeline, shown for
// opts.Duration. The image is scaled to the video dimensions unless
// opts.NoScale is set.
func (editor *Editor) InsertImage(path string, opts InsertOptions) error {
	if editor.info == nil {
		return ErrNoMedia
	}
	if err := validate.Struct(opts); err != nil {
		return fmt.Errorf("invalid insert options: %w", err)
	}

	at, err := editor.resolveSpliceTime(opts.At)
	if err != nil {
		return err
	}

	editor.ops = append(editor.ops, insertOp{
		source:   path,
		at:       at,
		duration: opts.Duration,
		scale:    !opts.NoScale,
	})
	return nil
}

// InsertVideo splices another video into the timeline, optionally trimmed
// to [TrimStart, TrimEnd) first. The clip is probed so the splice knows its
// duration and whether it carries audio.
func (editor *Editor) InsertVideo(ctx context.Context, path string, opts InsertVideoOptions) error {
	if editor.info == nil {
		return ErrNoMedia
	}
	if err := validate.Struct(opts); err != nil {
		return fmt.Errorf("invalid insert options: %w", err)
	}
	if opts.TrimEnd != 0 && opts.TrimEnd <= opts.TrimStart {
		return fmt.Errorf("invalid trim range for inserted clip: end %s is not after start %s", opts.TrimEnd, opts.TrimStart)
	}

	clip, err := editor.prober.Probe(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to probe inserted clip: %w", err)
	}

	at, err := editor.resolveSpliceTime(opts.At)
	if err != nil {
		return err
	}

	duration := clip.Duration
	if opts.TrimEnd != 0 || opts.TrimStart != 0 {
		end := opts.TrimEnd
		if end == 0 {
			end = clip.Duration
		}
		duration = end - opts.TrimStart
	}

	editor.ops = append(editor.ops, insertOp{
		source:    path,
		clip:      clip,
		at:        at,
		duration:  duration,
		trimStart: opts.TrimStart,
		trimEnd:   opts.TrimEnd,
		scale:     !opts.NoScale,
	})
	return nil
}

// Overlay composites an image on top of the video for the window
// [At, At+Duration), anchored at the given position.
func (editor *Editor) Overlay(path string, opts OverlayOptions) error {
	if editor.info == nil {
		return ErrNoMedia
	}
	if err := validate.Struct(opts); err != nil {
		return fmt.Errorf("invalid overlay options: %w", err)
	}

	editor.ops = append(editor.ops, overlayOp{
		source:   path,
		at:       opts.At,
		duration: opts.Duration,
		position: opts.Position,
	})
	return nil
}

// resolveSpliceTime maps a user-supplied splice time onto the timeline:
// negative values count back from the end of the video.
func (editor *Editor) resolveSpliceTime(at time.Duration) (time.Duration, error) {
	if at < 0 {
		at = editor.info.Duration + at
		if at < 0 {
			return 0, fmt.Errorf("splice time %s is before the start of the video", at-editor.info.Duration)
		}
	}

	return at, nil
}

// planNeedsGraph reports whether any queued operation requires a
// multi-input filter graph rather than a single-input transcode.
func planNeedsGraph(ops []operation) bool {
	for _, op := range ops {
		switch op.(type) {
		case insertOp, overlayOp:
			return true
		}
	}

	return false
}

// buildSimpleOptions compiles a plan of single-input operations down to a
// transcoder option set. Rotations become transpose filters; trims become
// seek/duration arguments; audio stripping maps straight to -an.
func buildSimpleOptions(config Config, ops []operation) transcodeopts.Options {
	opts := transcodeopts.Options{}

	overwrite := true
	opts.Overwrite = &overwrite

	if config.WriteThreads > 0 {
		threads := config.WriteThreads
		opts.Threads = &threads
	}
	if config.FrameRate > 0 {
		frameRate := config.FrameRate
		opts.FrameRate = &frameRate
	}
	if config.StripAudio {
		skip := true
		opts.SkipAudio = &skip
	}

	var filters []string
	for _, op := range ops {
		switch op := op.(type) {
		case trimOp:
			seek := formatSeconds(op.Start)
			opts.SeekTime = &seek
			if op.End != 0 {
				duration := formatSeconds(op.End - op.Start)
				opts.Duration = &duration
			}
		case rotateOp:
			filters = append(filters, transposeFilters(op.Angle)...)
		case stripAudioOp:
			skip := true
			opts.SkipAudio = &skip
		case transcodeOp:
			applyTranscodeOptions(&opts, op.Options)
		}
	}

	if len(filters) > 0 {
		filter := strings.Join(filters, ",")
		opts.VideoFilter = &filter
	}

	return opts
}

func applyTranscodeOptions(opts *transcodeopts.Options, requested TranscodeOptions) {
	if requested.Format != "" {
		format := requested.Format
		opts.OutputFormat = &format
	}
	if requested.VideoCodec != "" {
		codec := requested.VideoCodec
		opts.VideoCodec = &codec
	}
	if requested.AudioCodec != "" {
		codec := requested.AudioCodec
		opts.AudioCodec = &codec
	}
	if requested.CRF != 0 {
		crf := requested.CRF
		opts.Crf = &crf
	}
	if requested.Preset != "" {
		preset := requested.Preset
		opts.Preset = &preset
	}
	if requested.FrameRate != 0 {
		frameRate := requested.FrameRate
		opts.FrameRate = &frameRate
	}
}

// transposeFilters expresses a counter-clockwise rotation as ffmpeg
// transpose passes (transpose=2 is one quarter turn CCW, transpose=1 CW).
func transposeFilters(angle int) []string {
	switch angle {
	case 90:
		return []string{"transpose=2"}
	case 180:
		return []string{"transpose=2", "transpose=2"}
	case 270:
		return []string{"transpose=1"}
	}

	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
