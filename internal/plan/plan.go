// Package plan loads declarative edit plans: an ordered list of editing
// steps expressed in YAML, applied to an editor one step at a time. Times
// are Go duration strings ("1m30s", "750ms").
package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/avtoolkit/clipforge/internal/editor"
	"github.com/avtoolkit/clipforge/internal/face"
)

// Step is one editing operation plus its parameters. The parameter keys
// are op-specific and validated when the step is applied.
type Step struct {
	Op     string         `yaml:"op"`
	Params map[string]any `yaml:",inline"`
}

type Plan struct {
	Steps []Step `yaml:"steps"`
}

// FaceScanner is the face analysis needed by the autorotate step.
type FaceScanner interface {
	Scan(ctx context.Context, path string) (*face.Result, error)
}

func Load(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edit plan: %w", err)
	}

	return Parse(raw)
}

func Parse(raw []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse edit plan: %w", err)
	}
	if len(plan.Steps) == 0 {
		return nil, errors.New("edit plan contains no steps")
	}

	return &plan, nil
}

type trimParams struct {
	Start time.Duration `mapstructure:"start"`
	End   time.Duration `mapstructure:"end"`
}

type rotateParams struct {
	Angle int `mapstructure:"angle"`
}

type transcodeParams struct {
	Format     string `mapstructure:"format"`
	VideoCodec string `mapstructure:"video_codec"`
	AudioCodec string `mapstructure:"audio_codec"`
	CRF        uint32 `mapstructure:"crf"`
	Preset     string `mapstructure:"preset"`
	FrameRate  int    `mapstructure:"fps"`
}

type insertImageParams struct {
	Source   string        `mapstructure:"source"`
	At       time.Duration `mapstructure:"at"`
	Duration time.Duration `mapstructure:"duration"`
	NoScale  bool          `mapstructure:"no_scale"`
}

// An inserted image without an explicit duration is shown for this long,
// matching the CLI and batch-mode defaults.
const defaultImageDuration = 800 * time.Millisecond

func (params insertImageParams) options() editor.InsertOptions {
	duration := params.Duration
	if duration == 0 {
		duration = defaultImageDuration
	}

	return editor.InsertOptions{
		At:       params.At,
		Duration: duration,
		NoScale:  params.NoScale,
	}
}

type insertVideoParams struct {
	Source    string        `mapstructure:"source"`
	At        time.Duration `mapstructure:"at"`
	TrimStart time.Duration `mapstructure:"trim_start"`
	TrimEnd   time.Duration `mapstructure:"trim_end"`
	NoScale   bool          `mapstructure:"no_scale"`
}

type overlayParams struct {
	Source   string        `mapstructure:"source"`
	At       time.Duration `mapstructure:"at"`
	Duration time.Duration `mapstructure:"duration"`
	Position string        `mapstructure:"position"`
}

// Apply queues every step of the plan on the editor, which must already
// have a video loaded. The scanner may be nil when the plan contains no
// autorotate step.
func (plan *Plan) Apply(ctx context.Context, ed *editor.Editor, scanner FaceScanner) error {
	for i, step := range plan.Steps {
		if err := applyStep(ctx, ed, scanner, step); err != nil {
			return fmt.Errorf("edit plan step %d (%s): %w", i+1, step.Op, err)
		}
	}

	return nil
}

func applyStep(ctx context.Context, ed *editor.Editor, scanner FaceScanner, step Step) error {
	switch step.Op {
	case "trim":
		var params trimParams
		if err := decodeParams(step.Params, &params); err != nil {
			return err
		}
		return ed.Trim(params.Start, params.End)
	case "rotate":
		var params rotateParams
		if err := decodeParams(step.Params, &params); err != nil {
			return err
		}
		return ed.Rotate(params.Angle)
	case "autorotate":
		if scanner == nil {
			return errors.New("autorotate requires a face scanner (is face.cascade_path configured?)")
		}
		if ed.Info() == nil {
			return editor.ErrNoMedia
		}
		result, err := scanner.Scan(ctx, ed.Info().SourcePath)
		if err != nil {
			return err
		}
		return ed.Rotate(result.Rotation)
	case "strip-audio":
		return ed.StripAudio()
	case "transcode":
		var params transcodeParams
		if err := decodeParams(step.Params, &params); err != nil {
			return err
		}
		return ed.Transcode(editor.TranscodeOptions{
			Format:     params.Format,
			VideoCodec: params.VideoCodec,
			AudioCodec: params.AudioCodec,
			CRF:        params.CRF,
			Preset:     params.Preset,
			FrameRate:  params.FrameRate,
		})
	case "insert-image":
		var params insertImageParams
		if err := decodeParams(step.Params, &params); err != nil {
			return err
		}
		return ed.InsertImage(params.Source, params.options())
	case "insert-video":
		var params insertVideoParams
		if err := decodeParams(step.Params, &params); err != nil {
			return err
		}
		return ed.InsertVideo(ctx, params.Source, editor.InsertVideoOptions{
			At:        params.At,
			TrimStart: params.TrimStart,
			TrimEnd:   params.TrimEnd,
			NoScale:   params.NoScale,
		})
	case "overlay":
		var params overlayParams
		if err := decodeParams(step.Params, &params); err != nil {
			return err
		}
		if params.Position == "" {
			params.Position = "center"
		}
		return ed.Overlay(params.Source, editor.OverlayOptions{
			At:       params.At,
			Duration: params.Duration,
			Position: params.Position,
		})
	default:
		return fmt.Errorf("unknown operation %q", step.Op)
	}
}

func decodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	return nil
}
