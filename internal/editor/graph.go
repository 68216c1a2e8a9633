package editor

import (
	"fmt"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/avtoolkit/clipforge/internal/media"
)

// graphState tracks the main video/audio streams as operations are folded
// into the filter graph, along with the dimensions, frame rate and running
// duration splice maths depend on.
type graphState struct {
	video     *ffmpeggo.Stream
	audio     *ffmpeggo.Stream
	width     int
	height    int
	frameRate float64
	duration  time.Duration
}

// buildGraph compiles a plan containing splice or overlay operations into
// an ffmpeg filter graph. Every timeline segment is normalised (sample
// aspect ratio, pixel format, frame rate) before concatenation, as concat
// refuses mismatched segments.
func buildGraph(info *media.Info, config Config, ops []operation, outputPath string) *ffmpeggo.Stream {
	input := ffmpeggo.Input(info.SourcePath)

	width, height := info.EffectiveDimensions()
	state := graphState{
		video:     normaliseVideo(input.Get("v")),
		width:     width,
		height:    height,
		frameRate: effectiveFrameRate(info, config),
		duration:  info.Duration,
	}
	if info.HasAudio && !config.StripAudio {
		state.audio = input.Get("a")
	}

	encode := TranscodeOptions{}
	for _, op := range ops {
		switch op := op.(type) {
		case trimOp:
			applyGraphTrim(&state, op)
		case rotateOp:
			applyGraphRotate(&state, op)
		case stripAudioOp:
			state.audio = nil
		case transcodeOp:
			encode = op.Options
		case insertOp:
			applyGraphInsert(&state, op)
		case overlayOp:
			applyGraphOverlay(&state, op)
		}
	}

	streams := []*ffmpeggo.Stream{state.video}
	if state.audio != nil {
		streams = append(streams, state.audio)
	}

	return ffmpeggo.Output(streams, outputPath, outputKwArgs(config, encode))
}

func applyGraphTrim(state *graphState, op trimOp) {
	kwargs := ffmpeggo.KwArgs{"start": formatSeconds(op.Start)}
	audioKwargs := ffmpeggo.KwArgs{"start": formatSeconds(op.Start)}

	end := state.duration
	if op.End != 0 {
		end = op.End
		kwargs["end"] = formatSeconds(op.End)
		audioKwargs["end"] = formatSeconds(op.End)
	}

	state.video = state.video.
		Filter("trim", ffmpeggo.Args{}, kwargs).
		Filter("setpts", ffmpeggo.Args{"PTS-STARTPTS"})
	if state.audio != nil {
		state.audio = state.audio.
			Filter("atrim", ffmpeggo.Args{}, audioKwargs).
			Filter("asetpts", ffmpeggo.Args{"PTS-STARTPTS"})
	}

	state.duration = end - op.Start
}

func applyGraphRotate(state *graphState, op rotateOp) {
	switch op.Angle {
	case 90:
		state.video = state.video.Filter("transpose", ffmpeggo.Args{"2"})
		state.width, state.height = state.height, state.width
	case 180:
		state.video = state.video.
			Filter("transpose", ffmpeggo.Args{"2"}).
			Filter("transpose", ffmpeggo.Args{"2"})
	case 270:
		state.video = state.video.Filter("transpose", ffmpeggo.Args{"1"})
		state.width, state.height = state.height, state.width
	}
}

// applyGraphInsert splices a clip into the timeline, cutting the main
// video at the splice point and concatenating the three segments. When
// audio is being kept, clips without their own audio contribute silence
// so the timeline stays aligned.
func applyGraphInsert(state *graphState, op insertOp) {
	clipVideo, clipAudio := buildClipStreams(state, op)

	type segment struct {
		video *ffmpeggo.Stream
		audio *ffmpeggo.Stream
	}

	var segments []segment
	switch {
	case op.at <= 0:
		segments = []segment{{clipVideo, clipAudio}, {state.video, state.audio}}
	case op.at >= state.duration:
		segments = []segment{{state.video, state.audio}, {clipVideo, clipAudio}}
	default:
		// The main streams feed both the pre and post trim, and a filter
		// node only supports a single outgoing edge, so they must be split
		// explicitly first.
		at := formatSeconds(op.at)
		videoSplit := ffmpeggo.FilterMultiOutput([]*ffmpeggo.Stream{state.video}, "split", ffmpeggo.Args{})
		pre := segment{
			video: videoSplit.Get("0").
				Filter("trim", ffmpeggo.Args{}, ffmpeggo.KwArgs{"end": at}).
				Filter("setpts", ffmpeggo.Args{"PTS-STARTPTS"}),
		}
		post := segment{
			video: videoSplit.Get("1").
				Filter("trim", ffmpeggo.Args{}, ffmpeggo.KwArgs{"start": at}).
				Filter("setpts", ffmpeggo.Args{"PTS-STARTPTS"}),
		}
		if state.audio != nil {
			audioSplit := ffmpeggo.FilterMultiOutput([]*ffmpeggo.Stream{state.audio}, "asplit", ffmpeggo.Args{})
			pre.audio = audioSplit.Get("0").
				Filter("atrim", ffmpeggo.Args{}, ffmpeggo.KwArgs{"end": at}).
				Filter("asetpts", ffmpeggo.Args{"PTS-STARTPTS"})
			post.audio = audioSplit.Get("1").
				Filter("atrim", ffmpeggo.Args{}, ffmpeggo.KwArgs{"start": at}).
				Filter("asetpts", ffmpeggo.Args{"PTS-STARTPTS"})
		}
		segments = []segment{pre, {clipVideo, clipAudio}, post}
	}

	if state.audio != nil {
		interleaved := make([]*ffmpeggo.Stream, 0, len(segments)*2)
		for _, seg := range segments {
			interleaved = append(interleaved, seg.video, seg.audio)
		}
		joined := ffmpeggo.Concat(interleaved, ffmpeggo.KwArgs{"v": 1, "a": 1})
		state.video = joined.Node.Get("0")
		state.audio = joined.Node.Get("1")
	} else {
		videos := make([]*ffmpeggo.Stream, 0, len(segments))
		for _, seg := range segments {
			videos = append(videos, seg.video)
		}
		state.video = ffmpeggo.Concat(videos, ffmpeggo.KwArgs{"v": 1, "a": 0})
	}

	state.duration += op.duration
}

// buildClipStreams prepares the inserted clip's video and audio streams:
// still images become fixed-duration looped clips, videos are optionally
// trimmed, and both are conformed to the main timeline's dimensions,
// frame rate, SAR and pixel format.
func buildClipStreams(state *graphState, op insertOp) (*ffmpeggo.Stream, *ffmpeggo.Stream) {
	var clipVideo, clipAudio *ffmpeggo.Stream

	if op.clip == nil {
		in := ffmpeggo.Input(op.source, ffmpeggo.KwArgs{
			"loop":      1,
			"t":         formatSeconds(op.duration),
			"framerate": fmt.Sprintf("%g", state.frameRate),
		})
		clipVideo = in.Get("v")
	} else {
		in := ffmpeggo.Input(op.source)
		clipVideo = in.Get("v")
		if op.trimStart != 0 || op.trimEnd != 0 {
			kwargs := ffmpeggo.KwArgs{"start": formatSeconds(op.trimStart)}
			if op.trimEnd != 0 {
				kwargs["end"] = formatSeconds(op.trimEnd)
			}
			clipVideo = clipVideo.
				Filter("trim", ffmpeggo.Args{}, kwargs).
				Filter("setpts", ffmpeggo.Args{"PTS-STARTPTS"})
		}

		if state.audio != nil && op.clip.HasAudio {
			clipAudio = in.Get("a")
			if op.trimStart != 0 || op.trimEnd != 0 {
				kwargs := ffmpeggo.KwArgs{"start": formatSeconds(op.trimStart)}
				if op.trimEnd != 0 {
					kwargs["end"] = formatSeconds(op.trimEnd)
				}
				clipAudio = clipAudio.
					Filter("atrim", ffmpeggo.Args{}, kwargs).
					Filter("asetpts", ffmpeggo.Args{"PTS-STARTPTS"})
			}
		}
	}

	if op.scale {
		clipVideo = clipVideo.Filter("scale", ffmpeggo.Args{fmt.Sprintf("%d:%d", state.width, state.height)})
	}
	clipVideo = normaliseVideo(clipVideo).
		Filter("fps", ffmpeggo.Args{fmt.Sprintf("%g", state.frameRate)})

	if state.audio != nil && clipAudio == nil {
		clipAudio = silence(op.duration)
	}

	return clipVideo, clipAudio
}

func applyGraphOverlay(state *graphState, op overlayOp) {
	overlay := ffmpeggo.Input(op.source, ffmpeggo.KwArgs{"loop": 1}).Get("v")

	x, y := overlayPosition(op.position)
	state.video = state.video.Overlay(overlay, "", ffmpeggo.KwArgs{
		"x":      x,
		"y":      y,
		"enable": fmt.Sprintf("between(t,%s,%s)", formatSeconds(op.at), formatSeconds(op.at+op.duration)),
	})
}

const overlayMargin = 10

func overlayPosition(position string) (string, string) {
	switch position {
	case "top-left":
		return fmt.Sprint(overlayMargin), fmt.Sprint(overlayMargin)
	case "top-right":
		return fmt.Sprintf("main_w-overlay_w-%d", overlayMargin), fmt.Sprint(overlayMargin)
	case "bottom-left":
		return fmt.Sprint(overlayMargin), fmt.Sprintf("main_h-overlay_h-%d", overlayMargin)
	case "bottom-right":
		return fmt.Sprintf("main_w-overlay_w-%d", overlayMargin), fmt.Sprintf("main_h-overlay_h-%d", overlayMargin)
	default:
		return "(main_w-overlay_w)/2", "(main_h-overlay_h)/2"
	}
}

// normaliseVideo forces a common SAR and pixel format; concat rejects
// segments that disagree on either.
func normaliseVideo(stream *ffmpeggo.Stream) *ffmpeggo.Stream {
	return stream.
		Filter("setsar", ffmpeggo.Args{"1"}).
		Filter("format", ffmpeggo.Args{"yuv420p"})
}

func silence(duration time.Duration) *ffmpeggo.Stream {
	return ffmpeggo.Input(
		"anullsrc=channel_layout=stereo:sample_rate=44100",
		ffmpeggo.KwArgs{"f": "lavfi", "t": formatSeconds(duration)},
	)
}

func effectiveFrameRate(info *media.Info, config Config) float64 {
	if config.FrameRate > 0 {
		return float64(config.FrameRate)
	}
	if info.FrameRate > 0 {
		return info.FrameRate
	}

	return 25
}

func outputKwArgs(config Config, encode TranscodeOptions) ffmpeggo.KwArgs {
	kwargs := ffmpeggo.KwArgs{}

	if config.WriteThreads > 0 {
		kwargs["threads"] = config.WriteThreads
	}
	if encode.Format != "" {
		kwargs["f"] = encode.Format
	}
	if encode.VideoCodec != "" {
		kwargs["c:v"] = encode.VideoCodec
	}
	if encode.AudioCodec != "" {
		kwargs["c:a"] = encode.AudioCodec
	}
	if encode.CRF != 0 {
		kwargs["crf"] = encode.CRF
	}
	if encode.Preset != "" {
		kwargs["preset"] = encode.Preset
	}
	if encode.FrameRate != 0 {
		kwargs["r"] = encode.FrameRate
	} else if config.FrameRate > 0 {
		kwargs["r"] = config.FrameRate
	}

	return kwargs
}
