package face

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // frame samples are decoded from JPEG

	"math"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/avtoolkit/clipforge/internal/ffmpeg"
	"github.com/avtoolkit/clipforge/pkg/logger"
)

var log = logger.Get("FaceScan")

// Result describes where faces sit in a clip. Rotation is the
// counter-clockwise angle that brings them upright; GridX and GridY locate
// the average face centre on a 3x3 grid (1..3, left-to-right and
// top-to-bottom) of the upright frame.
type Result struct {
	Rotation int
	GridX    int
	GridY    int
	Samples  int
}

// Scanner samples frames from video files and detects face positions.
type Scanner struct {
	detector  *detector
	config    Config
	ffmpegCfg *ffmpeg.Config
}

func NewScanner(config Config, ffmpegConfig *ffmpeg.Config) (*Scanner, error) {
	if config.MaxSamples <= 0 {
		config.MaxSamples = 120
	}

	detector, err := newDetector(config)
	if err != nil {
		return nil, err
	}

	return &Scanner{detector: detector, config: config, ffmpegCfg: ffmpegConfig}, nil
}

// Scan samples roughly one frame per second of the video at path and
// detects faces in each, trying all four frame rotations. The rotation
// whose group collects the most detections wins; sampling short-circuits
// once a group has more than two hits, as the orientation of a clip does
// not change mid-file.
func (scanner *Scanner) Scan(ctx context.Context, path string) (*Result, error) {
	frames, cleanup, err := ffmpeg.ExtractSampleFrames(ctx, path, scanner.ffmpegCfg, 1, scanner.config.MaxSamples)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	groups := make(map[int][]detection, 4)
	rotation := 0

sampling:
	for _, framePath := range frames {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		frame, err := loadGrayFrame(framePath)
		if err != nil {
			log.Emit(logger.WARNING, "Skipping unreadable sample frame %s: %v\n", framePath, err)
			continue
		}

		if found, ok := scanner.detector.detect(frame, rotation); ok {
			rotation = found.rotation
			groups[rotation] = append(groups[rotation], *found)
			if len(groups[rotation]) > 2 {
				break sampling
			}
		}
	}

	winner, hits := winningRotation(groups)
	if hits == 0 {
		return nil, fmt.Errorf("face scan of %s failed: %w", path, ErrNoFaces)
	}

	gridX, gridY := averageGridCell(groups[winner])
	log.Emit(logger.DEBUG, "Face scan of %s: rotation=%d grid=(%d,%d) from %d samples\n", path, winner, gridX, gridY, hits)

	return &Result{Rotation: winner, GridX: gridX, GridY: gridY, Samples: hits}, nil
}

// winningRotation picks the rotation group holding the most detections.
// Ties resolve to the smallest angle so repeated scans of the same footage
// always agree.
func winningRotation(groups map[int][]detection) (int, int) {
	winner, hits := 0, 0
	for _, angle := range []int{0, 90, 180, 270} {
		if len(groups[angle]) > hits {
			winner, hits = angle, len(groups[angle])
		}
	}

	return winner, hits
}

// averageGridCell quantises each detection's centre to a 3x3 grid cell of
// its frame and averages the cells across the group.
func averageGridCell(group []detection) (int, int) {
	sumX, sumY := 0.0, 0.0
	for _, det := range group {
		sumX += float64(gridIndex(det.x, det.frameCols))
		sumY += float64(gridIndex(det.y, det.frameRows))
	}

	count := float64(len(group))
	return int(math.Round(sumX / count)), int(math.Round(sumY / count))
}

// gridIndex maps a coordinate to its third of the frame (1, 2 or 3).
func gridIndex(coord int, size int) int {
	for i := 1; i <= 3; i++ {
		if float64(coord) <= float64(size)*float64(i)/3 {
			return i
		}
	}

	return 3
}

func loadGrayFrame(path string) (grayFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return grayFrame{}, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return grayFrame{}, err
	}

	bounds := img.Bounds()
	return grayFrame{
		pixels: pigo.RgbToGrayscale(img),
		rows:   bounds.Dy(),
		cols:   bounds.Dx(),
	}, nil
}
