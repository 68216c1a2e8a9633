// Package face implements face-position analysis of video files, used to
// detect footage that was recorded sideways and decide the rotation that
// brings faces upright.
package face

import (
	"errors"
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Config controls face detection. CascadePath must point at a pigo binary
// cascade file (the stock 'facefinder' frontal-face model works well).
type Config struct {
	CascadePath      string  `yaml:"cascade_path" env:"FACE_CASCADE_PATH"`
	MaxSamples       int     `yaml:"max_samples" env:"FACE_MAX_SAMPLES" env-default:"120"`
	MinFaceSize      int     `yaml:"min_face_size" env:"FACE_MIN_SIZE" env-default:"60"`
	MaxFaceSize      int     `yaml:"max_face_size" env:"FACE_MAX_SIZE" env-default:"1000"`
	QualityThreshold float64 `yaml:"quality_threshold" env:"FACE_QUALITY_THRESHOLD" env-default:"5.0"`
}

// ErrNoFaces indicates that no rotation of the sampled frames produced
// any face detections.
var ErrNoFaces = errors.New("no faces detected in any sampled frame")

// grayFrame is a grayscale pixel matrix in row-major order.
type grayFrame struct {
	pixels []uint8
	rows   int
	cols   int
}

// detection is the average centre of the faces found in one frame, in the
// coordinates of the (possibly rotated) frame they were found in.
type detection struct {
	x         int
	y         int
	rotation  int
	frameCols int
	frameRows int
}

type detector struct {
	classifier *pigo.Pigo
	config     Config
}

func newDetector(config Config) (*detector, error) {
	cascade, err := os.ReadFile(config.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read face cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade file: %w", err)
	}

	return &detector{classifier: classifier, config: config}, nil
}

// detect searches the frame for faces, trying each rotation in order until
// one yields detections. The rotation order starts from the last rotation
// that worked so a consistent video settles after the first frame.
func (d *detector) detect(frame grayFrame, startRotation int) (*detection, bool) {
	for _, rotation := range rotationOrder(startRotation) {
		rotated := rotateFrame(frame, rotation)
		if x, y, ok := d.detectUpright(rotated); ok {
			return &detection{
				x:         x,
				y:         y,
				rotation:  rotation,
				frameCols: rotated.cols,
				frameRows: rotated.rows,
			}, true
		}
	}

	return nil, false
}

// detectUpright runs the cascade over a single frame orientation and
// returns the average centre of the clustered detections.
func (d *detector) detectUpright(frame grayFrame) (int, int, bool) {
	params := pigo.CascadeParams{
		MinSize:     d.config.MinFaceSize,
		MaxSize:     d.config.MaxFaceSize,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: frame.pixels,
			Rows:   frame.rows,
			Cols:   frame.cols,
			Dim:    frame.cols,
		},
	}

	faces := d.classifier.RunCascade(params, 0.0)
	faces = d.classifier.ClusterDetections(faces, 0.2)

	sumX, sumY, count := 0, 0, 0
	for _, face := range faces {
		if float64(face.Q) < d.config.QualityThreshold {
			continue
		}

		sumX += face.Col
		sumY += face.Row
		count++
	}

	if count == 0 {
		return 0, 0, false
	}

	return sumX / count, sumY / count, true
}

// rotationOrder yields the candidate rotations beginning at 'start'
// and continuing through the remaining angles in the fixed probing
// order 0, 90, 270, 180.
func rotationOrder(start int) []int {
	order := []int{0, 90, 270, 180}
	for i, angle := range order {
		if angle == start {
			return append(order[i:], order[:i]...)
		}
	}

	return order
}

// rotateFrame produces a copy of the frame rotated counter-clockwise by
// the given angle (one of 0, 90, 180, 270).
func rotateFrame(frame grayFrame, angle int) grayFrame {
	switch angle {
	case 90:
		return rotate90CCW(frame)
	case 180:
		return rotate180(frame)
	case 270:
		return rotate90CW(frame)
	default:
		return frame
	}
}

func rotate90CCW(frame grayFrame) grayFrame {
	out := grayFrame{
		pixels: make([]uint8, len(frame.pixels)),
		rows:   frame.cols,
		cols:   frame.rows,
	}

	for y := 0; y < frame.rows; y++ {
		for x := 0; x < frame.cols; x++ {
			out.pixels[(frame.cols-1-x)*out.cols+y] = frame.pixels[y*frame.cols+x]
		}
	}

	return out
}

func rotate90CW(frame grayFrame) grayFrame {
	out := grayFrame{
		pixels: make([]uint8, len(frame.pixels)),
		rows:   frame.cols,
		cols:   frame.rows,
	}

	for y := 0; y < frame.rows; y++ {
		for x := 0; x < frame.cols; x++ {
			out.pixels[x*out.cols+(frame.rows-1-y)] = frame.pixels[y*frame.cols+x]
		}
	}

	return out
}

func rotate180(frame grayFrame) grayFrame {
	out := grayFrame{
		pixels: make([]uint8, len(frame.pixels)),
		rows:   frame.rows,
		cols:   frame.cols,
	}

	for y := 0; y < frame.rows; y++ {
		for x := 0; x < frame.cols; x++ {
			out.pixels[(frame.rows-1-y)*frame.cols+(frame.cols-1-x)] = frame.pixels[y*frame.cols+x]
		}
	}

	return out
}
