package opencv

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/teslashibe/lanepilot/pkg/vision"
	"gocv.io/x/gocv"
)

// LaneConfig tunes the edge-based lane detector.
type LaneConfig struct {
	CannyLow, CannyHigh float32

	// Hough parameters.
	Threshold     int
	MinLineLength float32
	MaxLineGap    float32

	// HorizonFraction is the top of the region of interest, as a fraction of height.
	HorizonFraction float64

	// MinSlope rejects near-horizontal segments (|dy/dx| below it).
	MinSlope float64

	// LaneWidthFraction is the expected lane width at the bottom of the frame,
	// as a fraction of frame width. Used when only one lane edge is visible.
	LaneWidthFraction float64
}

// DefaultLaneConfig returns defaults tuned for a 960x540 forward camera.
func DefaultLaneConfig() LaneConfig {
	return LaneConfig{
		CannyLow:          50,
		CannyHigh:         150,
		Threshold:         40,
		MinLineLength:     30,
		MaxLineGap:        80,
		HorizonFraction:   0.55,
		MinSlope:          0.3,
		LaneWidthFraction: 0.6,
	}
}

// LaneDetection finds left and right lane edges with Canny + probabilistic
// Hough and steers toward the centerline between them.
type LaneDetection struct {
	cfg LaneConfig
}

// NewLaneDetection creates the strategy.
func NewLaneDetection(cfg LaneConfig) *LaneDetection {
	return &LaneDetection{cfg: cfg}
}

// Name implements vision.Strategy.
func (s *LaneDetection) Name() string { return "lane-detection" }

// edge accumulates extrapolated x positions of one lane side.
type edge struct {
	nearSum, farSum float64
	n               int
}

func (e *edge) add(near, far float64) {
	e.nearSum += near
	e.farSum += far
	e.n++
}

func (e *edge) mean() (near, far float64, ok bool) {
	if e.n == 0 {
		return 0, 0, false
	}
	return e.nearSum / float64(e.n), e.farSum / float64(e.n), true
}

// Estimate implements vision.Strategy.
func (s *LaneDetection) Estimate(ctx context.Context, frame vision.Frame) (vision.Estimate, error) {
	src, err := matOf(frame)
	if err != nil {
		return vision.Estimate{}, err
	}
	if err := ctx.Err(); err != nil {
		return vision.Estimate{}, err
	}

	rows, cols := src.Rows(), src.Cols()
	yNear := rows - 1
	yFar := int(float64(rows) * s.cfg.HorizonFraction)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, s.cfg.CannyLow, s.cfg.CannyHigh)

	roiMask := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	defer roiMask.Close()
	poly := gocv.NewPointsVectorFromPoints([][]image.Point{{
		image.Pt(0, yNear),
		image.Pt(cols/2-cols/8, yFar),
		image.Pt(cols/2+cols/8, yFar),
		image.Pt(cols-1, yNear),
	}})
	gocv.FillPoly(&roiMask, poly, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	poly.Close()

	roi := gocv.NewMat()
	defer roi.Close()
	gocv.BitwiseAnd(edges, roiMask, &roi)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(roi, &lines, 1, float32(math.Pi/180), s.cfg.Threshold, s.cfg.MinLineLength, s.cfg.MaxLineGap)

	overlay := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC3)
	est := vision.Estimate{Overlay: Wrap(overlay)}

	var left, right edge
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		x1, y1, x2, y2 := float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])
		if x1 == x2 {
			continue
		}
		slope := (y2 - y1) / (x2 - x1)
		if math.Abs(slope) < s.cfg.MinSlope {
			continue
		}

		xAt := func(y float64) float64 { return x1 + (y-y1)/slope }
		near, far := xAt(float64(yNear)), xAt(float64(yFar))

		// Image y grows downward: the left edge rises to the right.
		if slope < 0 {
			left.add(near, far)
		} else {
			right.add(near, far)
		}
		gocv.Line(&overlay, image.Pt(int(x1), int(y1)), image.Pt(int(x2), int(y2)), color.RGBA{G: 255, A: 255}, 2)
	}

	ln, lf, lok := left.mean()
	rn, rf, rok := right.mean()

	var near, far float64
	halfLane := s.cfg.LaneWidthFraction * float64(cols) / 2
	switch {
	case lok && rok:
		near, far = (ln+rn)/2, (lf+rf)/2
	case lok:
		near, far = ln+halfLane, lf+halfLane*float64(yFar)/float64(yNear)
	case rok:
		near, far = rn-halfLane, rf-halfLane*float64(yFar)/float64(yNear)
	default:
		return est, nil
	}

	line := vision.LineFromSegment(int(math.Round(near)), yNear, int(math.Round(far)), yFar, cols)
	gocv.Line(&overlay, image.Pt(line.X1, line.Y1), image.Pt(line.X2, line.Y2), color.RGBA{R: 255, A: 255}, 3)

	est.Line = &line
	return est, nil
}
