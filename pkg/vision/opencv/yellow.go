package opencv

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/teslashibe/lanepilot/pkg/vision"
	"gocv.io/x/gocv"
)

// YellowConfig tunes the yellow tape segmentation.
type YellowConfig struct {
	// HSV bounds, OpenCV scale (H 0-180, S and V 0-255).
	Lower, Upper [3]float64

	// MinArea is the smallest contour area, in pixels, accepted as a line.
	MinArea float64

	// KernelSize is the morphology kernel used to clean the mask.
	KernelSize int
}

// DefaultYellowConfig returns bounds for yellow floor tape under indoor light.
func DefaultYellowConfig() YellowConfig {
	return YellowConfig{
		Lower:      [3]float64{20, 100, 100},
		Upper:      [3]float64{35, 255, 255},
		MinArea:    400,
		KernelSize: 5,
	}
}

// YellowSegmentation finds the largest yellow region and fits a line through it.
type YellowSegmentation struct {
	cfg YellowConfig
}

// NewYellowSegmentation creates the strategy.
func NewYellowSegmentation(cfg YellowConfig) *YellowSegmentation {
	return &YellowSegmentation{cfg: cfg}
}

// Name implements vision.Strategy.
func (s *YellowSegmentation) Name() string { return "yellow-segmentation" }

// Estimate implements vision.Strategy.
func (s *YellowSegmentation) Estimate(ctx context.Context, frame vision.Frame) (vision.Estimate, error) {
	src, err := matOf(frame)
	if err != nil {
		return vision.Estimate{}, err
	}
	if err := ctx.Err(); err != nil {
		return vision.Estimate{}, err
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	lower := gocv.NewScalar(s.cfg.Lower[0], s.cfg.Lower[1], s.cfg.Lower[2], 0)
	upper := gocv.NewScalar(s.cfg.Upper[0], s.cfg.Upper[1], s.cfg.Upper[2], 0)
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	if s.cfg.KernelSize > 1 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(s.cfg.KernelSize, s.cfg.KernelSize))
		cleaned := gocv.NewMat()
		gocv.MorphologyEx(mask, &cleaned, gocv.MorphOpen, kernel)
		kernel.Close()
		mask.Close()
		mask = cleaned
	}

	overlay := gocv.Zeros(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	est := vision.Estimate{Overlay: Wrap(overlay)}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, s.cfg.MinArea
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area >= bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return est, nil
	}

	contour := contours.At(best)
	gocv.DrawContours(&overlay, contours, best, color.RGBA{R: 255, G: 255, A: 255}, 2)

	fit := gocv.NewMat()
	defer fit.Close()
	gocv.FitLine(contour, &fit, gocv.DistL2, 0, 0.01, 0.01)

	vx := float64(fit.GetFloatAt(0, 0))
	vy := float64(fit.GetFloatAt(1, 0))
	x0 := float64(fit.GetFloatAt(2, 0))
	y0 := float64(fit.GetFloatAt(3, 0))

	// A near-horizontal fit carries no heading information.
	if math.Abs(vy) < 1e-3 {
		return est, nil
	}

	rect := gocv.BoundingRect(contour)
	yNear := src.Rows() - 1
	yFar := rect.Min.Y
	xAt := func(y int) int {
		return int(math.Round(x0 + (float64(y)-y0)*vx/vy))
	}

	line := vision.LineFromSegment(xAt(yNear), yNear, xAt(yFar), yFar, src.Cols())
	gocv.Line(&overlay, image.Pt(line.X1, line.Y1), image.Pt(line.X2, line.Y2), color.RGBA{R: 255, A: 255}, 3)

	est.Line = &line
	return est, nil
}
