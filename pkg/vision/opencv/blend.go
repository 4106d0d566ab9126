package opencv

import (
	"image"

	"github.com/teslashibe/lanepilot/pkg/vision"
	"gocv.io/x/gocv"
)

// Blend composes the debug view: frame*Alpha + overlay*Beta + Gamma,
// resized to Size.
type Blend struct {
	Alpha, Beta, Gamma float64
	Size               image.Point
}

var _ vision.Compositor = Blend{}

// DefaultBlend dims the frame slightly under a full-strength overlay and
// halves a 960x540 preview for display.
func DefaultBlend() Blend {
	return Blend{Alpha: 0.8, Beta: 1, Gamma: 1, Size: image.Pt(480, 270)}
}

// Compose returns a new frame; the caller owns it. overlay may be nil.
func (b Blend) Compose(frame, overlay vision.Frame) (vision.Frame, error) {
	src, err := matOf(frame)
	if err != nil {
		return nil, err
	}

	blended := gocv.NewMat()
	if overlay != nil {
		ov, err := matOf(overlay)
		if err != nil {
			blended.Close()
			return nil, err
		}
		gocv.AddWeighted(src, b.Alpha, ov, b.Beta, b.Gamma, &blended)
	} else {
		src.CopyTo(&blended)
	}

	if b.Size.X <= 0 || b.Size.Y <= 0 || b.Size == image.Pt(blended.Cols(), blended.Rows()) {
		return Wrap(blended), nil
	}

	small := gocv.NewMat()
	gocv.Resize(blended, &small, b.Size, 0, 0, gocv.InterpolationLinear)
	blended.Close()
	return Wrap(small), nil
}
