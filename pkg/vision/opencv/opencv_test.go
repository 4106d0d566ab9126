package opencv

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/teslashibe/lanepilot/pkg/vision"
	"gocv.io/x/gocv"
)

// yellowFrame draws a vertical yellow stripe centered at x on a gray background.
func yellowFrame(w, h, x int) *Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(60, 60, 60, 0), h, w, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&m, image.Rect(x-10, h/3, x+10, h), color.RGBA{R: 255, G: 255, A: 255}, -1)
	return Wrap(m)
}

// laneFrame draws two converging white lane edges on a dark background.
func laneFrame(w, h int) *Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(20, 20, 20, 0), h, w, gocv.MatTypeCV8UC3)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.Line(&m, image.Pt(w/8, h-1), image.Pt(w/2-w/16, h*6/10), white, 6)
	gocv.Line(&m, image.Pt(w-w/8, h-1), image.Pt(w/2+w/16, h*6/10), white, 6)
	return Wrap(m)
}

func TestYellowSegmentation_CenteredStripe(t *testing.T) {
	frame := yellowFrame(960, 540, 480)
	defer frame.Close()

	s := NewYellowSegmentation(DefaultYellowConfig())
	est, err := s.Estimate(context.Background(), frame)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	defer est.Close()

	if !est.Found() {
		t.Fatal("expected a steering line")
	}
	if math.Abs(est.Line.Offset) > 0.05 {
		t.Errorf("Offset = %v, want ~0", est.Line.Offset)
	}
	if est.Overlay.Width() != 960 || est.Overlay.Height() != 540 {
		t.Errorf("overlay size %dx%d, want 960x540", est.Overlay.Width(), est.Overlay.Height())
	}
}

func TestYellowSegmentation_NoYellow(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(60, 60, 60, 0), 540, 960, gocv.MatTypeCV8UC3)
	frame := Wrap(m)
	defer frame.Close()

	est, err := NewYellowSegmentation(DefaultYellowConfig()).Estimate(context.Background(), frame)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	defer est.Close()

	if est.Found() {
		t.Errorf("expected no line, got %+v", est.Line)
	}
}

func TestLaneDetection_SymmetricLanes(t *testing.T) {
	frame := laneFrame(960, 540)
	defer frame.Close()

	est, err := NewLaneDetection(DefaultLaneConfig()).Estimate(context.Background(), frame)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	defer est.Close()

	if !est.Found() {
		t.Fatal("expected a steering line")
	}
	if math.Abs(est.Line.Offset) > 0.15 {
		t.Errorf("Offset = %v, want near 0 for symmetric lanes", est.Line.Offset)
	}
}

func TestStrategies_RejectForeignFrames(t *testing.T) {
	foreign := vision.NewMockFrame(10, 10, 0)
	if _, err := NewYellowSegmentation(DefaultYellowConfig()).Estimate(context.Background(), foreign); err == nil {
		t.Error("expected error for non-gocv frame")
	}
	if _, err := NewLaneDetection(DefaultLaneConfig()).Estimate(context.Background(), foreign); err == nil {
		t.Error("expected error for non-gocv frame")
	}
}

func TestBlend_ComposeResizes(t *testing.T) {
	frame := yellowFrame(960, 540, 300)
	defer frame.Close()
	overlay := Wrap(gocv.Zeros(540, 960, gocv.MatTypeCV8UC3))
	defer overlay.Close()

	view, err := DefaultBlend().Compose(frame, overlay)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	defer view.Close()

	if view.Width() != 480 || view.Height() != 270 {
		t.Errorf("view size %dx%d, want 480x270", view.Width(), view.Height())
	}

	jpeg, err := view.(*Mat).EncodeJPEG(80)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if len(jpeg) < 4 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Error("output is not a JPEG")
	}
}

func TestBlend_NilOverlay(t *testing.T) {
	frame := yellowFrame(480, 270, 100)
	defer frame.Close()

	view, err := DefaultBlend().Compose(frame, nil)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	defer view.Close()

	if view.Width() != 480 || view.Height() != 270 {
		t.Errorf("view size %dx%d, want 480x270", view.Width(), view.Height())
	}
}
