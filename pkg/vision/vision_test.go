package vision

import (
	"math"
	"testing"
)

func TestOffsetAt(t *testing.T) {
	tests := []struct {
		x     float64
		width int
		want  float64
	}{
		{480, 960, 0},
		{0, 960, -1},
		{960, 960, 1},
		{240, 960, -0.5},
		{2000, 960, 1},
		{100, 0, 0},
	}
	for _, tt := range tests {
		if got := OffsetAt(tt.x, tt.width); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("OffsetAt(%v, %d) = %v, want %v", tt.x, tt.width, got, tt.want)
		}
	}
}

func TestLineFromSegment_OrdersNearEndFirst(t *testing.T) {
	// Far end given first.
	line := LineFromSegment(720, 100, 480, 500, 960)

	if line.Y1 != 500 || line.Y2 != 100 {
		t.Errorf("expected near end first, got %+v", line)
	}
	if math.Abs(line.Offset-0.5) > 1e-9 {
		t.Errorf("Offset = %v, want 0.5 (lookahead at x=720)", line.Offset)
	}
}

func TestEstimate_Found(t *testing.T) {
	if (Estimate{}).Found() {
		t.Error("empty estimate should not be found")
	}
	if !(Estimate{Line: &SteeringLine{}}).Found() {
		t.Error("estimate with line should be found")
	}
}
