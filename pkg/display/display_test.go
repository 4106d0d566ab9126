package display

import (
	"errors"
	"testing"

	"github.com/teslashibe/lanepilot/pkg/vision"
)

// recordingDisplay counts calls and returns canned results.
type recordingDisplay struct {
	renders   int
	polls     int
	closes    int
	stop      bool
	renderErr error
}

func (r *recordingDisplay) Render(vision.Frame) error {
	r.renders++
	return r.renderErr
}

func (r *recordingDisplay) StopRequested() bool {
	r.polls++
	return r.stop
}

func (r *recordingDisplay) Close() error {
	r.closes++
	return nil
}

func TestHeadless(t *testing.T) {
	h := NewHeadless()
	if err := h.Render(vision.NewMockFrame(1, 1, 0)); err != nil {
		t.Errorf("Render returned %v", err)
	}
	if h.StopRequested() {
		t.Error("headless should not request stop by default")
	}
	h.RequestStop()
	if !h.StopRequested() {
		t.Error("RequestStop not reflected")
	}
}

func TestMulti_RendersAll(t *testing.T) {
	a, b := &recordingDisplay{}, &recordingDisplay{renderErr: errors.New("socket gone")}
	m := Multi{a, b}

	err := m.Render(vision.NewMockFrame(1, 1, 0))
	if err == nil {
		t.Error("expected member error to be reported")
	}
	if a.renders != 1 || b.renders != 1 {
		t.Errorf("renders a=%d b=%d, want 1 each", a.renders, b.renders)
	}
}

func TestMulti_StopIfAny(t *testing.T) {
	a, b := &recordingDisplay{}, &recordingDisplay{stop: true}
	m := Multi{a, b}

	if !m.StopRequested() {
		t.Error("expected stop when any member requests it")
	}
	if a.polls != 1 || b.polls != 1 {
		t.Error("every member should be polled")
	}

	if (Multi{&recordingDisplay{}}).StopRequested() {
		t.Error("no member requested stop")
	}
}

func TestMulti_CloseAll(t *testing.T) {
	a, b := &recordingDisplay{}, &recordingDisplay{}
	Multi{a, b}.Close()
	if a.closes != 1 || b.closes != 1 {
		t.Error("every member should be closed")
	}
}
