package camera

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/lanepilot/pkg/vision"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Width != 960 || cfg.Height != 540 || cfg.QueueSize != 4 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Config{Device: "", Width: 10, Height: 10, FPS: 0, QueueSize: 0}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"device", "width", "height", "fps", "queue_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s missing", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
		if cfg.Preset != name {
			t.Errorf("preset %s labeled %q", name, cfg.Preset)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestQueue_DeliversInOrder(t *testing.T) {
	q := NewQueue(4)
	for i := 1; i <= 3; i++ {
		q.Push(vision.NewMockFrame(1, 1, i))
	}

	for want := 1; want <= 3; want++ {
		f, err := q.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got := f.(*vision.MockFrame).Seq; got != want {
			t.Errorf("frame seq %d, want %d", got, want)
		}
	}
}

func TestQueue_DropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	frames := make([]*vision.MockFrame, 5)
	for i := range frames {
		frames[i] = vision.NewMockFrame(1, 1, i)
		q.Push(frames[i])
	}

	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	if q.Dropped() != 3 {
		t.Errorf("Dropped = %d, want 3", q.Dropped())
	}
	for i := 0; i < 3; i++ {
		if !frames[i].Closed() {
			t.Errorf("dropped frame %d was not released", i)
		}
	}

	f, _ := q.Next(context.Background())
	if f.(*vision.MockFrame).Seq != 3 {
		t.Errorf("expected oldest surviving frame 3, got %d", f.(*vision.MockFrame).Seq)
	}
}

func TestQueue_NextBlocksUntilPush(t *testing.T) {
	q := NewQueue(1)
	got := make(chan vision.Frame, 1)

	go func() {
		f, _ := q.Next(context.Background())
		got <- f
	}()

	select {
	case <-got:
		t.Fatal("Next returned before a frame was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(vision.NewMockFrame(1, 1, 9))
	select {
	case f := <-got:
		if f.(*vision.MockFrame).Seq != 9 {
			t.Errorf("unexpected frame %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up")
	}
}

func TestQueue_ContextTimeout(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestQueue_FinishDrainsThenEOF(t *testing.T) {
	q := NewQueue(2)
	q.Push(vision.NewMockFrame(1, 1, 1))
	q.Finish()

	if _, err := q.Next(context.Background()); err != nil {
		t.Fatalf("queued frame should still be delivered: %v", err)
	}
	if _, err := q.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestQueue_FinishErrDrainsThenError(t *testing.T) {
	tests := []struct {
		name    string
		finish  func(q *Queue)
		wantErr error
	}{
		{"end of stream", func(q *Queue) { q.Finish() }, io.EOF},
		{"device lost", func(q *Queue) { q.FinishErr(ErrDeviceLost) }, ErrDeviceLost},
		{"first finish wins", func(q *Queue) {
			q.FinishErr(ErrDeviceLost)
			q.Finish()
		}, ErrDeviceLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(2)
			q.Push(vision.NewMockFrame(1, 1, 1))
			tt.finish(q)

			if _, err := q.Next(context.Background()); err != nil {
				t.Fatalf("queued frame should still be delivered: %v", err)
			}
			_, err := q.Next(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != io.EOF && errors.Is(err, io.EOF) {
				t.Error("device loss must not look like a clean end of stream")
			}
		})
	}
}

func TestConfig_Live(t *testing.T) {
	tests := []struct {
		device string
		want   bool
	}{
		{"0", true},
		{" 2 ", true},
		{"/dev/video0", false},
		{"testdata/track.mp4", false},
		{"rtsp://10.0.0.5/stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			c := Config{Device: tt.device}
			if got := c.Live(); got != tt.want {
				t.Errorf("Live(%q) = %v, want %v", tt.device, got, tt.want)
			}
		})
	}
}
