package hub

import (
	"context"
	"testing"
	"time"
)

func startHub(t *testing.T, buffer int) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", buffer)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func recv(t *testing.T, s *Subscriber) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-s.C():
		return m, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func TestBroadcast_ReachesEverySubscriber(t *testing.T) {
	h, _ := startHub(t, 4)
	ctx := context.Background()

	a, err := h.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	b, err := h.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if n := h.Subscribers(); n != 2 {
		t.Fatalf("Subscribers = %d, want 2", n)
	}

	h.BroadcastBinary([]byte{1, 2, 3})

	for _, s := range []*Subscriber{a, b} {
		m, ok := recv(t, s)
		if !ok {
			t.Fatal("channel closed")
		}
		if m.Type != BinaryMessage || len(m.Data) != 3 {
			t.Errorf("got %+v", m)
		}
	}
}

func TestBroadcastJSON(t *testing.T) {
	h, _ := startHub(t, 1)
	s, _ := h.Subscribe(context.Background())

	if err := h.BroadcastJSON(map[string]int{"cycles": 3}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	m, _ := recv(t, s)
	if m.Type != TextMessage || string(m.Data) != `{"cycles":3}` {
		t.Errorf("got %q (type %d)", m.Data, m.Type)
	}
}

func TestBroadcastJSON_EncodeError(t *testing.T) {
	h := New("test", 1)
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h, _ := startHub(t, 1)
	s, _ := h.Subscribe(context.Background())

	// First fills the buffer, second overflows it.
	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	deadline := time.Now().Add(time.Second)
	for h.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow subscriber not removed")
		}
		time.Sleep(time.Millisecond)
	}

	if _, ok := recv(t, s); !ok {
		t.Fatal("buffered message lost")
	}
	if _, ok := recv(t, s); ok {
		t.Error("channel should be closed after drop")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h, _ := startHub(t, 1)
	ctx := context.Background()
	s, _ := h.Subscribe(ctx)

	h.Unsubscribe(ctx, s)
	if _, ok := recv(t, s); ok {
		t.Error("expected closed channel")
	}
	if n := h.Subscribers(); n != 0 {
		t.Errorf("Subscribers = %d, want 0", n)
	}
}

func TestRunStopClosesSubscribers(t *testing.T) {
	h, cancel := startHub(t, 1)
	s, _ := h.Subscribe(context.Background())

	cancel()
	if _, ok := recv(t, s); ok {
		t.Error("expected closed channel after stop")
	}
}

func TestSubscribe_HubNotRunning(t *testing.T) {
	h := New("idle", 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := h.Subscribe(ctx); err == nil {
		t.Error("expected context error")
	}
	if h.Running() {
		t.Error("hub should not report running")
	}
}

func TestBroadcast_FullInboxDrops(t *testing.T) {
	h := New("idle", 1)
	for i := 0; i < cap(h.inbox); i++ {
		if !h.Broadcast(Text(nil)) {
			t.Fatalf("broadcast %d dropped early", i)
		}
	}
	if h.Broadcast(Text(nil)) {
		t.Error("expected drop on full inbox")
	}
	if h.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", h.Dropped())
	}
}

func TestSubscribe_CountedOnReturn(t *testing.T) {
	h, _ := startHub(t, 1)
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		if _, err := h.Subscribe(ctx); err != nil {
			t.Fatalf("Subscribe %d: %v", i, err)
		}
		if n := h.Subscribers(); n != i {
			t.Fatalf("Subscribers = %d right after Subscribe %d", n, i)
		}
	}
}
