package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/events"
)

var errBrokenPipe = errors.New("broken pipe")

// fakeSink records what a socket would have written.
type fakeSink struct {
	out   chan []byte
	fail  error
	block bool

	once     sync.Once
	mu       sync.Mutex
	reason   string
	closedCh chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{out: make(chan []byte, 16), closedCh: make(chan struct{})}
}

func failingSink() *fakeSink {
	s := newFakeSink()
	s.fail = errBrokenPipe
	return s
}

func blockingSink() *fakeSink {
	s := newFakeSink()
	s.block = true
	return s
}

func (s *fakeSink) Send(ctx context.Context, msg []byte) error {
	if s.fail != nil {
		return s.fail
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	select {
	case s.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeSink) Close(reason string) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.closedCh)
	})
	return nil
}

func (s *fakeSink) closed() bool {
	select {
	case <-s.closedCh:
		return true
	default:
		return false
	}
}

func (s *fakeSink) closeReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// recvEvent waits for one event so tests never hang.
func recvEvent(t *testing.T, s *fakeSink, within time.Duration) events.Event {
	t.Helper()
	select {
	case msg := <-s.out:
		ev, err := events.Decode(msg)
		if err != nil {
			t.Fatalf("sink received undecodable payload %q: %v", msg, err)
		}
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return nil // unreachable
	}
}

func recvNothing(t *testing.T, s *fakeSink, within time.Duration) {
	t.Helper()
	select {
	case msg := <-s.out:
		t.Fatalf("expected no event within %v, but got: %s", within, msg)
	case <-time.After(within):
	}
}

func testOptions() Options {
	return Options{WriteTimeout: time.Second, FanoutLimit: 8}
}

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), testOptions())
}
