package kafka

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyHandler struct {
	failures int
	calls    int
	err      error
}

func (h *flakyHandler) Topic() string { return "test" }

func (h *flakyHandler) Handle(ctx context.Context, b []byte) error {
	h.calls++
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return c
}

func TestHandleWithRetryRecovers(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &flakyHandler{failures: 2, err: errors.New("transient")}
	if err := c.handleWithRetry(context.Background(), h, nil); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if h.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", h.calls)
	}
}

func TestHandleWithRetryGivesUp(t *testing.T) {
	c := newTestConsumer(t, 2)
	h := &flakyHandler{failures: 10, err: errors.New("down")}
	if err := c.handleWithRetry(context.Background(), h, nil); err == nil {
		t.Fatalf("expected error")
	}
	if h.calls != 3 {
		t.Fatalf("expected 1 call + 2 retries, got %d", h.calls)
	}
}

func TestHandleWithRetryPermanent(t *testing.T) {
	c := newTestConsumer(t, 5)
	h := &flakyHandler{failures: 10, err: &PermanentError{Err: errors.New("bad payload")}}
	err := c.handleWithRetry(context.Background(), h, nil)
	var perm *PermanentError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermanentError, got %v", err)
	}
	if h.calls != 1 {
		t.Fatalf("permanent error must not be retried, got %d calls", h.calls)
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
