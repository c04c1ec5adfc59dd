package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTimeout_Defaults(t *testing.T) {
	to := NewTimeout(TimeoutConfig{})

	if to.Config().Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", to.Config().Timeout)
	}
}

func TestCall_ReturnsValue(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Name: "redis", Timeout: time.Second})

	got, err := Call(context.Background(), to, func(ctx context.Context) (int64, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Call() = %d, want 42", got)
	}
}

func TestCall_PropagatesError(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})
	testErr := errors.New("WRONGTYPE")

	_, err := Call(context.Background(), to, func(ctx context.Context) (string, error) {
		return "", testErr
	})
	if err != testErr {
		t.Errorf("Call() error = %v, want %v", err, testErr)
	}
}

func TestCall_DeadlineIgnoredByOp(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Name: "redis", Timeout: 10 * time.Millisecond})

	start := time.Now()
	_, err := Call(context.Background(), to, func(ctx context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Call() error = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "redis") {
		t.Errorf("Call() error = %q, want operation name", err.Error())
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Error("Call() waited for the op instead of returning at the deadline")
	}
}

func TestCall_DeadlineHonoredByOp(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: 10 * time.Millisecond})

	err := to.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want it to keep DeadlineExceeded", err)
	}
}

func TestCall_CallerCancellation(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := to.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("caller cancellation must not be reported as ErrTimeout")
	}
}
