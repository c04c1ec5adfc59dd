package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %v, want %v", got, tt.want)
		}
	}
}

func TestResult_OK(t *testing.T) {
	if !Healthy("fine").OK() {
		t.Error("healthy result should be OK")
	}
	if !Degraded("slow").OK() {
		t.Error("degraded result should still be OK")
	}
	if Unhealthy("down", errors.New("refused")).OK() {
		t.Error("unhealthy result should not be OK")
	}
}

func TestCheckerFunc(t *testing.T) {
	called := false
	c := NewCheckerFunc("redis", func(ctx context.Context) Result {
		called = true
		return Healthy("pong")
	})

	if c.Name() != "redis" {
		t.Errorf("Name() = %q, want redis", c.Name())
	}
	if r := c.Check(context.Background()); r.Message != "pong" || !called {
		t.Errorf("Check() = %+v, called = %v", r, called)
	}
}

func TestPingFunc(t *testing.T) {
	pingErr := errors.New("dial tcp: connection refused")

	ok := PingFunc("redis", func(context.Context) error { return nil })
	if r := ok.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", r.Status)
	}

	down := PingFunc("redis", func(context.Context) error { return pingErr })
	r := down.Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", r.Status)
	}
	if !errors.Is(r.Error, pingErr) {
		t.Errorf("Error = %v, want %v", r.Error, pingErr)
	}
}
