package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ok(context.Context) error { return nil }

func TestAllChecksHealthy(t *testing.T) {
	h := NewHealthChecker("1.0.0")
	h.Register("mongo", ok, true)
	h.Register("redis", ok, false)

	status, ready := h.GetHealthStatus(context.Background())
	if !ready {
		t.Fatalf("expected ready")
	}
	if status["status"] != StatusOK {
		t.Fatalf("expected status ok, got %v", status["status"])
	}
	checks := status["checks"].(map[string]interface{})
	if len(checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(checks))
	}
}

func TestOptionalFailureDegrades(t *testing.T) {
	h := NewHealthChecker("1.0.0")
	h.Register("mongo", ok, true)
	h.Register("mqtt", func(context.Context) error { return errors.New("not connected") }, false)

	status, ready := h.GetHealthStatus(context.Background())
	if !ready {
		t.Fatalf("expected ready with optional failure")
	}
	if status["status"] != StatusDegraded {
		t.Fatalf("expected degraded, got %v", status["status"])
	}
	mqtt := status["checks"].(map[string]interface{})["mqtt"].(map[string]interface{})
	if mqtt["error"] != "not connected" {
		t.Fatalf("expected error detail, got %v", mqtt)
	}
}

func TestCriticalFailureIsNotReady(t *testing.T) {
	h := NewHealthChecker("1.0.0")
	h.Register("mongo", func(context.Context) error { return errors.New("no primary") }, true)

	status, ready := h.GetHealthStatus(context.Background())
	if ready {
		t.Fatalf("expected not ready")
	}
	if status["status"] != StatusError {
		t.Fatalf("expected error status, got %v", status["status"])
	}
}

func TestChecksAreBoundedByTimeout(t *testing.T) {
	h := NewHealthChecker("1.0.0")
	h.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, ready := h.GetHealthStatus(ctx)
	if ready {
		t.Fatalf("expected not ready")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("expected check to stop with the context")
	}
}

func TestMongoCheckNilClient(t *testing.T) {
	if err := MongoCheck(nil)(context.Background()); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
