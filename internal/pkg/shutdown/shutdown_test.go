package shutdown

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})
}

func TestRegister(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	mgr.Register("test", func(ctx context.Context) error { return nil })

	if len(mgr.handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(mgr.handlers))
	}
	if mgr.handlers[0].Name != "test" {
		t.Errorf("expected handler name 'test', got %s", mgr.handlers[0].Name)
	}
}

func TestShutdownRunsAllHandlers(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	var ran int32
	for i := 0; i < 3; i++ {
		mgr.Register("h", func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}

	mgr.Shutdown()

	if got := atomic.LoadInt32(&ran); got != 3 {
		t.Errorf("expected 3 handlers to run, got %d", got)
	}

	select {
	case <-mgr.Done():
	default:
		t.Error("expected Done to be closed after shutdown")
	}
}

func TestRegisterSimple(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	var called bool
	mgr.RegisterSimple("simple", func() { called = true })

	mgr.Shutdown()

	if !called {
		t.Error("expected simple handler to be called")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	var ran int32
	mgr.Register("once", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	mgr.Shutdown()
	mgr.Shutdown()

	if got := atomic.LoadInt32(&ran); got != 1 {
		t.Errorf("expected handler to run once, got %d", got)
	}
}

func TestShutdownTimeout(t *testing.T) {
	mgr := NewManager(newTestLogger(), 100*time.Millisecond)

	mgr.Register("stuck", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})

	start := time.Now()
	mgr.Shutdown()

	if time.Since(start) > time.Second {
		t.Error("shutdown did not respect timeout")
	}
}

func TestFailingHandlerDoesNotBlockOthers(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	var ran int32
	mgr.Register("bad", func(ctx context.Context) error {
		return context.Canceled
	})
	mgr.Register("good", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	mgr.Shutdown()

	if atomic.LoadInt32(&ran) != 1 {
		t.Error("expected healthy handler to run despite failing one")
	}
}
