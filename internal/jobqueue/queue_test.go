package jobqueue

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
)

func newTestQueue(concurrency int, timeout time.Duration) *Queue {
	return New(Options{
		Concurrency: concurrency,
		JobTimeout:  timeout,
		Log:         logger.New(logger.Config{Level: "error", Format: "json", Output: os.Stderr}),
	})
}

func TestEnqueueRunsJob(t *testing.T) {
	q := newTestQueue(1, time.Second)

	fut := q.Enqueue("j1", func(ctx context.Context) (any, error) {
		return "artifact", nil
	})

	v, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "artifact" {
		t.Errorf("expected artifact, got %v", v)
	}
}

func TestConcurrencyBound(t *testing.T) {
	const bound = 2
	q := newTestQueue(bound, 5*time.Second)

	var running, peak int32
	release := make(chan struct{})
	var futs []*Future

	for i := 0; i < 6; i++ {
		futs = append(futs, q.Enqueue(fmt.Sprintf("j%d", i), func(ctx context.Context) (any, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&running, -1)
			return nil, nil
		}))
	}

	// Let the first wave start before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)

	for _, f := range futs {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if got := atomic.LoadInt32(&peak); got > bound {
		t.Errorf("expected at most %d concurrent jobs, observed %d", bound, got)
	}
}

func TestFIFOOrderAtConcurrencyOne(t *testing.T) {
	q := newTestQueue(1, 5*time.Second)

	var mu sync.Mutex
	var order []int
	var futs []*Future

	for i := 0; i < 5; i++ {
		i := i
		futs = append(futs, q.Enqueue(fmt.Sprintf("j%d", i), func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		}))
	}

	for _, f := range futs {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("expected submission order, got %v", order)
		}
	}
}

func TestFailureIsolation(t *testing.T) {
	q := newTestQueue(1, time.Second)

	failed := q.Enqueue("bad", func(ctx context.Context) (any, error) {
		return nil, errors.Execution("node exploded")
	})
	ok := q.Enqueue("good", func(ctx context.Context) (any, error) {
		return "fine", nil
	})

	if _, err := failed.Wait(context.Background()); !errors.IsCode(err, errors.CodeExecution) {
		t.Fatalf("expected EXECUTION_ERROR, got %v", err)
	}
	v, err := ok.Wait(context.Background())
	if err != nil {
		t.Fatalf("later job affected by earlier failure: %v", err)
	}
	if v != "fine" {
		t.Errorf("unexpected value %v", v)
	}
}

func TestPanicIsolation(t *testing.T) {
	q := newTestQueue(1, time.Second)

	panicked := q.Enqueue("boom", func(ctx context.Context) (any, error) {
		panic("unexpected nil")
	})
	ok := q.Enqueue("good", func(ctx context.Context) (any, error) {
		return "fine", nil
	})

	if _, err := panicked.Wait(context.Background()); !errors.IsCode(err, errors.CodeInternal) {
		t.Fatalf("expected INTERNAL from panic, got %v", err)
	}
	if _, err := ok.Wait(context.Background()); err != nil {
		t.Fatalf("later job affected by earlier panic: %v", err)
	}
}

func TestJobTimeout(t *testing.T) {
	q := newTestQueue(1, 50*time.Millisecond)

	fut := q.Enqueue("slow", func(ctx context.Context) (any, error) {
		// Ignores ctx on purpose; the hard timeout must still fire.
		time.Sleep(2 * time.Second)
		return nil, nil
	})

	start := time.Now()
	_, err := fut.Wait(context.Background())
	if !errors.IsTimeout(err) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout fired too late")
	}
}

func TestTimeoutFreesSlot(t *testing.T) {
	q := newTestQueue(1, 50*time.Millisecond)

	stuck := q.Enqueue("stuck", func(ctx context.Context) (any, error) {
		<-make(chan struct{})
		return nil, nil
	})
	next := q.Enqueue("next", func(ctx context.Context) (any, error) {
		return "ran", nil
	})

	if _, err := stuck.Wait(context.Background()); !errors.IsTimeout(err) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := next.Wait(ctx)
	if err != nil {
		t.Fatalf("queue did not free the slot after timeout: %v", err)
	}
	if v != "ran" {
		t.Errorf("unexpected value %v", v)
	}
}

func TestSetConcurrencyDrainsWaiting(t *testing.T) {
	q := newTestQueue(1, 5*time.Second)

	release := make(chan struct{})
	blocker := q.Enqueue("blocker", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	waiting := q.Enqueue("waiting", func(ctx context.Context) (any, error) {
		return "ran", nil
	})

	time.Sleep(50 * time.Millisecond)
	if q.Len() != 1 {
		t.Fatalf("expected 1 waiting job, got %d", q.Len())
	}

	q.SetConcurrency(2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := waiting.Wait(ctx); err != nil {
		t.Fatalf("raised concurrency did not start the waiting job: %v", err)
	}

	close(release)
	if _, err := blocker.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestWaitHonorsCallerContext(t *testing.T) {
	q := newTestQueue(1, 5*time.Second)

	fut := q.Enqueue("slow", func(ctx context.Context) (any, error) {
		time.Sleep(time.Second)
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := fut.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected caller deadline, got %v", err)
	}
}
