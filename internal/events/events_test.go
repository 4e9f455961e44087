package events

import (
	"context"
	"testing"
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
)

type capturingPublisher struct {
	events []Event
}

func (c *capturingPublisher) Publish(_ context.Context, ev Event) {
	c.events = append(c.events, ev)
}

func fixedEmitter(pub Publisher, cb Callback) *Emitter {
	e := NewEmitter("req-1", "comp-1", pub, cb)
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEmitterStampsRequestScope(t *testing.T) {
	pub := &capturingPublisher{}
	e := fixedEmitter(pub, nil)

	e.Progress(context.Background(), "job-9", Progress{Value: 5, Max: 10, Percentage: 50})

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != TypeProgress || ev.RequestID != "req-1" || ev.ComponentID != "comp-1" || ev.JobID != "job-9" {
		t.Errorf("unexpected event scope: %+v", ev)
	}
	if ev.Progress == nil || ev.Progress.Percentage != 50 {
		t.Errorf("progress payload lost: %+v", ev.Progress)
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestEmitterFansOutToCallbackAndPublisher(t *testing.T) {
	pub := &capturingPublisher{}
	var fromCallback []Event
	e := fixedEmitter(pub, func(ev Event) { fromCallback = append(fromCallback, ev) })

	e.Completed(context.Background(), "job-9", "/data/cache/abc.png", true)

	if len(pub.events) != 1 || len(fromCallback) != 1 {
		t.Fatalf("expected both sinks to receive the event, got publisher=%d callback=%d",
			len(pub.events), len(fromCallback))
	}
	if !fromCallback[0].Cached || fromCallback[0].ArtifactPath != "/data/cache/abc.png" {
		t.Errorf("completion payload lost: %+v", fromCallback[0])
	}
}

func TestFailedCarriesErrorCode(t *testing.T) {
	pub := &capturingPublisher{}
	e := fixedEmitter(pub, nil)

	e.Failed(context.Background(), "job-9", errors.Execution("node exploded"))

	ev := pub.events[0]
	if ev.Type != TypeFailed {
		t.Fatalf("expected failed event, got %s", ev.Type)
	}
	if ev.ErrorCode != string(errors.CodeExecution) {
		t.Errorf("expected code %s, got %s", errors.CodeExecution, ev.ErrorCode)
	}
	if ev.ErrorMessage == "" {
		t.Error("error message missing")
	}
}

func TestNilSinksAreSafe(t *testing.T) {
	e := NewEmitter("req-1", "comp-1", nil, nil)
	e.Progress(context.Background(), "job-9", Progress{Value: 1, Max: 2})
	e.Failed(context.Background(), "job-9", errors.Timeout("render wait"))
}
