// Package events carries render lifecycle notifications out of the
// pipeline: per-request callbacks for attached clients and an optional
// publisher for external subscribers.
package events

import (
	"context"
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
)

type Type string

const (
	TypeProgress  Type = "progress"
	TypeCompleted Type = "completed"
	TypeFailed    Type = "failed"
)

// Progress mirrors the remote server's progress reports.
type Progress struct {
	Value      int     `json:"value"`
	Max        int     `json:"max"`
	Percentage float64 `json:"percentage"`
	NodeID     string  `json:"node_id,omitempty"`
}

// Event is one lifecycle notification for a render request.
type Event struct {
	Type        Type      `json:"type"`
	RequestID   string    `json:"request_id"`
	ComponentID string    `json:"component_id"`
	JobID       string    `json:"job_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	Progress *Progress `json:"progress,omitempty"`

	// Completed fields.
	ArtifactPath string `json:"artifact_path,omitempty"`
	Cached       bool   `json:"cached,omitempty"`

	// Failed fields.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Publisher delivers events to external subscribers. Delivery is best
// effort; implementations log failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// Callback receives events for one request; may be nil.
type Callback func(Event)

// Emitter scopes event emission to a single render request.
type Emitter struct {
	requestID   string
	componentID string
	publisher   Publisher
	callback    Callback
	now         func() time.Time
}

// NewEmitter creates an emitter for one request. publisher and callback
// may each be nil.
func NewEmitter(requestID, componentID string, publisher Publisher, callback Callback) *Emitter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Emitter{
		requestID:   requestID,
		componentID: componentID,
		publisher:   publisher,
		callback:    callback,
		now:         time.Now,
	}
}

// Progress reports one progress update for the running job.
func (e *Emitter) Progress(ctx context.Context, jobID string, p Progress) {
	e.emit(ctx, Event{
		Type:     TypeProgress,
		JobID:    jobID,
		Progress: &p,
	})
}

// Completed reports a finished render with its local artifact path.
func (e *Emitter) Completed(ctx context.Context, jobID, artifactPath string, cached bool) {
	e.emit(ctx, Event{
		Type:         TypeCompleted,
		JobID:        jobID,
		ArtifactPath: artifactPath,
		Cached:       cached,
	})
}

// Failed reports a failed render with its coded cause.
func (e *Emitter) Failed(ctx context.Context, jobID string, err error) {
	e.emit(ctx, Event{
		Type:         TypeFailed,
		JobID:        jobID,
		ErrorCode:    string(errors.GetCode(err)),
		ErrorMessage: err.Error(),
	})
}

func (e *Emitter) emit(ctx context.Context, ev Event) {
	ev.RequestID = e.requestID
	ev.ComponentID = e.componentID
	ev.Timestamp = e.now()

	if e.callback != nil {
		e.callback(ev)
	}
	e.publisher.Publish(ctx, ev)
}
