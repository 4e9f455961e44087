// Package orchestrator runs the full render pipeline for one request:
// resolve the component, validate parameters, consult the cache, bind the
// workflow, queue the render, and store the artifact.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/component"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/events"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/jobqueue"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/ports"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/rendercache"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/renderclient"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/workflow"
)

// ComponentSource resolves component descriptors by id.
type ComponentSource interface {
	Get(ctx context.Context, id string) (*component.Descriptor, error)
}

// renderCore is the slice of the render client the pipeline uses. Narrow
// so tests can substitute a fake server session.
type renderCore interface {
	Run(ctx context.Context, g workflow.Graph, onProgress renderclient.ProgressFunc) (*renderclient.Result, error)
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// Request is one render submission.
type Request struct {
	ComponentID string
	Params      map[string]any

	// RequestID is generated when empty.
	RequestID string

	// OnEvent receives this request's lifecycle events; may be nil.
	OnEvent events.Callback
}

// Result is a successful render outcome.
type Result struct {
	RequestID    string
	JobID        string
	ArtifactPath string
	Cached       bool
	Duration     time.Duration
}

// Options configure an Orchestrator.
type Options struct {
	// WaitTimeout bounds each remote render wait.
	WaitTimeout time.Duration
	// Publisher broadcasts lifecycle events externally; nil disables.
	Publisher events.Publisher
	// Archive persists artifacts beyond the cache; nil disables.
	Archive ports.ArchiveStore
	Log     *logger.Logger
}

// Orchestrator glues the component source, cache, queue, binder, and
// render clients into the Generate operation. Safe for concurrent use.
type Orchestrator struct {
	source    ComponentSource
	cache     *rendercache.Cache
	queue     *jobqueue.Queue
	binder    *workflow.Binder
	publisher events.Publisher
	archive   ports.ArchiveStore
	log       *logger.Logger

	waitTimeout time.Duration

	// clients are pooled per server so every request to a server shares
	// one event channel session id.
	mu        sync.Mutex
	clients   map[string]renderCore
	newClient func(serverURL, apiKey string) renderCore
}

// New creates an orchestrator over the given collaborators.
func New(source ComponentSource, cache *rendercache.Cache, queue *jobqueue.Queue, opts Options) *Orchestrator {
	log := opts.Log
	if log == nil {
		log = logger.NewDefault()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	o := &Orchestrator{
		source:      source,
		cache:       cache,
		queue:       queue,
		binder:      workflow.NewBinder(),
		publisher:   publisher,
		archive:     opts.Archive,
		log:         log.WithComponent("orchestrator"),
		waitTimeout: opts.WaitTimeout,
		clients:     make(map[string]renderCore),
	}
	o.newClient = func(serverURL, apiKey string) renderCore {
		return renderclient.New(serverURL, apiKey, renderclient.Options{
			WaitTimeout: o.waitTimeout,
			Log:         log,
		})
	}
	return o
}

// Generate runs one render request end to end and returns the local
// artifact path. Identical requests within the cache window return the
// cached artifact without touching the render server.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (res *Result, err error) {
	// A rendering failure must never take the caller down with it.
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeInternal, fmt.Sprintf("render pipeline panic: %v", r))
		}
	}()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = logger.ContextWithRequestID(ctx, requestID)
	log := o.log.WithRequestID(requestID)
	start := time.Now()

	emitter := events.NewEmitter(requestID, req.ComponentID, o.publisher, req.OnEvent)

	// 1. Resolve the component descriptor.
	desc, err := o.source.Get(ctx, req.ComponentID)
	if err != nil {
		emitter.Failed(ctx, "", err)
		return nil, err
	}

	// 2. Validate parameters against the declarations; defaults applied.
	params, err := component.ValidateParams(desc, req.Params)
	if err != nil {
		emitter.Failed(ctx, "", err)
		return nil, err
	}

	// 3. Cache lookup on the derived key. Volatile parameters do not
	// affect the key, so reruns with a fresh seed still hit.
	key := rendercache.DeriveKey(desc.ID, params)
	if artifactPath, ok := o.cache.Get(key); ok {
		log.Info("cache hit", "component_id", desc.ID, "cache_key", key)
		emitter.Completed(ctx, "", artifactPath, true)
		return &Result{
			RequestID:    requestID,
			ArtifactPath: artifactPath,
			Cached:       true,
			Duration:     time.Since(start),
		}, nil
	}

	// 4. Bind parameters into the workflow template.
	bound := o.binder.Bind(desc.Template, desc.Bindings, params)

	// 5. Queue the render behind the concurrency bound.
	jobID := uuid.NewString()
	client := o.clientFor(desc.ServerURL, desc.APIKey)
	fut := o.queue.Enqueue(jobID, func(jobCtx context.Context) (any, error) {
		return o.render(jobCtx, client, bound, emitter, jobID)
	})

	value, err := fut.Wait(ctx)
	if err != nil {
		log.Warn("render failed",
			"component_id", desc.ID,
			"job_id", jobID,
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		emitter.Failed(ctx, jobID, err)
		return nil, err
	}
	rendered := value.(*renderedArtifact)

	// 6. Store the artifact in the cache. A cache failure downgrades to a
	// temp file; the render still succeeded.
	artifactPath, putErr := o.cache.Put(key, rendered.data, rendercache.PutMeta{
		JobID:       jobID,
		RequestID:   requestID,
		ComponentID: desc.ID,
		Params:      params,
		SourceURL:   rendered.sourceURL,
	})
	if putErr != nil {
		log.Warn("cache store failed, keeping temp artifact", "cache_key", key, "error", putErr.Error())
		artifactPath, err = writeTempArtifact(rendered)
		if err != nil {
			emitter.Failed(ctx, jobID, err)
			return nil, err
		}
	}

	// 7. Archive the artifact when an archive backend is configured.
	o.archiveArtifact(ctx, log, desc.ID, key, rendered)

	log.Info("render completed",
		"component_id", desc.ID,
		"job_id", jobID,
		"cache_key", key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	emitter.Completed(ctx, jobID, artifactPath, false)

	return &Result{
		RequestID:    requestID,
		JobID:        jobID,
		ArtifactPath: artifactPath,
		Duration:     time.Since(start),
	}, nil
}

// SetConcurrency adjusts how many renders run at once.
func (o *Orchestrator) SetConcurrency(n int) {
	o.queue.SetConcurrency(n)
}

// renderedArtifact is the payload a queued render job resolves to.
type renderedArtifact struct {
	data      []byte
	sourceURL string
}

// render runs the remote round trip for one queued job: submit, wait,
// download the first output.
func (o *Orchestrator) render(ctx context.Context, client renderCore, g workflow.Graph, emitter *events.Emitter, jobID string) (*renderedArtifact, error) {
	result, err := client.Run(ctx, g, func(p renderclient.Progress) {
		emitter.Progress(ctx, jobID, events.Progress{
			Value:      p.Value,
			Max:        p.Max,
			Percentage: p.Percentage,
			NodeID:     p.NodeID,
		})
	})
	if err != nil {
		return nil, err
	}

	data, err := client.Download(ctx, result.Outputs[0])
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeExecution, "orchestrator.render", "failed to download artifact")
	}

	return &renderedArtifact{data: data, sourceURL: result.Outputs[0]}, nil
}

// clientFor returns the pooled client for a server, creating it on first
// use.
func (o *Orchestrator) clientFor(serverURL, apiKey string) renderCore {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[serverURL]; ok {
		return c
	}
	c := o.newClient(serverURL, apiKey)
	o.clients[serverURL] = c
	return c
}

// archiveArtifact pushes the artifact to the archive backend. Best
// effort; archive failures never fail the request.
func (o *Orchestrator) archiveArtifact(ctx context.Context, log *logger.Logger, componentID, key string, rendered *renderedArtifact) {
	if o.archive == nil {
		return
	}

	archiveKey := componentID + "/" + key + artifactExt(rendered.sourceURL)
	_, err := o.archive.Store(ctx, ports.StoreArtifactInput{
		Key:    archiveKey,
		Reader: bytes.NewReader(rendered.data),
		Size:   int64(len(rendered.data)),
	})
	if err != nil {
		log.Warn("artifact archive failed",
			"provider", o.archive.Provider(),
			"key", archiveKey,
			"error", err.Error(),
		)
	}
}

// writeTempArtifact spills the artifact to a temp file when the cache
// cannot take it.
func writeTempArtifact(rendered *renderedArtifact) (string, error) {
	f, err := os.CreateTemp("", "render-*"+artifactExt(rendered.sourceURL))
	if err != nil {
		return "", errors.Wrap(err, "orchestrator.temp", "failed to create temp artifact")
	}
	defer f.Close()

	if _, err := f.Write(rendered.data); err != nil {
		return "", errors.Wrap(err, "orchestrator.temp", "failed to write temp artifact")
	}
	return f.Name(), nil
}

// artifactExt guesses the artifact extension from its source URL.
func artifactExt(sourceURL string) string {
	if i := strings.Index(sourceURL, "filename="); i >= 0 {
		name := sourceURL[i+len("filename="):]
		if j := strings.IndexByte(name, '&'); j >= 0 {
			name = name[:j]
		}
		if ext := path.Ext(name); ext != "" {
			return ext
		}
	}
	return ".png"
}
