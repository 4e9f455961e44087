package handlers

import (
	"net/http"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpkit"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/orchestrator"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/middleware"
)

type GenerateRequest struct {
	ComponentID string         `json:"component_id"`
	Params      map[string]any `json:"params"`
}

type GenerateResponse struct {
	RequestID    string `json:"request_id"`
	JobID        string `json:"job_id,omitempty"`
	ArtifactPath string `json:"artifact_path"`
	Cached       bool   `json:"cached"`
	DurationMs   int64  `json:"duration_ms"`
}

// PostGenerate runs one render request synchronously and returns the
// artifact location.
func (h *Handler) PostGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, errors.Validation("invalid json body"))
		return
	}
	if req.ComponentID == "" {
		httpkit.WriteError(w, errors.ValidationField("component_id", "component_id is required"))
		return
	}

	requestID, _ := ctx.Value(logger.RequestIDKey).(string)
	res, err := h.orch.Generate(ctx, orchestrator.Request{
		ComponentID: req.ComponentID,
		Params:      req.Params,
		RequestID:   requestID,
	})
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, GenerateResponse{
		RequestID:    res.RequestID,
		JobID:        res.JobID,
		ArtifactPath: res.ArtifactPath,
		Cached:       res.Cached,
		DurationMs:   res.Duration.Milliseconds(),
	})
}

type ConcurrencyRequest struct {
	Concurrency int `json:"concurrency"`
}

// PutConcurrency adjusts the render concurrency bound at runtime.
func (h *Handler) PutConcurrency(w http.ResponseWriter, r *http.Request) {
	var req ConcurrencyRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, errors.Validation("invalid json body"))
		return
	}
	if req.Concurrency < 1 {
		httpkit.WriteError(w, errors.ValidationField("concurrency", "concurrency must be at least 1"))
		return
	}

	h.orch.SetConcurrency(req.Concurrency)
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"concurrency": req.Concurrency})
}
