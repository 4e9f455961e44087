package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/component"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpkit"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/middleware"
)

// PostComponent registers a component descriptor.
func (h *Handler) PostComponent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var d component.Descriptor
	if err := httpkit.DecodeJSON(r, &d); err != nil {
		httpkit.WriteError(w, errors.Validation("invalid json body"))
		return
	}

	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		httpkit.WriteError(w, errors.ValidationField("id", "id is required"))
		return
	}
	if len(d.Template) == 0 {
		httpkit.WriteError(w, errors.ValidationField("template", "template is required"))
		return
	}
	if d.ServerURL == "" {
		httpkit.WriteError(w, errors.ValidationField("server_url", "server_url is required"))
		return
	}

	if err := h.components.Create(ctx, &d); err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	httpkit.WriteJSON(w, http.StatusCreated, d)
}

// ListComponents returns summaries of all registered components.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	out, err := h.components.List(r.Context())
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"components": out})
}

// GetComponent returns one full descriptor.
func (h *Handler) GetComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentId")

	d, err := h.components.Get(r.Context(), id)
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, d)
}

// DeleteComponent removes a component and purges its cached artifacts.
func (h *Handler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentId")

	if err := h.components.Delete(r.Context(), id); err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	purged := h.cache.PurgeComponent(id)
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"deleted":        id,
		"purged_entries": purged,
	})
}
