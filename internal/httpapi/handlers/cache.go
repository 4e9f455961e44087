package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpkit"
)

// GetCacheStats reports entry count and age bounds of the artifact cache.
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, h.cache.Stats())
}

// ClearCache drops every cached artifact.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// PurgeComponentCache drops cached artifacts of one component.
func (h *Handler) PurgeComponentCache(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentId")
	purged := h.cache.PurgeComponent(id)
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"purged_entries": purged})
}
