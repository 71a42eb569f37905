package handlers

import (
	"net/http"
	"sort"

	"github.com/Harshitk-cp/prospector/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ClusterHandler exposes cross-entity dampening state.
type ClusterHandler struct {
	dampening *service.DampeningTracker
}

func NewClusterHandler(dampening *service.DampeningTracker) *ClusterHandler {
	return &ClusterHandler{dampening: dampening}
}

func (h *ClusterHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	clusterID, err := uuid.Parse(chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cluster id")
		return
	}

	if err := h.dampening.Load(r.Context(), clusterID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cluster state")
		return
	}

	writeJSON(w, http.StatusOK, h.dampening.Snapshot(clusterID))
}

func (h *ClusterHandler) Exhausted(w http.ResponseWriter, r *http.Request) {
	clusterID, err := uuid.Parse(chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cluster id")
		return
	}

	if err := h.dampening.Load(r.Context(), clusterID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cluster state")
		return
	}

	exhausted := h.dampening.GetExhaustedHypotheses(clusterID)
	patterns := make([]string, 0, len(exhausted))
	for key := range exhausted {
		patterns = append(patterns, key)
	}
	sort.Strings(patterns)

	writeJSON(w, http.StatusOK, map[string]any{"cluster_id": clusterID, "exhausted_patterns": patterns})
}

func (h *ClusterHandler) Reset(w http.ResponseWriter, r *http.Request) {
	clusterID, err := uuid.Parse(chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cluster id")
		return
	}

	if err := h.dampening.Reset(r.Context(), clusterID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset cluster state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cluster_id": clusterID, "reset": true})
}
