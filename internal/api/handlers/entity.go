package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/service"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EntityHandler exposes the discovery lifecycle for one entity: seeding
// hypotheses from a template, running the iterative protocol, reading the
// aggregate band, and promoting surviving beliefs.
type EntityHandler struct {
	manager     *service.HypothesisManager
	coordinator *service.Coordinator
	dampening   *service.DampeningTracker
}

func NewEntityHandler(manager *service.HypothesisManager, coordinator *service.Coordinator, dampening *service.DampeningTracker) *EntityHandler {
	return &EntityHandler{manager: manager, coordinator: coordinator, dampening: dampening}
}

type initHypothesesRequest struct {
	TemplateID string `json:"template_id"`
	EntityName string `json:"entity_name"`
}

type initHypothesesResponse struct {
	EntityID   uuid.UUID           `json:"entity_id"`
	Hypotheses []domain.Hypothesis `json:"hypotheses"`
}

func (h *EntityHandler) InitHypotheses(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	var req initHypothesesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "template_id is required")
		return
	}
	if req.EntityName == "" {
		writeError(w, http.StatusBadRequest, "entity_name is required")
		return
	}

	hs, err := h.manager.InitializeHypotheses(r.Context(), req.TemplateID, entityID, req.EntityName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to initialize hypotheses")
		return
	}

	writeJSON(w, http.StatusCreated, initHypothesesResponse{EntityID: entityID, Hypotheses: hs})
}

func (h *EntityHandler) ListHypotheses(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	hs, err := h.manager.GetByEntity(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list hypotheses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entity_id": entityID, "hypotheses": hs})
}

func (h *EntityHandler) Band(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	band, err := h.manager.EntityBand(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute band")
		return
	}

	writeJSON(w, http.StatusOK, band)
}

type discoverRequest struct {
	ClusterID string `json:"cluster_id"`
}

func (h *EntityHandler) Discover(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	clusterID, err := uuid.Parse(req.ClusterID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cluster_id")
		return
	}

	if err := h.dampening.Load(r.Context(), clusterID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cluster state")
		return
	}

	result, err := h.coordinator.Run(r.Context(), entityID, clusterID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, "discovery run cancelled")
			return
		}
		writeError(w, http.StatusInternalServerError, "discovery run failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *EntityHandler) Promote(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	result, err := h.coordinator.Promote(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to promote entity")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
