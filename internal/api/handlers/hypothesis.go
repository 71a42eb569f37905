package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/service"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// HypothesisHandler exposes individual hypothesis records and a manual
// verdict path for operators replaying evidence out of band.
type HypothesisHandler struct {
	manager *service.HypothesisManager
}

func NewHypothesisHandler(manager *service.HypothesisManager) *HypothesisHandler {
	return &HypothesisHandler{manager: manager}
}

func (h *HypothesisHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hypothesis id")
		return
	}

	hyp, err := h.manager.GetHypothesis(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "hypothesis not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get hypothesis")
		return
	}

	writeJSON(w, http.StatusOK, hyp)
}

type applyVerdictRequest struct {
	EntityID        string  `json:"entity_id"`
	Iteration       int     `json:"iteration"`
	Decision        string  `json:"decision"`
	ConfidenceDelta float64 `json:"confidence_delta,omitempty"`
	EvidenceRef     string  `json:"evidence_ref"`
}

// ApplyVerdict applies one verdict to a hypothesis outside a coordinated
// run. It goes through the same mutation path as the coordinator, so the
// ledger, guardrails and duplicate-evidence checks all apply.
func (h *HypothesisHandler) ApplyVerdict(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hypothesis id")
		return
	}

	var req applyVerdictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entityID, err := uuid.Parse(req.EntityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity_id")
		return
	}

	decision, err := parseDecision(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.EvidenceRef == "" {
		writeError(w, http.StatusBadRequest, "evidence_ref is required")
		return
	}

	updated, err := h.manager.UpdateHypothesis(r.Context(), service.UpdateInput{
		HypothesisID:    id,
		EntityID:        entityID,
		Iteration:       req.Iteration,
		Decision:        decision,
		ConfidenceDelta: req.ConfidenceDelta,
		EvidenceRef:     req.EvidenceRef,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "hypothesis not found")
		case errors.Is(err, store.ErrDuplicateEvidence):
			writeError(w, http.StatusConflict, "evidence already applied")
		case errors.Is(err, service.ErrChainHalted):
			writeError(w, http.StatusConflict, "belief ledger halted for entity")
		default:
			writeError(w, http.StatusInternalServerError, "failed to apply verdict")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func parseDecision(s string) (domain.Decision, error) {
	switch domain.Decision(s) {
	case domain.DecisionAccept, domain.DecisionWeakAccept, domain.DecisionReject, domain.DecisionNoProgress:
		return domain.Decision(s), nil
	default:
		return "", errors.New("decision must be one of ACCEPT, WEAK_ACCEPT, REJECT, NO_PROGRESS")
	}
}
