package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/prospector/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// LedgerHandler exposes the belief ledger for audit: full chains and
// integrity verification.
type LedgerHandler struct {
	ledger *service.BeliefLedger
}

func NewLedgerHandler(ledger *service.BeliefLedger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

func (h *LedgerHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	entries, err := h.ledger.GetChain(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entity_id": entityID, "entries": entries})
}

func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	result, err := h.ledger.VerifyChain(r.Context(), entityID)
	if err != nil {
		// A broken chain is still a successful verification call. The halt
		// on further appends happens inside the service.
		if errors.Is(err, service.ErrIntegrityViolation) {
			writeJSON(w, http.StatusOK, result)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to verify ledger")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
