package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/service"
	"go.uber.org/zap"
)

// TuningHandler runs offline parameter searches against labeled discovery
// outcomes supplied in the request. Searches never touch production state.
type TuningHandler struct {
	base   domain.TuningConfig
	logger *zap.Logger
}

func NewTuningHandler(base domain.TuningConfig, logger *zap.Logger) *TuningHandler {
	return &TuningHandler{base: base, logger: logger}
}

type tuningRequest struct {
	Samples         []service.LabeledSample `json:"samples"`
	Ranges          []service.ParamRange    `json:"ranges"`
	Budget          int                     `json:"budget"`
	ValidationSplit float64                 `json:"validation_split"`
	Seed            *int64                  `json:"seed,omitempty"`
}

func (h *TuningHandler) GridSearch(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(t *service.ParameterTuner, req tuningRequest) (*service.TuningResult, error) {
		return t.GridSearch(r.Context(), req.Ranges, req.Budget, req.ValidationSplit)
	})
}

func (h *TuningHandler) BayesianOptimization(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(t *service.ParameterTuner, req tuningRequest) (*service.TuningResult, error) {
		return t.BayesianOptimization(r.Context(), req.Ranges, req.Budget, req.ValidationSplit)
	})
}

func (h *TuningHandler) run(w http.ResponseWriter, r *http.Request, search func(*service.ParameterTuner, tuningRequest) (*service.TuningResult, error)) {
	var req tuningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "samples are required")
		return
	}
	if len(req.Ranges) == 0 {
		writeError(w, http.StatusBadRequest, "ranges are required")
		return
	}

	tuner := service.NewParameterTuner(h.base, req.Samples, h.logger)
	if req.Seed != nil {
		tuner.SetSeed(*req.Seed)
	}

	result, err := search(tuner, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "tuning run failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
