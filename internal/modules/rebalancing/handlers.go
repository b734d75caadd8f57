package rebalancing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/modules/optimization"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a rebalancing handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

type driftRequest struct {
	Symbols        []string  `json:"symbols"`
	CurrentWeights []float64 `json:"current_weights"`
	TargetWeights  []float64 `json:"target_weights"`
	DriftThreshold float64   `json:"drift_threshold"`
}

// HandleAnalyze checks allocation drift. POST /api/rebalancing/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req driftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	analysis, err := h.service.AnalyzeDrift(req.Symbols, req.CurrentWeights, req.TargetWeights, req.DriftThreshold)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}

type timingRequest struct {
	Symbols       []string  `json:"symbols"`
	TargetWeights []float64 `json:"target_weights"`
	TimingConfig
}

// HandleTiming runs a cost/benefit timing study. POST /api/rebalancing/timing
func (h *Handler) HandleTiming(w http.ResponseWriter, r *http.Request) {
	var req timingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, warnings, err := h.service.AnalyzeTiming(r.Context(), req.Symbols, req.TargetWeights, req.TimingConfig)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, optimization.ErrInsufficientData):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.log.Error().Err(err).Msg("Timing analysis failed")
			h.writeError(w, http.StatusInternalServerError, "timing analysis failed")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":   result,
		"warnings": warnings,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
