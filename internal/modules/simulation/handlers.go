package simulation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/modules/optimization"
)

// Handler handles simulation HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a simulation handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

type simulateRequest struct {
	Symbols []string  `json:"symbols"`
	Weights []float64 `json:"weights"`
	Config
}

// HandleSimulate runs a Monte Carlo projection. POST /api/simulation/run
// The request context carries cancellation, so a dropped client
// connection aborts a long run between path batches.
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, warnings, err := h.service.Simulate(r.Context(), req.Symbols, req.Weights, req.Config)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, optimization.ErrInsufficientData):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.log.Error().Err(err).Msg("Simulation failed")
			h.writeError(w, http.StatusInternalServerError, "simulation failed")
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
