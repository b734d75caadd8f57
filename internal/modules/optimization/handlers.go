package optimization

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles optimization HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates an optimization handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

type optimizeRequest struct {
	Symbols      []string    `json:"symbols"`
	Objective    string      `json:"objective"`
	RiskFreeRate *float64    `json:"risk_free_rate,omitempty"`
	TargetReturn *float64    `json:"target_return,omitempty"`
	Constraints  Constraints `json:"constraints"`
}

// HandleOptimize solves one objective. POST /api/optimization/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	objective, err := ObjectiveFromString(req.Objective)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, warnings, err := h.service.Optimize(req.Symbols, objective, req.RiskFreeRate, req.TargetReturn, req.Constraints)
	if err != nil {
		h.writeOptimizationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":   result,
		"warnings": warnings,
	})
}

type frontierRequest struct {
	Symbols      []string    `json:"symbols"`
	RiskFreeRate *float64    `json:"risk_free_rate,omitempty"`
	NumPoints    int         `json:"num_points,omitempty"`
	Constraints  Constraints `json:"constraints"`
}

// HandleFrontier traces the efficient frontier. POST /api/optimization/frontier
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	var req frontierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	points, warnings, err := h.service.Frontier(req.Symbols, req.RiskFreeRate, req.Constraints, req.NumPoints)
	if err != nil {
		h.writeOptimizationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"points":   points,
		"warnings": warnings,
	})
}

func (h *Handler) writeOptimizationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientData), errors.Is(err, ErrUnachievableTarget):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, http.StatusInternalServerError, "optimization failed")
	}
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
