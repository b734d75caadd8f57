package dividends

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

// Handler handles dividend HTTP requests
type Handler struct {
	repo        *Repository
	service     *Service
	instruments InstrumentSource
	log         zerolog.Logger
}

// NewHandler creates a dividend handler
func NewHandler(repo *Repository, service *Service, instruments InstrumentSource, log zerolog.Logger) *Handler {
	return &Handler{
		repo:        repo,
		service:     service,
		instruments: instruments,
		log:         log.With().Str("handler", "dividends").Logger(),
	}
}

// HandleList returns recorded dividends. GET /api/dividends
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	dividends, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list dividends")
		h.writeError(w, http.StatusInternalServerError, "failed to list dividends")
		return
	}
	if dividends == nil {
		dividends = []domain.Dividend{}
	}
	h.writeJSON(w, http.StatusOK, dividends)
}

// HandleCreate records a dividend. POST /api/dividends
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var dividend domain.Dividend
	if err := json.NewDecoder(r.Body).Decode(&dividend); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.repo.Create(dividend)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// HandleYield returns the TTM yield for a symbol. GET /api/dividends/{symbol}/yield
func (h *Handler) HandleYield(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	inst, err := h.instruments.Get(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load instrument")
		h.writeError(w, http.StatusInternalServerError, "failed to load instrument")
		return
	}
	if inst == nil {
		h.writeError(w, http.StatusNotFound, "instrument not found")
		return
	}

	yield, err := h.service.TTMYield(symbol, inst.Currency)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to compute yield")
		h.writeError(w, http.StatusInternalServerError, "failed to compute yield")
		return
	}
	if yield == nil {
		h.writeError(w, http.StatusNotFound, "no price history for symbol")
		return
	}
	h.writeJSON(w, http.StatusOK, yield)
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
