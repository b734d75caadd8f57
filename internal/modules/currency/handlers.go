package currency

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

// Handler handles FX rate HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "currency").Logger(),
	}
}

// HandleGetSeries returns rate observations for a pair within a date range
func (h *Handler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	pair := strings.ToUpper(chi.URLParam(r, "pair"))
	if !supportedPairs[pair] {
		h.writeError(w, http.StatusNotFound, "unsupported currency pair")
		return
	}

	end := r.URL.Query().Get("end")
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	start := r.URL.Query().Get("start")
	if start == "" {
		start = time.Now().UTC().AddDate(-1, 0, 0).Format("2006-01-02")
	}

	series, err := h.repo.GetSeries(pair, start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, series)
}

// HandleSaveRates ingests a batch of rate observations. Like prices,
// rates are pushed in; there is no upstream FX feed.
func (h *Handler) HandleSaveRates(w http.ResponseWriter, r *http.Request) {
	var rates []domain.FXRate
	if err := json.NewDecoder(r.Body).Decode(&rates); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(rates) == 0 {
		h.writeError(w, http.StatusBadRequest, "no rates provided")
		return
	}

	for i := range rates {
		rates[i].Pair = strings.ToUpper(strings.TrimSpace(rates[i].Pair))
		if !supportedPairs[rates[i].Pair] {
			h.writeError(w, http.StatusBadRequest, "unsupported currency pair: "+rates[i].Pair)
			return
		}
		if rates[i].Rate <= 0 {
			h.writeError(w, http.StatusBadRequest, "rate must be positive")
			return
		}
		if _, err := time.Parse("2006-01-02", rates[i].Date); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid date: "+rates[i].Date)
			return
		}
	}

	for _, fx := range rates {
		if err := h.repo.SaveRate(fx); err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "saved",
		"count":  len(rates),
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
