package portfolio

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service   *Service
	snapshots *SnapshotRepository
	log       zerolog.Logger
}

// NewHandler creates a portfolio handler
func NewHandler(service *Service, snapshots *SnapshotRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		snapshots: snapshots,
		log:       log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleSummary returns the valued portfolio. GET /api/portfolio?as_of=YYYY-MM-DD
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	asOf := r.URL.Query().Get("as_of")
	if asOf == "" {
		asOf = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", asOf); err != nil {
		h.writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return
	}

	summary, err := h.service.GetSummary(asOf)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio summary")
		h.writeError(w, http.StatusInternalServerError, "failed to build portfolio summary")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandlePosition returns one reconstructed position. GET /api/portfolio/positions/{symbol}
func (h *Handler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	asOf := r.URL.Query().Get("as_of")
	if asOf == "" {
		asOf = time.Now().UTC().Format("2006-01-02")
	}

	position, warnings, err := h.service.GetPosition(symbol, asOf)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to reconstruct position")
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"position": position,
		"warnings": warnings,
	})
}

// HandleSnapshots returns stored daily snapshots. GET /api/portfolio/snapshots?start=&end=
func (h *Handler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" {
		start = "1970-01-01"
	}
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}

	snapshots, err := h.snapshots.List(start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list snapshots")
		h.writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	h.writeJSON(w, http.StatusOK, snapshots)
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
