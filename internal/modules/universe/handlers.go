package universe

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/foliotrader/folio/internal/domain"
	"github.com/foliotrader/folio/pkg/formulas"
	"github.com/rs/zerolog"
)

// Handler handles instrument HTTP requests
type Handler struct {
	repo         *Repository
	historyDB    *HistoryDB
	riskFreeRate float64
	log          zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(repo *Repository, historyDB *HistoryDB, riskFreeRate float64, log zerolog.Logger) *Handler {
	return &Handler{
		repo:         repo,
		historyDB:    historyDB,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("handler", "universe").Logger(),
	}
}

// HandleList returns all active instruments
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.repo.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, instruments)
}

// HandleGet returns one instrument by symbol
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	inst, err := h.repo.Get(symbol)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if inst == nil {
		h.writeError(w, http.StatusNotFound, "instrument not found")
		return
	}
	h.writeJSON(w, http.StatusOK, inst)
}

// HandleSave creates or updates an instrument
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var inst domain.Instrument
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	inst.Active = true

	if err := h.repo.Save(inst); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// HandlePriceSeries returns daily prices for a symbol within a date range
func (h *Handler) HandlePriceSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	end := r.URL.Query().Get("end")
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	start := r.URL.Query().Get("start")
	if start == "" {
		start = time.Now().UTC().AddDate(-1, 0, 0).Format("2006-01-02")
	}

	prices, err := h.historyDB.GetPriceSeries(symbol, start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, prices)
}

// HandleSavePrices ingests a batch of daily prices for a symbol.
// Price data is pushed in; there is no upstream market-data client.
func (h *Handler) HandleSavePrices(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var prices []domain.PricePoint
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(prices) == 0 {
		h.writeError(w, http.StatusBadRequest, "no prices provided")
		return
	}

	if err := h.historyDB.SavePrices(symbol, prices); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "saved",
		"count":  len(prices),
	})
}

// HandleTechnicals returns indicator values for an instrument
func (h *Handler) HandleTechnicals(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	end := time.Now().UTC().Format("2006-01-02")
	start := time.Now().UTC().AddDate(-2, 0, 0).Format("2006-01-02")

	prices, err := h.historyDB.GetPriceSeries(symbol, start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(prices) == 0 {
		h.writeError(w, http.StatusNotFound, "no price history for symbol")
		return
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}

	result := map[string]interface{}{
		"symbol":        symbol,
		"last_close":    closes[len(closes)-1],
		"rsi_14":        formulas.RSI(closes, 14),
		"sma_50":        formulas.SMA(closes, 50),
		"sma_200":       formulas.SMA(closes, 200),
		"high_52w":      formulas.High52Week(closes),
		"low_52w":       formulas.Low52Week(closes),
		"drawdown":      formulas.CalculateDrawdownMetrics(closes),
		"volatility_1y": formulas.AnnualizedVolatility(formulas.CalculateReturns(closes)),
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRisk returns return-based risk metrics for an instrument over
// the trailing two years, optionally against a ?benchmark= symbol.
func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	end := time.Now().UTC().Format("2006-01-02")
	start := time.Now().UTC().AddDate(-2, 0, 0).Format("2006-01-02")

	prices, err := h.historyDB.GetPriceSeries(symbol, start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(prices) < 2 {
		h.writeError(w, http.StatusNotFound, "not enough price history for symbol")
		return
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	returns := formulas.CalculateReturns(closes)

	result := map[string]interface{}{
		"symbol":        symbol,
		"sharpe_ratio":  formulas.SharpeRatio(returns, h.riskFreeRate),
		"sortino_ratio": formulas.SortinoRatio(returns, h.riskFreeRate),
		"volatility_1y": formulas.AnnualizedVolatility(returns),
		"var_95":        formulas.ValueAtRisk(returns, 0.95),
		"cvar_95":       formulas.ConditionalValueAtRisk(returns, 0.95),
		"max_drawdown":  formulas.MaxDrawdown(closes),
	}

	if benchmark := r.URL.Query().Get("benchmark"); benchmark != "" {
		benchPrices, err := h.historyDB.GetPriceSeries(benchmark, start, end)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Beta and Alpha need date-aligned return series
		symReturns, benchReturns := alignedReturns(prices, benchPrices)
		if len(symReturns) < 2 {
			h.writeError(w, http.StatusNotFound, "not enough overlapping history with benchmark")
			return
		}

		result["benchmark"] = benchmark
		result["beta"] = formulas.Beta(symReturns, benchReturns)
		result["alpha"] = formulas.Alpha(symReturns, benchReturns, h.riskFreeRate)
	}

	h.writeJSON(w, http.StatusOK, result)
}

// alignedReturns intersects two price series on date and returns both
// daily return series over the common dates.
func alignedReturns(a, b []domain.PricePoint) ([]float64, []float64) {
	bByDate := make(map[string]float64, len(b))
	for _, p := range b {
		bByDate[p.Date] = p.Close
	}

	var closesA, closesB []float64
	for _, p := range a {
		if close, ok := bByDate[p.Date]; ok {
			closesA = append(closesA, p.Close)
			closesB = append(closesB, close)
		}
	}

	return formulas.CalculateReturns(closesA), formulas.CalculateReturns(closesB)
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
