package optimization

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/foliotrader/folio/internal/domain"
	"github.com/foliotrader/folio/pkg/formulas"
)

// minObservations is the minimum number of aligned daily returns
// required to estimate mu and sigma.
const minObservations = 30

// PriceSource provides historical price series per symbol.
type PriceSource interface {
	GetPriceSeries(symbol, start, end string) ([]domain.PricePoint, error)
}

// InstrumentSource provides instrument metadata.
type InstrumentSource interface {
	Get(symbol string) (*domain.Instrument, error)
}

// SeriesConverter converts a price series into the base currency.
type SeriesConverter interface {
	ConvertPriceSeries(prices []domain.PricePoint, from domain.Currency) ([]domain.PricePoint, []domain.Warning, error)
}

// InputsBuilder estimates annualized moments from historical prices.
// Series are converted to base currency and aligned on their common
// trading dates before returns are computed; symbols whose overlap is
// too short make the whole build fail rather than silently shrinking
// the estimate window.
type InputsBuilder struct {
	prices      PriceSource
	instruments InstrumentSource
	converter   SeriesConverter
	log         zerolog.Logger
}

// NewInputsBuilder creates a moment estimator
func NewInputsBuilder(prices PriceSource, instruments InstrumentSource, converter SeriesConverter, log zerolog.Logger) *InputsBuilder {
	return &InputsBuilder{
		prices:      prices,
		instruments: instruments,
		converter:   converter,
		log:         log.With().Str("component", "inputs_builder").Logger(),
	}
}

// Build estimates mu (mean daily return × 252) and sigma (daily sample
// covariance × 252) for the symbol set over [start, end].
func (b *InputsBuilder) Build(symbols []string, start, end string) (*Inputs, []domain.Warning, error) {
	if len(symbols) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInsufficientData, len(symbols))
	}

	var warnings []domain.Warning
	closesByDate := make([]map[string]float64, len(symbols))

	for i, symbol := range symbols {
		inst, err := b.instruments.Get(symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("loading instrument %s: %w", symbol, err)
		}
		if inst == nil {
			return nil, nil, fmt.Errorf("unknown instrument: %s", symbol)
		}

		series, err := b.prices.GetPriceSeries(symbol, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("loading prices for %s: %w", symbol, err)
		}

		converted, convWarnings, err := b.converter.ConvertPriceSeries(series, inst.Currency)
		if err != nil {
			return nil, nil, fmt.Errorf("converting prices for %s: %w", symbol, err)
		}
		warnings = append(warnings, convWarnings...)

		byDate := make(map[string]float64, len(converted))
		for _, p := range converted {
			byDate[p.Date] = p.Close
		}
		closesByDate[i] = byDate
	}

	dates := commonDates(closesByDate)
	if len(dates) < minObservations+1 {
		return nil, nil, fmt.Errorf("%w: %d aligned observations, need %d", ErrInsufficientData, len(dates), minObservations+1)
	}

	returns := make([][]float64, len(symbols))
	for i := range symbols {
		closes := make([]float64, len(dates))
		for j, date := range dates {
			closes[j] = closesByDate[i][date]
		}
		returns[i] = formulas.CalculateReturns(closes)
	}

	n := len(symbols)
	inputs := &Inputs{
		Symbols: append([]string(nil), symbols...),
		Mu:      make([]float64, n),
		Sigma:   make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		inputs.Mu[i] = stat.Mean(returns[i], nil) * formulas.TradingDaysPerYear
		inputs.Sigma[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := stat.Covariance(returns[i], returns[j], nil) * formulas.TradingDaysPerYear
			inputs.Sigma[i][j] = cov
			inputs.Sigma[j][i] = cov
		}
	}

	b.log.Debug().
		Int("symbols", n).
		Int("observations", len(dates)-1).
		Msg("moment estimates built")

	return inputs, warnings, nil
}

// commonDates intersects the date sets and returns them ascending.
func commonDates(closesByDate []map[string]float64) []string {
	if len(closesByDate) == 0 {
		return nil
	}
	var dates []string
	for date := range closesByDate[0] {
		shared := true
		for _, other := range closesByDate[1:] {
			if _, ok := other[date]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}
