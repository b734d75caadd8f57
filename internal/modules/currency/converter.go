package currency

import (
	"errors"
	"fmt"
	"math"

	"github.com/foliotrader/folio/internal/domain"
	"github.com/rs/zerolog"
)

// ErrUnsupportedCurrency is returned when no conversion path exists
// between two currencies. Valuation paths must treat this as a hard
// failure; convenience callers may degrade to identity and log.
var ErrUnsupportedCurrency = errors.New("unsupported currency pair")

// ErrNoRates is returned when a price series needs conversion but not a
// single rate observation exists in (or before) the window. Gap filling
// needs at least one anchor; without one every fill degrades to NaN.
var ErrNoRates = errors.New("no FX rates available")

// OutlierThreshold is the day-over-day fractional change above which a
// converted price is treated as a data artifact and repaired.
const OutlierThreshold = 0.25

// RateSource provides FX rates for the converter. Satisfied by *Repository.
type RateSource interface {
	GetRate(pair string, date *string) (float64, error)
	GetSeries(pair, start, end string) ([]domain.FXRate, error)
}

// supportedPairs is the fixed pair table. Pairs follow the standard
// convention: pair XXXYYY with rate r means 1 XXX = r YYY. Symmetric
// lookups are handled by the invert flag.
var supportedPairs = map[string]bool{
	"AUDUSD": true,
	"EURUSD": true,
	"GBPUSD": true,
	"EURAUD": true,
	"GBPAUD": true,
	"AUDHKD": true,
}

// Converter converts monetary amounts between instrument currencies and
// the portfolio base currency.
type Converter struct {
	base  domain.Currency
	rates RateSource
	log   zerolog.Logger
}

// NewConverter creates a new currency converter
func NewConverter(base domain.Currency, rates RateSource, log zerolog.Logger) *Converter {
	return &Converter{
		base:  base,
		rates: rates,
		log:   log.With().Str("component", "currency").Logger(),
	}
}

// Base returns the portfolio base currency
func (c *Converter) Base() domain.Currency {
	return c.base
}

// findPair resolves the pair symbol and invert flag for a from→to
// conversion. invert=true means the stored rate is quoted the other way
// round, so conversion divides instead of multiplies.
func findPair(from, to domain.Currency) (string, bool, bool) {
	direct := string(from) + string(to)
	if supportedPairs[direct] {
		return direct, false, true
	}
	inverse := string(to) + string(from)
	if supportedPairs[inverse] {
		return inverse, true, true
	}
	return "", false, false
}

// ConvertToBase converts an amount from the given currency into the base
// currency using the rate for date (or the latest rate if date is nil).
func (c *Converter) ConvertToBase(amount float64, from domain.Currency, date *string) (float64, error) {
	return c.convert(amount, from, c.base, date)
}

// ConvertFromBase converts an amount in the base currency into the given
// currency. Inverse of ConvertToBase for every supported pair.
func (c *Converter) ConvertFromBase(amount float64, to domain.Currency, date *string) (float64, error) {
	return c.convert(amount, c.base, to, date)
}

func (c *Converter) convert(amount float64, from, to domain.Currency, date *string) (float64, error) {
	if from == to {
		return amount, nil
	}

	pair, invert, ok := findPair(from, to)
	if !ok {
		return 0, fmt.Errorf("%w: %s->%s", ErrUnsupportedCurrency, from, to)
	}

	rate, err := c.rates.GetRate(pair, date)
	if err != nil {
		return 0, fmt.Errorf("failed to get rate for %s: %w", pair, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("invalid rate %v for pair %s", rate, pair)
	}

	if invert {
		return amount / rate, nil
	}
	return amount * rate, nil
}

// ConvertPriceSeries converts a chronological close-price series into the
// base currency. The FX rate series is resampled onto the price dates and
// gap-filled: forward-fill from the most recent prior rate, back-fill
// remaining leading gaps, then mean-fill as a last resort. Every fallback
// step is reported as a data-quality warning. Converted prices are then
// cleaned of day-over-day outliers.
func (c *Converter) ConvertPriceSeries(prices []domain.PricePoint, from domain.Currency) ([]domain.PricePoint, []domain.Warning, error) {
	if len(prices) == 0 {
		return nil, nil, nil
	}
	if from == c.base {
		return prices, nil, nil
	}

	pair, invert, ok := findPair(from, c.base)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s->%s", ErrUnsupportedCurrency, from, c.base)
	}

	series, err := c.rates.GetSeries(pair, prices[0].Date, prices[len(prices)-1].Date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get FX series for %s: %w", pair, err)
	}

	rateByDate := make(map[string]float64, len(series))
	for _, fx := range series {
		rateByDate[fx.Date] = fx.Rate
	}

	symbol := prices[0].Symbol
	rates := make([]float64, len(prices))
	anchors := 0
	for i, p := range prices {
		if r, found := rateByDate[p.Date]; found && r > 0 {
			rates[i] = r
			anchors++
		} else {
			rates[i] = math.NaN()
		}
	}
	if anchors == 0 {
		return nil, nil, fmt.Errorf("%w: pair %s between %s and %s",
			ErrNoRates, pair, prices[0].Date, prices[len(prices)-1].Date)
	}

	rates, warnings := fillRateGaps(rates, prices, symbol)

	converted := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		q := p
		if invert {
			q.Open = p.Open / rates[i]
			q.High = p.High / rates[i]
			q.Low = p.Low / rates[i]
			q.Close = p.Close / rates[i]
		} else {
			q.Open = p.Open * rates[i]
			q.High = p.High * rates[i]
			q.Low = p.Low * rates[i]
			q.Close = p.Close * rates[i]
		}
		converted[i] = q
	}

	cleanWarnings := cleanOutliers(converted, symbol)
	warnings = append(warnings, cleanWarnings...)

	if len(warnings) > 0 {
		c.log.Warn().
			Str("symbol", symbol).
			Str("pair", pair).
			Int("warnings", len(warnings)).
			Msg("Price series conversion required data-quality fallbacks")
	}

	return converted, warnings, nil
}

// fillRateGaps applies forward-fill, back-fill and mean-fill to a rate
// series aligned with prices. NaN marks missing observations.
func fillRateGaps(rates []float64, prices []domain.PricePoint, symbol string) ([]float64, []domain.Warning) {
	var warnings []domain.Warning

	// Forward-fill from the most recent prior known rate
	var lastValid float64
	hasLastValid := false
	for i := range rates {
		if math.IsNaN(rates[i]) {
			if hasLastValid {
				rates[i] = lastValid
				warnings = append(warnings, domain.Warning{
					Code:    domain.WarnFXForwardFill,
					Symbol:  symbol,
					Date:    prices[i].Date,
					Message: "missing FX rate forward-filled from prior observation",
				})
			}
		} else {
			lastValid = rates[i]
			hasLastValid = true
		}
	}

	// Back-fill leading gaps
	var nextValid float64
	hasNextValid := false
	for i := len(rates) - 1; i >= 0; i-- {
		if math.IsNaN(rates[i]) {
			if hasNextValid {
				rates[i] = nextValid
				warnings = append(warnings, domain.Warning{
					Code:    domain.WarnFXBackFill,
					Symbol:  symbol,
					Date:    prices[i].Date,
					Message: "missing FX rate back-filled from later observation",
				})
			}
		} else {
			nextValid = rates[i]
			hasNextValid = true
		}
	}

	// Last resort: mean-fill anything still missing
	sum, count := 0.0, 0
	for _, r := range rates {
		if !math.IsNaN(r) {
			sum += r
			count++
		}
	}
	if count > 0 {
		mean := sum / float64(count)
		for i := range rates {
			if math.IsNaN(rates[i]) {
				rates[i] = mean
				warnings = append(warnings, domain.Warning{
					Code:    domain.WarnFXMeanFill,
					Symbol:  symbol,
					Date:    prices[i].Date,
					Message: "missing FX rate filled with series mean",
				})
			}
		}
	}

	return rates, warnings
}

// cleanOutliers repairs day-over-day close changes exceeding the outlier
// threshold (or NaN values) in place, via linear interpolation between the
// nearest valid neighbours. Edge gaps are forward/backward filled.
func cleanOutliers(prices []domain.PricePoint, symbol string) []domain.Warning {
	if len(prices) < 3 {
		return nil
	}

	// Compare against the last valid close so a single spike does not
	// drag the following normal day down with it.
	valid := make([]bool, len(prices))
	lastValid := math.NaN()
	for i := range prices {
		c := prices[i].Close
		if math.IsNaN(c) {
			continue
		}
		if math.IsNaN(lastValid) || lastValid == 0 {
			valid[i] = true
			lastValid = c
			continue
		}
		if math.Abs(c/lastValid-1) <= OutlierThreshold {
			valid[i] = true
			lastValid = c
		}
	}

	var warnings []domain.Warning
	for i := range prices {
		if valid[i] {
			continue
		}

		// Nearest valid neighbours on each side
		lo := i - 1
		for lo >= 0 && !valid[lo] {
			lo--
		}
		hi := i + 1
		for hi < len(prices) && !valid[hi] {
			hi++
		}

		switch {
		case lo >= 0 && hi < len(prices):
			frac := float64(i-lo) / float64(hi-lo)
			prices[i].Close = prices[lo].Close + frac*(prices[hi].Close-prices[lo].Close)
		case lo >= 0:
			prices[i].Close = prices[lo].Close
		case hi < len(prices):
			prices[i].Close = prices[hi].Close
		default:
			continue
		}
		valid[i] = true

		warnings = append(warnings, domain.Warning{
			Code:    domain.WarnOutlierRepaired,
			Symbol:  symbol,
			Date:    prices[i].Date,
			Message: "outlier price point replaced by interpolation",
		})
	}

	return warnings
}
