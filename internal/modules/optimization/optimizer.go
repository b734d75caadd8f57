package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// penaltyWeight scales the quadratic penalties that stand in for the
// equality constraints (sum of weights = 1, portfolio return = target).
const penaltyWeight = 1000.0

// Optimizer solves mean-variance portfolio problems.
//
// Mathematical formulation:
//   - MAX_SHARPE:     maximize (mu'w - rf) / sqrt(w'Σw)
//   - MIN_VOLATILITY: minimize w'Σw
//   - TARGET_RETURN:  minimize w'Σw subject to mu'w = target
//   - MAX_RETURN:     maximize mu'w
//
// All subject to Σw = 1 and lower_i ≤ w_i ≤ upper_i. Equality
// constraints are enforced by quadratic penalty, bounds by projection.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates a mean-variance optimizer
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{log: log.With().Str("component", "optimizer").Logger()}
}

// Optimize solves for the requested objective.
//
// Args:
//
//	inputs: annualized mu and sigma, ordered parallel to inputs.Symbols
//	objective: one of the Objective constants
//	riskFreeRate: annualized risk-free rate for Sharpe computations
//	targetReturn: required for TARGET_RETURN, ignored otherwise
//	constraints: per-symbol weight bounds, defaults to [0, 1]
//
// Returns:
//
//	Result with Converged=false (best-found weights) when the solver
//	misses tolerance; an error only for invalid inputs or a target
//	return outside the achievable range.
func (o *Optimizer) Optimize(inputs Inputs, objective Objective, riskFreeRate float64, targetReturn *float64, constraints Constraints) (*Result, error) {
	n := len(inputs.Symbols)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInsufficientData, n)
	}
	if len(inputs.Mu) != n || len(inputs.Sigma) != n {
		return nil, fmt.Errorf("moment estimates sized %dx%d do not match %d symbols", len(inputs.Mu), len(inputs.Sigma), n)
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		if len(inputs.Sigma[i]) != n {
			return nil, fmt.Errorf("covariance row %d has %d entries, expected %d", i, len(inputs.Sigma[i]), n)
		}
		for j := 0; j < n; j++ {
			sigma.Set(i, j, inputs.Sigma[i][j])
		}
	}

	lo, hi := constraints.bounds(inputs.Symbols)

	var problem optimize.Problem
	switch objective {
	case ObjectiveMinVolatility:
		problem = o.minVolatilityProblem(inputs.Mu, sigma, lo, hi)
	case ObjectiveMaxSharpe:
		problem = o.maxSharpeProblem(inputs.Mu, sigma, riskFreeRate, lo, hi)
	case ObjectiveMaxReturn:
		problem = o.maxReturnProblem(inputs.Mu, lo, hi)
	case ObjectiveTargetReturn:
		if targetReturn == nil {
			return nil, fmt.Errorf("target return required for %s", ObjectiveTargetReturn)
		}
		minRet, maxRet := achievableReturnRange(inputs.Mu, lo, hi)
		if *targetReturn < minRet-1e-9 || *targetReturn > maxRet+1e-9 {
			return nil, fmt.Errorf("%w: %.4f not in [%.4f, %.4f]", ErrUnachievableTarget, *targetReturn, minRet, maxRet)
		}
		problem = o.targetReturnProblem(inputs.Mu, sigma, lo, hi, *targetReturn)
	default:
		return nil, fmt.Errorf("unknown objective: %q", objective)
	}

	x, converged := o.solve(problem, n)
	if !converged {
		o.log.Warn().Str("objective", string(objective)).Msg("solver missed tolerance, returning best-found weights")
	}

	weights := finalizeWeights(x, lo, hi)
	result := o.buildResult(inputs, weights, riskFreeRate)
	result.Converged = converged
	return result, nil
}

// solve runs BFGS and falls back to Nelder-Mead when BFGS errors or
// fails to converge. Returns the best point found and whether any run
// met tolerance.
func (o *Optimizer) solve(problem optimize.Problem, n int) ([]float64, bool) {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err == nil && isConverged(result.Status) {
		return result.X, true
	}

	best := initial
	if err == nil {
		best = result.X
	}

	result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err == nil {
		if isConverged(result.Status) {
			return result.X, true
		}
		best = result.X
	}
	return best, false
}

func isConverged(status optimize.Status) bool {
	return status == optimize.Success ||
		status == optimize.GradientThreshold ||
		status == optimize.FunctionConvergence
}

func (o *Optimizer) minVolatilityProblem(mu []float64, sigma *mat.Dense, lo, hi []float64) optimize.Problem {
	n := len(mu)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, lo, hi)
			return portfolioVariance(w, sigma) + sumPenalty(w)
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, lo, hi)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * w[j]
				}
			}
			addSumPenaltyGradient(grad, w)
		},
	}
}

func (o *Optimizer) maxSharpeProblem(mu []float64, sigma *mat.Dense, riskFreeRate float64, lo, hi []float64) optimize.Problem {
	n := len(mu)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, lo, hi)
			ret := dot(mu, w)
			stdDev := math.Sqrt(math.Max(portfolioVariance(w, sigma), 1e-10))
			return -(ret-riskFreeRate)/stdDev + sumPenalty(w)
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, lo, hi)
			ret := dot(mu, w)
			variance := portfolioVariance(w, sigma)
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			excess := ret - riskFreeRate
			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * sigma.At(i, j) * w[j]
				}
				grad[i] = -mu[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev)
			}
			addSumPenaltyGradient(grad, w)
		},
	}
}

func (o *Optimizer) maxReturnProblem(mu []float64, lo, hi []float64) optimize.Problem {
	n := len(mu)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, lo, hi)
			return -dot(mu, w) + sumPenalty(w)
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, lo, hi)
			for i := 0; i < n; i++ {
				grad[i] = -mu[i]
			}
			addSumPenaltyGradient(grad, w)
		},
	}
}

func (o *Optimizer) targetReturnProblem(mu []float64, sigma *mat.Dense, lo, hi []float64, target float64) optimize.Problem {
	n := len(mu)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, lo, hi)
			ret := dot(mu, w)
			obj := portfolioVariance(w, sigma)
			obj += sumPenalty(w)
			obj += penaltyWeight * (ret - target) * (ret - target)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, lo, hi)
			ret := dot(mu, w)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * w[j]
				}
				grad[i] += 2 * penaltyWeight * (ret - target) * mu[i]
			}
			addSumPenaltyGradient(grad, w)
		},
	}
}

// buildResult computes the summary statistics for a weight vector.
func (o *Optimizer) buildResult(inputs Inputs, weights []float64, riskFreeRate float64) *Result {
	n := len(weights)
	expectedReturn := dot(inputs.Mu, weights)

	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * inputs.Sigma[i][j]
		}
	}
	volatility := math.Sqrt(math.Max(variance, 0))

	sharpe := 0.0
	if volatility > 0 {
		sharpe = (expectedReturn - riskFreeRate) / volatility
	}

	return &Result{
		Symbols:        append([]string(nil), inputs.Symbols...),
		Weights:        weights,
		ExpectedReturn: expectedReturn,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
	}
}

// achievableReturnRange computes the min and max portfolio return
// reachable under Σw = 1 and the given bounds, by greedy allocation of
// the free mass to the worst/best expected returns.
func achievableReturnRange(mu, lo, hi []float64) (minRet, maxRet float64) {
	n := len(mu)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	allocate := func(descending bool) float64 {
		sort.Slice(order, func(a, b int) bool {
			if descending {
				return mu[order[a]] > mu[order[b]]
			}
			return mu[order[a]] < mu[order[b]]
		})
		w := make([]float64, n)
		free := 1.0
		for i := range w {
			w[i] = lo[i]
			free -= lo[i]
		}
		for _, i := range order {
			if free <= 0 {
				break
			}
			extra := math.Min(free, hi[i]-lo[i])
			w[i] += extra
			free -= extra
		}
		return dot(mu, w)
	}

	return allocate(false), allocate(true)
}

// finalizeWeights projects the solver's point to bounds, clips tiny
// negatives, and normalizes to sum exactly 1.
func finalizeWeights(x, lo, hi []float64) []float64 {
	w := projectToBounds(x, lo, hi)
	sum := 0.0
	for i := range w {
		w[i] = math.Max(0, w[i])
		sum += w[i]
	}
	if sum > 0 {
		for i := range w {
			w[i] /= sum
		}
	}
	return w
}

func projectToBounds(x, lo, hi []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(lo[i], math.Min(hi[i], x[i]))
	}
	return proj
}

func portfolioVariance(w []float64, sigma *mat.Dense) float64 {
	var variance float64
	n := len(w)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * sigma.At(i, j)
		}
	}
	return variance
}

func sumPenalty(w []float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return penaltyWeight * (sum - 1.0) * (sum - 1.0)
}

func addSumPenaltyGradient(grad, w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	for i := range grad {
		grad[i] += 2 * penaltyWeight * (sum - 1.0)
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
