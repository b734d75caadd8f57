package simulation

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/foliotrader/folio/pkg/formulas"
)

// PathModel holds the per-step GBM parameters derived from annualized
// moments: lognormal drift terms, daily variances and the Cholesky
// factor of the daily covariance matrix. Fallback is set when the
// matrix is not positive definite and shocks degrade to independent
// per-asset draws.
type PathModel struct {
	drift    []float64
	variance []float64
	chol     *mat.TriDense
	Fallback bool
}

// NewPathModel derives the daily step parameters from annualized mu
// and sigma.
func NewPathModel(mu []float64, sigma [][]float64) *PathModel {
	n := len(mu)
	m := &PathModel{
		drift:    make([]float64, n),
		variance: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		m.variance[i] = sigma[i][i] / formulas.TradingDaysPerYear
		m.drift[i] = mu[i]/formulas.TradingDaysPerYear - m.variance[i]/2
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, sigma[i][j]/formulas.TradingDaysPerYear)
		}
	}
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		tri := mat.NewTriDense(n, mat.Lower, nil)
		chol.LTo(tri)
		m.chol = tri
	} else {
		m.Fallback = true
	}
	return m
}

// Size returns the number of assets in the model.
func (m *PathModel) Size() int {
	return len(m.drift)
}

// PathGenerator draws one path's sequence of daily growth factors.
// Each generator owns its rand source, seeded from a run seed plus a
// path index, so concurrent paths stay deterministic.
type PathGenerator struct {
	model  *PathModel
	normal distuv.Normal
	z      []float64
	shocks []float64
}

// NewPathGenerator creates a generator for one path of the model.
func NewPathGenerator(model *PathModel, seed, path uint64) *PathGenerator {
	n := model.Size()
	return &PathGenerator{
		model:  model,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, path)},
		z:      make([]float64, n),
		shocks: make([]float64, n),
	}
}

// Step fills growth with one day of per-asset growth factors.
func (g *PathGenerator) Step(growth []float64) {
	n := g.model.Size()
	for i := 0; i < n; i++ {
		g.z[i] = g.normal.Rand()
	}
	if g.model.chol == nil {
		for i := 0; i < n; i++ {
			g.shocks[i] = math.Sqrt(g.model.variance[i]) * g.z[i]
		}
	} else {
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j <= i; j++ {
				s += g.model.chol.At(i, j) * g.z[j]
			}
			g.shocks[i] = s
		}
	}
	for i := 0; i < n; i++ {
		growth[i] = math.Exp(g.model.drift[i] + g.shocks[i])
	}
}
