// Package berpf implements a Bernoulli particle filter: a recursive
// Bayesian estimator which jointly tracks the probability that a single
// target exists and, conditional on existence, the posterior distribution
// over its state. Measurements may originate from the target, from
// clutter, or be absent altogether; the measurement interpretation itself
// is delegated to a Likelihood collaborator.
//
// Filter values are immutable: Update returns a fresh state and leaves
// the receiver untouched, so previous states can be retained for replay
// and debugging. The only mutable piece is the random source, which is
// threaded through resampling and birth draws and must not be shared
// across concurrent Update calls.
package berpf

import (
	"fmt"
	"math"

	filter "github.com/marco-hrlic/go-bernoulli"
	"github.com/marco-hrlic/go-bernoulli/estimate"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config stores Bernoulli particle filter configuration. All fields are
// required; in particular there is no implicit default random source, so
// two filters never share generator state unless the caller makes them.
type Config struct {
	// Nsurv is the surviving-particle count kept after resampling
	Nsurv int
	// Nbirth is the number of newborn particles drawn each step
	Nbirth int
	// ProbBirth is the prior probability of target birth per step
	ProbBirth float64
	// ProbSurv is the prior probability of target survival per step
	ProbSurv float64
	// Likelihood scores particles against measurements
	Likelihood filter.Likelihood
	// BirthModel hypothesizes newborn particles
	BirthModel filter.BirthModel
	// MotionModel propagates particles through the system dynamics
	MotionModel filter.MotionModel
	// Src is the source of randomness for resampling and birth draws
	Src rand.Source
}

// Diagnostics holds the effective-sample-size measures of one filter
// state. They are informational only: they are computed after the
// resampling decision is already fixed and never feed back into it.
// All fields are NaN on a freshly constructed filter.
type Diagnostics struct {
	// NEff is the ESS of the full joint posterior weight vector
	NEff float64
	// NEffSurv is the raw ESS of the surviving-subset weights
	NEffSurv float64
	// NEffSurvNorm is the ESS of the surviving subset renormalized to 1
	NEffSurvNorm float64
	// NEffBorn is the raw ESS of the newborn-subset weights
	NEffBorn float64
	// NEffBornNorm is the ESS of the newborn subset renormalized to 1
	NEffBornNorm float64
}

// Filter is one state of a Bernoulli particle filter.
type Filter struct {
	nsurv     int
	nbirth    int
	probBirth float64
	probSurv  float64

	likelihood filter.Likelihood
	birth      filter.BirthModel
	motion     filter.MotionModel
	rng        *rand.Rand

	// dim is the state dimension, fixed by the initial birth draw
	dim int

	// prob is the posterior probability that the target exists
	prob float64

	// particlesSurv is nil until the first Update
	particlesSurv *mat.Dense
	weightsSurv   []float64

	particlesBorn *mat.Dense
	weightsBorn   []float64

	diag Diagnostics
}

// New creates a new Bernoulli particle filter from the given config and
// returns it. The initial state has existence probability 0, an empty
// surviving population and Nbirth newborn particles drawn from the birth
// model with no measurements, each carrying weight 1/Nbirth.
// It returns error if the config is invalid or the birth draw fails.
func New(c *Config) (*Filter, error) {
	if c.Nsurv <= 0 {
		return nil, fmt.Errorf("invalid surviving particle count: %d", c.Nsurv)
	}
	if c.Nbirth <= 0 {
		return nil, fmt.Errorf("invalid newborn particle count: %d", c.Nbirth)
	}
	if c.ProbBirth < 0 || c.ProbBirth > 1 {
		return nil, fmt.Errorf("invalid birth probability: %v", c.ProbBirth)
	}
	if c.ProbSurv < 0 || c.ProbSurv > 1 {
		return nil, fmt.Errorf("invalid survival probability: %v", c.ProbSurv)
	}
	if c.Likelihood == nil {
		return nil, fmt.Errorf("missing likelihood function")
	}
	if c.BirthModel == nil {
		return nil, fmt.Errorf("missing birth model")
	}
	if c.MotionModel == nil {
		return nil, fmt.Errorf("missing motion model")
	}
	if c.Src == nil {
		return nil, fmt.Errorf("missing random source")
	}

	rng := rand.New(c.Src)

	born, err := c.BirthModel.Sample(nil, c.Nbirth, rng)
	if err != nil {
		return nil, fmt.Errorf("initial birth draw failed: %v", err)
	}
	rows, dim := born.Dims()
	if rows != c.Nbirth {
		return nil, fmt.Errorf("birth model returned %d particles, want %d", rows, c.Nbirth)
	}

	f := &Filter{
		nsurv:         c.Nsurv,
		nbirth:        c.Nbirth,
		probBirth:     c.ProbBirth,
		probSurv:      c.ProbSurv,
		likelihood:    c.Likelihood,
		birth:         c.BirthModel,
		motion:        c.MotionModel,
		rng:           rng,
		dim:           dim,
		prob:          0,
		particlesBorn: born,
		weightsBorn:   uniformWeights(c.Nbirth),
		diag: Diagnostics{
			NEff:         math.NaN(),
			NEffSurv:     math.NaN(),
			NEffSurvNorm: math.NaN(),
			NEffBorn:     math.NaN(),
			NEffBornNorm: math.NaN(),
		},
	}

	return f, nil
}

// Update runs one recursive step of the filter given the measurements of
// the current time step, one measurement per row, and returns the new
// filter state. measurements may be nil, which represents a missed
// detection step. The receiver is never modified: on error no new state
// is produced, and on success the returned state is fully consistent.
func (f *Filter) Update(measurements *mat.Dense) (*Filter, error) {
	nSurv := len(f.weightsSurv)
	nTot := nSurv + len(f.weightsBorn)

	// 1. joint population: surviving particles followed by newborns
	joint := mat.NewDense(nTot, f.dim, nil)
	for i := 0; i < nSurv; i++ {
		for j := 0; j < f.dim; j++ {
			joint.Set(i, j, f.particlesSurv.At(i, j))
		}
	}
	for i := range f.weightsBorn {
		for j := 0; j < f.dim; j++ {
			joint.Set(nSurv+i, j, f.particlesBorn.At(i, j))
		}
	}

	propagated, err := f.motion.Propagate(joint)
	if err != nil {
		return nil, fmt.Errorf("motion model failed: %v", err)
	}
	if r, c := propagated.Dims(); r != nTot || c != f.dim {
		return nil, fmt.Errorf("motion model changed dimensions: got %dx%d, want %dx%d", r, c, nTot, f.dim)
	}

	// 2. predicted existence probability
	q := f.prob
	probPred := f.probBirth*(1-q) + f.probSurv*q
	if probPred == 0 {
		return nil, fmt.Errorf("predicted existence probability is zero")
	}

	// 3. predicted joint weights: each population is scaled by the
	// probability of its hypothesis relative to the predicted existence
	// probability, then the concatenation is renormalized
	weightsPred := make([]float64, 0, nTot)
	for _, w := range f.weightsSurv {
		weightsPred = append(weightsPred, f.probSurv*q/probPred*w)
	}
	for _, w := range f.weightsBorn {
		weightsPred = append(weightsPred, f.probBirth*(1-q)/probPred*w)
	}
	floats.Scale(1/floats.Sum(weightsPred), weightsPred)

	// 4. measurement evidence
	logLt, logRatio, err := f.likelihood.Evaluate(propagated, measurements)
	if err != nil {
		return nil, fmt.Errorf("likelihood evaluation failed: %v", err)
	}
	if len(logLt) != nTot || len(logRatio) != nTot {
		return nil, fmt.Errorf("likelihood returned %d/%d values, want %d", len(logLt), len(logRatio), nTot)
	}
	for i := range logLt {
		if math.IsNaN(logLt[i]) || math.IsNaN(logRatio[i]) {
			return nil, fmt.Errorf("likelihood returned NaN for particle %d", i)
		}
	}

	// 5. existence update
	q = updateExistenceProb(weightsPred, logRatio, probPred)

	// 6. weight update; extra normalization guards against float drift
	w := weightUpdate(logLt, weightsPred)
	floats.Scale(1/floats.Sum(w), w)

	// 7. effective sample sizes of the joint weights and both subsets
	diag := Diagnostics{
		NEff:         nEff(w),
		NEffSurv:     math.NaN(),
		NEffSurvNorm: math.NaN(),
	}
	if nSurv > 0 {
		diag.NEffSurv = nEff(w[:nSurv])
		diag.NEffSurvNorm = nEffNormalized(w[:nSurv])
	}
	diag.NEffBorn = nEff(w[nSurv:])
	diag.NEffBornNorm = nEffNormalized(w[nSurv:])

	// 8. resample survivors from the full joint weight vector; the joint
	// draw preserves the relative proportions of the surviving and
	// newborn hypotheses
	indices := sysResample(w, f.nsurv, f.rng)
	particlesSurv := mat.NewDense(len(indices), f.dim, nil)
	for i, idx := range indices {
		for j := 0; j < f.dim; j++ {
			particlesSurv.Set(i, j, propagated.At(idx, j))
		}
	}

	// 9. fresh newborn hypotheses
	particlesBorn, err := f.birth.Sample(measurements, f.nbirth, f.rng)
	if err != nil {
		return nil, fmt.Errorf("birth model failed: %v", err)
	}
	if r, c := particlesBorn.Dims(); r != f.nbirth || c != f.dim {
		return nil, fmt.Errorf("birth model returned %dx%d particles, want %dx%d", r, c, f.nbirth, f.dim)
	}

	// 10. assemble the new state; resampled weights are reset to uniform
	return f.override(func(nf *Filter) {
		nf.prob = q
		nf.particlesSurv = particlesSurv
		nf.weightsSurv = uniformWeights(len(indices))
		nf.particlesBorn = particlesBorn
		nf.weightsBorn = uniformWeights(f.nbirth)
		nf.diag = diag
	}), nil
}

// override returns a copy of f with the fields set by apply replaced and
// every other field, including the random source, carried over.
func (f *Filter) override(apply func(*Filter)) *Filter {
	nf := *f
	apply(&nf)
	return &nf
}

// Prob returns the posterior probability that the target exists.
func (f *Filter) Prob() float64 {
	return f.prob
}

// Diagnostics returns the effective-sample-size diagnostics of the state.
func (f *Filter) Diagnostics() Diagnostics {
	return f.diag
}

// SurvParticles returns a copy of the surviving particle population, one
// particle per row. It returns nil before the first Update.
func (f *Filter) SurvParticles() *mat.Dense {
	if f.particlesSurv == nil {
		return nil
	}
	out := &mat.Dense{}
	out.Clone(f.particlesSurv)
	return out
}

// SurvWeights returns a copy of the surviving population weights.
func (f *Filter) SurvWeights() []float64 {
	return append([]float64(nil), f.weightsSurv...)
}

// BornParticles returns a copy of the newborn particle population, one
// particle per row.
func (f *Filter) BornParticles() *mat.Dense {
	out := &mat.Dense{}
	out.Clone(f.particlesBorn)
	return out
}

// BornWeights returns a copy of the newborn population weights.
func (f *Filter) BornWeights() []float64 {
	return append([]float64(nil), f.weightsBorn...)
}

// Mean returns the posterior mean: the weighted average of the surviving
// particles, or of the newborn particles if no survivors exist yet.
// It returns error if both populations are empty, which is unreachable
// under a valid configuration since Nbirth > 0.
func (f *Filter) Mean() (mat.Vector, error) {
	switch {
	case len(f.weightsSurv) > 0:
		return weightedMean(f.particlesSurv, f.weightsSurv), nil
	case len(f.weightsBorn) > 0:
		return weightedMean(f.particlesBorn, f.weightsBorn), nil
	}
	return nil, fmt.Errorf("no particles to estimate from")
}

// Cov returns the posterior covariance, computed from the surviving
// population as the weighted sum of outer products of the deviations
// from the posterior mean.
func (f *Filter) Cov() (mat.Symmetric, error) {
	mean, err := f.Mean()
	if err != nil {
		return nil, err
	}

	d := mean.Len()
	cov := mat.NewSymDense(d, nil)
	for i, w := range f.weightsSurv {
		for r := 0; r < d; r++ {
			dr := f.particlesSurv.At(i, r) - mean.AtVec(r)
			for c := r; c < d; c++ {
				dc := f.particlesSurv.At(i, c) - mean.AtVec(c)
				cov.SetSym(r, c, cov.At(r, c)+w*dr*dc)
			}
		}
	}

	return cov, nil
}

// MAP returns the maximum a posteriori estimate: the surviving particle
// with the largest weight. It returns error if the surviving population
// is empty, i.e. before the first Update.
func (f *Filter) MAP() (mat.Vector, error) {
	if len(f.weightsSurv) == 0 {
		return nil, fmt.Errorf("no surviving particles")
	}

	best := 0
	for i, w := range f.weightsSurv {
		if w > f.weightsSurv[best] {
			best = i
		}
	}

	out := mat.NewVecDense(f.dim, nil)
	for j := 0; j < f.dim; j++ {
		out.SetVec(j, f.particlesSurv.At(best, j))
	}
	return out, nil
}

// Estimate packages the posterior mean and covariance as a
// filter.Estimate for downstream consumers.
func (f *Filter) Estimate() (filter.Estimate, error) {
	mean, err := f.Mean()
	if err != nil {
		return nil, err
	}
	cov, err := f.Cov()
	if err != nil {
		return nil, err
	}
	return estimate.NewBaseWithCov(mean, cov)
}

func weightedMean(particles *mat.Dense, weights []float64) mat.Vector {
	_, d := particles.Dims()
	m := mat.NewVecDense(d, nil)
	for i, w := range weights {
		for j := 0; j < d; j++ {
			m.SetVec(j, m.AtVec(j)+w*particles.At(i, j))
		}
	}
	return m
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
