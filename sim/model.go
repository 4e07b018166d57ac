// Package sim provides ready-made filter collaborators and plotting
// helpers for simulating single-target scenarios: linear motion, Gaussian
// birth around measurements and a detection-probability likelihood with
// uniform clutter.
package sim

import (
	"fmt"
	"math"

	filter "github.com/marco-hrlic/go-bernoulli"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// LinearMotion propagates particles through linear dynamics
// x' = A*x + w, with optional additive process noise w.
// It implements filter.MotionModel.
type LinearMotion struct {
	a   *mat.Dense
	q   filter.Noise
	dim int
}

// NewLinearMotion creates new LinearMotion with the given state
// transition matrix and process noise and returns it. q may be nil for
// noiseless dynamics. It returns error if a is not square or the noise
// dimension does not match it.
func NewLinearMotion(a *mat.Dense, q filter.Noise) (*LinearMotion, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("invalid state transition matrix: %dx%d", r, c)
	}
	if q != nil && q.Cov().Symmetric() != r {
		return nil, fmt.Errorf("process noise dimension mismatch: %d, want %d", q.Cov().Symmetric(), r)
	}

	m := &mat.Dense{}
	m.Clone(a)

	return &LinearMotion{
		a:   m,
		q:   q,
		dim: r,
	}, nil
}

// Propagate propagates every particle row to the next step.
func (m *LinearMotion) Propagate(particles *mat.Dense) (*mat.Dense, error) {
	n, d := particles.Dims()
	if d != m.dim {
		return nil, fmt.Errorf("particle dimension mismatch: %d, want %d", d, m.dim)
	}

	out := mat.NewDense(n, d, nil)
	out.Mul(particles, m.a.T())

	if m.q != nil {
		for i := 0; i < n; i++ {
			w := m.q.Sample()
			for j := 0; j < d; j++ {
				out.Set(i, j, out.At(i, j)+w.AtVec(j))
			}
		}
	}

	return out, nil
}

// GaussianBirth hypothesizes newborn particles. With measurements
// present, each newborn is centered on a measurement row picked uniformly
// at random, with the measured values filling the leading state
// components and the prior filling the rest. Without measurements,
// newborns are centered on the prior state. Either way each component j
// is spread with standard deviation sqrt(prior.Cov()[j,j]).
// It implements filter.BirthModel.
type GaussianBirth struct {
	mean []float64
	std  []float64
}

// NewGaussianBirth creates new GaussianBirth around the given prior
// initial condition and returns it.
func NewGaussianBirth(prior *InitCond) (*GaussianBirth, error) {
	if prior == nil {
		return nil, fmt.Errorf("missing birth prior")
	}

	state := prior.State()
	cov := prior.Cov()

	mean := make([]float64, state.Len())
	std := make([]float64, state.Len())
	for j := range mean {
		mean[j] = state.AtVec(j)
		std[j] = math.Sqrt(cov.At(j, j))
	}

	return &GaussianBirth{
		mean: mean,
		std:  std,
	}, nil
}

// Sample returns count newborn particles, one per row.
func (b *GaussianBirth) Sample(measurements *mat.Dense, count int, rng *rand.Rand) (*mat.Dense, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid birth count: %d", count)
	}

	dim := len(b.mean)
	out := mat.NewDense(count, dim, nil)

	var nMeas, dMeas int
	if measurements != nil {
		nMeas, dMeas = measurements.Dims()
		if dMeas > dim {
			dMeas = dim
		}
	}

	for i := 0; i < count; i++ {
		center := b.mean
		if nMeas > 0 {
			z := measurements.RawRowView(rng.Intn(nMeas))
			center = make([]float64, dim)
			copy(center, b.mean)
			copy(center[:dMeas], z[:dMeas])
		}
		for j := 0; j < dim; j++ {
			out.Set(i, j, center[j]+b.std[j]*rng.NormFloat64())
		}
	}

	return out, nil
}

// GaussianLikelihood scores particles against measurements for a linear
// observation z = C*x + v with Gaussian measurement noise v, detection
// probability pd and uniform clutter of spatial density kappa. For each
// particle it returns
//
//	log( (1-pd) + pd * sum_j N(z_j; C*x, R)/kappa )
//
// computed stably via log-sum-exp. The same value serves as both the
// state log-likelihood and the existence log-ratio: under this model the
// evidence that the target is at x and the evidence that it exists
// coincide. An absent measurement set is interpreted as a missed
// detection, i.e. constant log(1-pd) evidence against existence.
// It implements filter.Likelihood.
type GaussianLikelihood struct {
	c       *mat.Dense
	noise   *distmv.Normal
	dimObs  int
	dimStat int

	logDetect float64 // log(pd)
	logMiss   float64 // log(1-pd)
	logKappa  float64 // log(kappa)
}

// NewGaussianLikelihood creates new GaussianLikelihood with observation
// matrix c, measurement noise covariance r, detection probability
// detectProb and clutter density kappa, and returns it.
func NewGaussianLikelihood(c *mat.Dense, r mat.Symmetric, detectProb, kappa float64) (*GaussianLikelihood, error) {
	dz, dx := c.Dims()
	if r == nil || r.Symmetric() != dz {
		return nil, fmt.Errorf("invalid measurement noise covariance: %v", r)
	}
	if detectProb < 0 || detectProb > 1 {
		return nil, fmt.Errorf("invalid detection probability: %v", detectProb)
	}
	if kappa <= 0 {
		return nil, fmt.Errorf("invalid clutter density: %v", kappa)
	}

	dist, ok := distmv.NewNormal(make([]float64, dz), r, nil)
	if !ok {
		return nil, fmt.Errorf("measurement noise covariance is not positive definite")
	}

	m := &mat.Dense{}
	m.Clone(c)

	return &GaussianLikelihood{
		c:         m,
		noise:     dist,
		dimObs:    dz,
		dimStat:   dx,
		logDetect: math.Log(detectProb),
		logMiss:   math.Log(1 - detectProb),
		logKappa:  math.Log(kappa),
	}, nil
}

// Evaluate returns the per-particle state log-likelihood and existence
// log-ratio vectors.
func (l *GaussianLikelihood) Evaluate(particles, measurements *mat.Dense) ([]float64, []float64, error) {
	n, dx := particles.Dims()
	if dx != l.dimStat {
		return nil, nil, fmt.Errorf("particle dimension mismatch: %d, want %d", dx, l.dimStat)
	}

	logLt := make([]float64, n)
	logRatio := make([]float64, n)

	if measurements == nil {
		for i := range logLt {
			logLt[i] = l.logMiss
			logRatio[i] = l.logMiss
		}
		return logLt, logRatio, nil
	}

	m, dz := measurements.Dims()
	if dz != l.dimObs {
		return nil, nil, fmt.Errorf("measurement dimension mismatch: %d, want %d", dz, l.dimObs)
	}

	pred := mat.NewDense(n, l.dimObs, nil)
	pred.Mul(particles, l.c.T())

	diff := make([]float64, l.dimObs)
	terms := make([]float64, 0, m+1)
	for i := 0; i < n; i++ {
		terms = terms[:0]
		terms = append(terms, l.logMiss)
		for j := 0; j < m; j++ {
			for k := 0; k < l.dimObs; k++ {
				diff[k] = measurements.At(j, k) - pred.At(i, k)
			}
			terms = append(terms, l.logDetect+l.noise.LogProb(diff)-l.logKappa)
		}
		v := floats.LogSumExp(terms)
		logLt[i] = v
		logRatio[i] = v
	}

	return logLt, logRatio, nil
}
