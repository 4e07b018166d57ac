package filter

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// MotionModel propagates particles through the system dynamics.
type MotionModel interface {
	// Propagate propagates every particle (one per row) to the next step.
	// It must preserve both the particle count and the state dimension.
	Propagate(particles *mat.Dense) (*mat.Dense, error)
}

// BirthModel hypothesizes new target particles.
type BirthModel interface {
	// Sample returns exactly count new particles (one per row).
	// measurements may be nil when no measurements are available.
	Sample(measurements *mat.Dense, count int, rng *rand.Rand) (*mat.Dense, error)
}

// Likelihood evaluates measurement evidence for each particle.
type Likelihood interface {
	// Evaluate returns two vectors, each with one entry per particle row:
	// logLt is the log-likelihood used for the state weight update and
	// logRatio is the log-likelihood ratio used for the existence update.
	// Entries may be -Inf but never NaN. measurements may be nil, which
	// represents a missed detection step.
	Evaluate(particles *mat.Dense, measurements *mat.Dense) (logLt, logRatio []float64, err error)
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimated system state
	Val() mat.Vector
	// Cov returns state estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Cov returns noise covariance matrix
	Cov() mat.Symmetric
}

// MotionModelFunc adapts a plain function to MotionModel.
type MotionModelFunc func(particles *mat.Dense) (*mat.Dense, error)

// Propagate calls f.
func (f MotionModelFunc) Propagate(particles *mat.Dense) (*mat.Dense, error) {
	return f(particles)
}

// BirthModelFunc adapts a plain function to BirthModel.
type BirthModelFunc func(measurements *mat.Dense, count int, rng *rand.Rand) (*mat.Dense, error)

// Sample calls f.
func (f BirthModelFunc) Sample(measurements *mat.Dense, count int, rng *rand.Rand) (*mat.Dense, error) {
	return f(measurements, count, rng)
}

// LikelihoodFunc adapts a plain function to Likelihood.
type LikelihoodFunc func(particles, measurements *mat.Dense) (logLt, logRatio []float64, err error)

// Evaluate calls f.
func (f LikelihoodFunc) Evaluate(particles, measurements *mat.Dense) ([]float64, []float64, error) {
	return f(particles, measurements)
}
