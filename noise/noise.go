// Package noise provides noise sources for simulation models and tests.
package noise

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is multivariate Gaussian noise.
type Gaussian struct {
	dist *distmv.Normal
	cov  *mat.SymDense
}

// NewGaussian creates new Gaussian noise with the given mean, covariance
// and random source and returns it. The source is required: sharing one
// implicit default generator across unrelated noises makes runs
// irreproducible. It returns error if the covariance is not positive
// definite or does not match the mean dimension.
func NewGaussian(mean []float64, cov mat.Symmetric, src rand.Source) (*Gaussian, error) {
	if cov == nil || cov.Symmetric() != len(mean) {
		return nil, fmt.Errorf("invalid noise covariance: %v", cov)
	}
	if src == nil {
		return nil, fmt.Errorf("missing random source")
	}

	dist, ok := distmv.NewNormal(mean, cov, src)
	if !ok {
		return nil, fmt.Errorf("noise covariance is not positive definite")
	}

	c := mat.NewSymDense(cov.Symmetric(), nil)
	c.CopySym(cov)

	return &Gaussian{
		dist: dist,
		cov:  c,
	}, nil
}

// Sample returns a sample of the noise.
func (g *Gaussian) Sample() mat.Vector {
	x := g.dist.Rand(nil)
	return mat.NewVecDense(len(x), x)
}

// Cov returns the noise covariance.
func (g *Gaussian) Cov() mat.Symmetric {
	c := mat.NewSymDense(g.cov.Symmetric(), nil)
	c.CopySym(g.cov)

	return c
}

// Zero is zero noise: every sample is the zero vector.
type Zero struct {
	dim int
}

// NewZero creates new zero noise of the given dimension and returns it.
func NewZero(dim int) (*Zero, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", dim)
	}

	return &Zero{dim: dim}, nil
}

// Sample returns the zero vector.
func (z *Zero) Sample() mat.Vector {
	return mat.NewVecDense(z.dim, nil)
}

// Cov returns the zero covariance matrix.
func (z *Zero) Cov() mat.Symmetric {
	return mat.NewSymDense(z.dim, nil)
}
