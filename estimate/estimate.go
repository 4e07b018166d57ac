// Package estimate provides basic filter estimate types.
package estimate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Base is a basic filter estimate: a state vector and its covariance.
type Base struct {
	val *mat.VecDense
	cov *mat.SymDense
}

// NewBase returns a new base estimate with the given state and a zero
// covariance. It returns error if the state is empty.
func NewBase(val mat.Vector) (*Base, error) {
	if val == nil || val.Len() == 0 {
		return nil, fmt.Errorf("invalid estimate state: %v", val)
	}

	v := &mat.VecDense{}
	v.CloneVec(val)

	return &Base{
		val: v,
		cov: mat.NewSymDense(val.Len(), nil),
	}, nil
}

// NewBaseWithCov returns a new base estimate with the given state and
// covariance. It returns error if the state is empty or the covariance
// dimension does not match the state.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	if val == nil || val.Len() == 0 {
		return nil, fmt.Errorf("invalid estimate state: %v", val)
	}
	if cov == nil || cov.Symmetric() != val.Len() {
		return nil, fmt.Errorf("invalid estimate covariance: %v", cov)
	}

	v := &mat.VecDense{}
	v.CloneVec(val)

	c := mat.NewSymDense(cov.Symmetric(), nil)
	c.CopySym(cov)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// Val returns the estimated state.
func (b *Base) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneVec(b.val)

	return v
}

// Cov returns the covariance of the estimate.
func (b *Base) Cov() mat.Symmetric {
	c := mat.NewSymDense(b.cov.Symmetric(), nil)
	c.CopySym(b.cov)

	return c
}
