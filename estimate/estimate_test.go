package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewBase(t *testing.T) {
	assert := assert.New(t)

	b, err := NewBase(nil)
	assert.Nil(b)
	assert.Error(err)

	val := mat.NewVecDense(2, []float64{1, 2})
	b, err = NewBase(val)
	assert.NotNil(b)
	assert.NoError(err)

	assert.True(mat.Equal(val, b.Val()))
	assert.Equal(2, b.Cov().Symmetric())

	// returned state is a defensive copy
	v := b.Val()
	v.(*mat.VecDense).SetVec(0, 100)
	assert.Equal(1.0, b.Val().AtVec(0))
}

func TestNewBaseWithCov(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1, 2})
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	// covariance dimension mismatch
	b, err := NewBaseWithCov(val, mat.NewSymDense(3, nil))
	assert.Nil(b)
	assert.Error(err)

	b, err = NewBaseWithCov(val, cov)
	assert.NotNil(b)
	assert.NoError(err)

	assert.True(mat.Equal(val, b.Val()))

	// returned covariance is a defensive copy
	c := b.Cov()
	c.(*mat.SymDense).SetSym(0, 0, 100)
	assert.Equal(1.0, b.Cov().At(0, 0))
}
