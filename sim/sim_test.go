package sim

import (
	"math"
	"testing"

	"github.com/marco-hrlic/go-bernoulli/noise"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestInitCond(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 3.0})
	cov := mat.NewSymDense(2, []float64{0.25, 0, 0, 0.25})

	ic := NewInitCond(state, cov)

	// returned values are defensive copies
	s := ic.State()
	s.(*mat.VecDense).SetVec(0, 100)
	assert.Equal(1.0, ic.State().AtVec(0))

	c := ic.Cov()
	c.(*mat.SymDense).SetSym(0, 0, 100)
	assert.Equal(0.25, ic.Cov().At(0, 0))
}

func TestLinearMotion(t *testing.T) {
	assert := assert.New(t)

	// non-square transition matrix
	m, err := NewLinearMotion(mat.NewDense(2, 3, nil), nil)
	assert.Nil(m)
	assert.Error(err)

	// process noise dimension mismatch
	q, err := noise.NewZero(3)
	assert.NoError(err)
	m, err = NewLinearMotion(mat.NewDense(2, 2, []float64{1, 1, 0, 1}), q)
	assert.Nil(m)
	assert.Error(err)

	// noiseless identity dynamics leave particles unchanged
	eye := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	m, err = NewLinearMotion(eye, nil)
	assert.NotNil(m)
	assert.NoError(err)

	particles := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	out, err := m.Propagate(particles)
	assert.NoError(err)
	assert.True(mat.Equal(particles, out))

	// particle dimension mismatch
	out, err = m.Propagate(mat.NewDense(3, 4, nil))
	assert.Nil(out)
	assert.Error(err)

	// constant velocity dynamics move positions by velocities
	cv := mat.NewDense(2, 2, []float64{1, 1, 0, 1})
	m, err = NewLinearMotion(cv, nil)
	assert.NoError(err)

	out, err = m.Propagate(mat.NewDense(1, 2, []float64{2, 3}))
	assert.NoError(err)
	assert.InDelta(5.0, out.At(0, 0), 1e-12)
	assert.InDelta(3.0, out.At(0, 1), 1e-12)
}

func TestGaussianBirth(t *testing.T) {
	assert := assert.New(t)

	// missing prior
	b, err := NewGaussianBirth(nil)
	assert.Nil(b)
	assert.Error(err)

	prior := NewInitCond(
		mat.NewVecDense(2, []float64{10, 0}),
		mat.NewSymDense(2, []float64{4, 0, 0, 1}),
	)
	b, err = NewGaussianBirth(prior)
	assert.NotNil(b)
	assert.NoError(err)

	rng := rand.New(rand.NewSource(2))

	// invalid count
	out, err := b.Sample(nil, 0, rng)
	assert.Nil(out)
	assert.Error(err)

	// exactly count rows of the prior dimension
	out, err = b.Sample(nil, 500, rng)
	assert.NoError(err)
	r, c := out.Dims()
	assert.Equal(500, r)
	assert.Equal(2, c)

	// without measurements newborns center on the prior mean
	var sum float64
	for i := 0; i < 500; i++ {
		sum += out.At(i, 0)
	}
	assert.InDelta(10.0, sum/500, 0.5)

	// with measurements newborns center on measurement rows
	z := mat.NewDense(1, 1, []float64{-20})
	out, err = b.Sample(z, 500, rng)
	assert.NoError(err)
	sum = 0
	for i := 0; i < 500; i++ {
		sum += out.At(i, 0)
	}
	assert.InDelta(-20.0, sum/500, 0.5)
}

func TestGaussianLikelihood(t *testing.T) {
	assert := assert.New(t)

	c := mat.NewDense(1, 2, []float64{1, 0})
	r := mat.NewSymDense(1, []float64{1})

	// invalid detection probability
	l, err := NewGaussianLikelihood(c, r, 1.5, 0.01)
	assert.Nil(l)
	assert.Error(err)

	// invalid clutter density
	l, err = NewGaussianLikelihood(c, r, 0.9, 0)
	assert.Nil(l)
	assert.Error(err)

	// measurement covariance dimension mismatch
	l, err = NewGaussianLikelihood(c, mat.NewSymDense(2, nil), 0.9, 0.01)
	assert.Nil(l)
	assert.Error(err)

	l, err = NewGaussianLikelihood(c, r, 0.9, 0.01)
	assert.NotNil(l)
	assert.NoError(err)

	particles := mat.NewDense(3, 2, []float64{0, 0, 5, 0, 50, 0})

	// missing measurements mean constant missed-detection evidence
	logLt, logRatio, err := l.Evaluate(particles, nil)
	assert.NoError(err)
	assert.Len(logLt, 3)
	assert.Len(logRatio, 3)
	for i := range logLt {
		assert.InDelta(math.Log(0.1), logLt[i], 1e-12)
		assert.Equal(logLt[i], logRatio[i])
	}

	// a measurement at a particle position scores it above the others
	z := mat.NewDense(1, 1, []float64{5})
	logLt, logRatio, err = l.Evaluate(particles, z)
	assert.NoError(err)
	assert.Len(logLt, 3)
	assert.True(logLt[1] > logLt[0])
	assert.True(logLt[1] > logLt[2])
	for i := range logLt {
		assert.False(math.IsNaN(logLt[i]))
		assert.False(math.IsNaN(logRatio[i]))
	}

	// measurement dimension mismatch
	logLt, logRatio, err = l.Evaluate(particles, mat.NewDense(1, 2, nil))
	assert.Nil(logLt)
	assert.Nil(logRatio)
	assert.Error(err)

	// particle dimension mismatch
	logLt, logRatio, err = l.Evaluate(mat.NewDense(1, 3, nil), z)
	assert.Nil(logLt)
	assert.Nil(logRatio)
	assert.Error(err)

	// certain detection makes a missed detection -Inf evidence, not NaN
	l, err = NewGaussianLikelihood(c, r, 1.0, 0.01)
	assert.NoError(err)
	logLt, _, err = l.Evaluate(particles, nil)
	assert.NoError(err)
	for i := range logLt {
		assert.True(math.IsInf(logLt[i], -1))
	}
}

func TestNew2DPlot(t *testing.T) {
	assert := assert.New(t)

	data := mat.NewDense(5, 2, nil)
	for i := 0; i < 5; i++ {
		data.Set(i, 0, float64(i))
		data.Set(i, 1, float64(i*i))
	}

	p, err := New2DPlot(data, data, data)
	assert.NotNil(p)
	assert.NoError(err)

	// plot data must have exactly two columns
	p, err = New2DPlot(mat.NewDense(5, 3, nil), data, data)
	assert.Nil(p)
	assert.Error(err)
}
