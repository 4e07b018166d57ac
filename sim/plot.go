package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// New2DPlot creates new plot of the simulation output from the three
// supplied data matrices: truth contains the ground truth output, meas
// the measurement output and est the filter estimate output. Each matrix
// must have two columns: X values in the first column and Y values in the
// second. It returns error if the plot fails to be created.
func New2DPlot(truth, meas, est *mat.Dense) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create plot: %v", err)
	}

	p.Title.Text = "Bernoulli filter simulation"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "output"
	p.Add(plotter.NewGrid())

	truthXY, err := newXY(truth)
	if err != nil {
		return nil, err
	}
	measXY, err := newXY(meas)
	if err != nil {
		return nil, err
	}
	estXY, err := newXY(est)
	if err != nil {
		return nil, err
	}

	if err := plotutil.AddLinePoints(p,
		"truth", truthXY,
		"measurement", measXY,
		"estimate", estXY,
	); err != nil {
		return nil, fmt.Errorf("failed to add plot lines: %v", err)
	}

	return p, nil
}

func newXY(m *mat.Dense) (plotter.XYs, error) {
	r, c := m.Dims()
	if c != 2 {
		return nil, fmt.Errorf("invalid plot data dimensions: %dx%d", r, c)
	}

	xys := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		xys[i].X = m.At(i, 0)
		xys[i].Y = m.At(i, 1)
	}

	return xys, nil
}
