package autobatch

import (
	"fmt"
	"math"
)

// Fit is a first-degree polynomial y = Slope*x + Intercept.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Predict evaluates the line at x.
func (f Fit) Predict(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// Solve returns the x at which the line reaches y.
func (f Fit) Solve(y float64) float64 {
	return (y - f.Intercept) / f.Slope
}

// Polyfit1 fits a line through the points by least squares.
func Polyfit1(xs, ys []float64) (Fit, error) {
	if len(xs) != len(ys) {
		return Fit{}, fmt.Errorf("polyfit: %d x values for %d y values", len(xs), len(ys))
	}
	n := float64(len(xs))
	if len(xs) < 2 {
		return Fit{}, ErrInsufficientProbeData
	}

	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - mx
		sxx += dx * dx
		sxy += dx * (ys[i] - my)
	}
	if sxx == 0 {
		return Fit{}, fmt.Errorf("%w: all samples share one batch size", ErrDegenerateFit)
	}

	slope := sxy / sxx
	fit := Fit{Slope: slope, Intercept: my - slope*mx}
	if !finite(fit.Slope) || !finite(fit.Intercept) {
		return Fit{}, fmt.Errorf("%w: non-finite coefficients", ErrDegenerateFit)
	}
	return fit, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
