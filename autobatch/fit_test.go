package autobatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolyfit1(t *testing.T) {
	tests := []struct {
		name          string
		xs, ys        []float64
		wantSlope     float64
		wantIntercept float64
	}{
		{
			name:          "exact line",
			xs:            []float64{1, 2, 4},
			ys:            []float64{1.5, 2.0, 3.0},
			wantSlope:     0.5,
			wantIntercept: 1.0,
		},
		{
			name:          "two points",
			xs:            []float64{2, 8},
			ys:            []float64{3, 6},
			wantSlope:     0.5,
			wantIntercept: 2.0,
		},
		{
			name: "noisy points",
			// least squares through (1,1) (2,2.2) (3,2.8) (4,4.1)
			xs:            []float64{1, 2, 3, 4},
			ys:            []float64{1, 2.2, 2.8, 4.1},
			wantSlope:     0.99,
			wantIntercept: 0.05,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit, err := Polyfit1(tt.xs, tt.ys)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantSlope, fit.Slope, 1e-9)
			assert.InDelta(t, tt.wantIntercept, fit.Intercept, 1e-9)
		})
	}
}

func TestPolyfit1Errors(t *testing.T) {
	_, err := Polyfit1([]float64{1}, []float64{2})
	assert.True(t, errors.Is(err, ErrInsufficientProbeData))

	_, err = Polyfit1(nil, nil)
	assert.True(t, errors.Is(err, ErrInsufficientProbeData))

	_, err = Polyfit1([]float64{4, 4, 4}, []float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrDegenerateFit))

	_, err = Polyfit1([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestFitPredictSolve(t *testing.T) {
	f := Fit{Slope: 0.5, Intercept: 1}
	assert.InDelta(t, 5.0, f.Predict(8), 1e-12)
	assert.InDelta(t, 8.0, f.Solve(5), 1e-12)
}
