package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerLawFitterExactTwoPoints(t *testing.T) {
	p, err := NewPowerLawFitter(0).Fit([]float64{1, 2}, []float64{0.5, 0.4})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.A, 1e-6)
	assert.InDelta(t, math.Log2(0.8), p.B, 1e-6)
}

func TestPowerLawFitterRecoversCurve(t *testing.T) {
	var x, y []float64
	for d := 1; d <= 30; d++ {
		x = append(x, float64(d))
		y = append(y, PowerLaw(float64(d), 0.6, -0.45))
	}
	p, err := NewPowerLawFitter(DefaultMaxEvaluations).Fit(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, p.A, 1e-6)
	assert.InDelta(t, -0.45, p.B, 1e-6)
}

func TestPowerLawFitterHandlesZeroTargets(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{0.6, 0.44, 0.37, 0.32, 0.29, 0.27, 0.25, 0}
	p, err := NewPowerLawFitter(DefaultMaxEvaluations).Fit(x, y)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(p.A) || math.IsInf(p.A, 0))
	assert.False(t, math.IsNaN(p.B) || math.IsInf(p.B, 0))
	assert.Less(t, p.B, 0.0)
}

func TestPowerLawFitterAllZero(t *testing.T) {
	p, err := NewPowerLawFitter(0).Fit([]float64{1, 2, 3}, []float64{0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, PowerLaw(2, p.A, p.B), 1e-6)
}

func TestPowerLawFitterAcceptsIllConditionedSteps(t *testing.T) {
	p, err := NewPowerLawFitter(0).Fit([]float64{1, 2}, []float64{0, 0})
	require.NoError(t, err)
	assert.Less(t, math.Abs(p.A), 1e-9)
	assert.False(t, math.IsNaN(p.B) || math.IsInf(p.B, 0))
}

func TestPowerLawFitterErrors(t *testing.T) {
	f := NewPowerLawFitter(0)

	_, err := f.Fit([]float64{1}, []float64{0.5})
	assert.ErrorIs(t, err, ErrFitFailed)

	_, err = f.Fit([]float64{1, 2}, []float64{0.5})
	assert.ErrorIs(t, err, ErrFitFailed)

	_, err = f.Fit([]float64{1, 2}, []float64{0.5, math.NaN()})
	assert.ErrorIs(t, err, ErrFitFailed)

	_, err = f.Fit([]float64{0, 2}, []float64{0.5, 0.4})
	assert.ErrorIs(t, err, ErrFitFailed)
}

func TestPowerLawFitterEvaluationBudget(t *testing.T) {
	f := &PowerLawFitter{MaxEvaluations: 1}
	_, err := f.Fit([]float64{1, 2, 3}, []float64{0.5, 0.4, 0})
	assert.ErrorIs(t, err, ErrFitFailed)
}
