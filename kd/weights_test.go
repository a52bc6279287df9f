package kd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestClampAnneal_NoBound(t *testing.T) {
	got := ClampAnneal(0.5, 0.9, nil, nil)
	assert.InDelta(t, 0.45, got, 1e-12)
}

func TestClampAnneal_MaxBound(t *testing.T) {
	// growing coefficient capped from above
	got := ClampAnneal(0.0001, 2, fptr(0), nil)
	assert.Equal(t, 0.0, got)
}

func TestClampAnneal_MinBound(t *testing.T) {
	// decaying coefficient held from below
	got := ClampAnneal(0.99, 0.95, nil, fptr(0.99))
	assert.Equal(t, 0.99, got)
}

func TestWeightScheduler_AlphaReachesFixedPointInOneStep(t *testing.T) {
	ws := NewWeightScheduler(WeightSchedulerConfig{
		Alpha: CoefficientConfig{Value: 0.0001, AnnealRate: 2, Max: fptr(0)},
		Beta:  CoefficientConfig{Value: 1, AnnealRate: 1},
		Gamma: CoefficientConfig{Value: 1, AnnealRate: 1},
	})

	w := ws.Step(1)
	assert.Equal(t, 0.0, w.Alpha)
	for epoch := 2; epoch <= 10; epoch++ {
		w = ws.Step(epoch)
		assert.Equal(t, 0.0, w.Alpha, "epoch %d", epoch)
	}
}

func TestWeightScheduler_BetaFrozenByMinBound(t *testing.T) {
	// min bound above the decaying candidate holds beta at its initial
	// value on every step: the coefficient never moves
	ws := NewWeightScheduler(WeightSchedulerConfig{
		Alpha: CoefficientConfig{Value: 1, AnnealRate: 1},
		Beta:  CoefficientConfig{Value: 0.99, AnnealRate: 0.95, Min: fptr(0.99)},
		Gamma: CoefficientConfig{Value: 1, AnnealRate: 1},
	})

	for epoch := 1; epoch <= 5; epoch++ {
		w := ws.Step(epoch)
		assert.Equal(t, 0.99, w.Beta, "epoch %d", epoch)
	}
}

func TestWeightScheduler_StatePersistsAcrossSteps(t *testing.T) {
	ws := NewWeightScheduler(WeightSchedulerConfig{
		Alpha: CoefficientConfig{Value: 1, AnnealRate: 0.5},
		Beta:  CoefficientConfig{Value: 2, AnnealRate: 2, Max: fptr(16)},
		Gamma: CoefficientConfig{Value: 1, AnnealRate: 1},
	})

	w := ws.Step(1)
	assert.Equal(t, 0.5, w.Alpha)
	assert.Equal(t, 4.0, w.Beta)

	w = ws.Step(2)
	assert.Equal(t, 0.25, w.Alpha)
	assert.Equal(t, 8.0, w.Beta)

	w = ws.Step(3)
	assert.Equal(t, 0.125, w.Alpha)
	assert.Equal(t, 16.0, w.Beta)

	// beta now pinned at max
	w = ws.Step(4)
	assert.Equal(t, 16.0, w.Beta)
}

func TestWeightScheduler_CurrentDoesNotTick(t *testing.T) {
	ws := NewWeightScheduler(WeightSchedulerConfig{
		Alpha: CoefficientConfig{Value: 1, AnnealRate: 0.5},
	})
	ws.Current()
	ws.Current()
	assert.Equal(t, 1.0, ws.Alpha.Value)
}
