package kd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_BuildsMultiStepLR(t *testing.T) {
	reg := DefaultRegistry()
	lr, err := reg.NewLRPolicy(0.1, StrategyConfig{
		Type: "MultiStepLR",
		Args: map[string]any{"milestones": []any{15, 25}, "gamma": 0.2},
	})
	require.NoError(t, err)
	ms, ok := lr.(*MultiStepLR)
	require.True(t, ok)
	assert.Equal(t, 0.1, ms.CurrentLR())
}

func TestDefaultRegistry_BuildsPlateauWithDefaults(t *testing.T) {
	reg := DefaultRegistry()
	lr, err := reg.NewLRPolicy(0.1, StrategyConfig{Type: "ReduceLROnPlateau"})
	require.NoError(t, err)
	p, ok := lr.(*ReduceLROnPlateau)
	require.True(t, ok)
	assert.Equal(t, PlateauMin, p.Mode)
	assert.Equal(t, 10, p.Patience)
}

func TestRegistry_PlateauRejectsBadMode(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.NewLRPolicy(0.1, StrategyConfig{
		Type: "ReduceLROnPlateau",
		Args: map[string]any{"mode": "sideways"},
	})
	assert.ErrorContains(t, err, "sideways")
}

func TestRegistry_UnknownLRPolicyPanics(t *testing.T) {
	reg := DefaultRegistry()
	assert.Panics(t, func() {
		_, _ = reg.NewLRPolicy(0.1, StrategyConfig{Type: "Cosine"})
	})
}

func TestRegistry_KnownTrainerWithoutRunnerErrors(t *testing.T) {
	reg := DefaultRegistry()
	cfg := &ExperimentConfig{}
	cfg.Trainer.Type = "TAKDPTrainer"
	_, err := reg.NewRunner(cfg, nil)
	assert.ErrorContains(t, err, "no registered runner")
}

func TestRegistry_DryRunRunner(t *testing.T) {
	reg := DefaultRegistry()
	cfg := &ExperimentConfig{Metrics: []string{"test_accuracy"}}
	cfg.Trainer.Type = "dry-run"
	runner, err := reg.NewRunner(cfg, nil)
	require.NoError(t, err)

	m1, err := runner.Validate(1)
	require.NoError(t, err)
	m5, err := runner.Validate(5)
	require.NoError(t, err)
	assert.Greater(t, m5["test_accuracy"], m1["test_accuracy"], "synthetic curve improves early")

	train, err := runner.TrainEpoch(1, LossWeights{Alpha: 1, Beta: 1, Gamma: 1}, 0.1)
	require.NoError(t, err)
	assert.Contains(t, train, "loss")
}

func TestRegisterRunner_OverridesKnownName(t *testing.T) {
	reg := DefaultRegistry()
	reg.RegisterRunner("KDPTrainer", newDryRunRunner)
	cfg := &ExperimentConfig{}
	cfg.Trainer.Type = "KDPTrainer"
	_, err := reg.NewRunner(cfg, nil)
	assert.NoError(t, err)
}
