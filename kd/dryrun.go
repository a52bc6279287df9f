package kd

import (
	"math"

	"github.com/lehduong/Knowledge-Distillation-CNN/kd/history"
)

// DryRunRunner is a built-in epoch runner that produces deterministic
// synthetic metrics instead of touching a model. It exists so the full epoch
// loop (annealing, LR policy, event firing, checkpointing, early stop) can be
// exercised from the CLI and from tests without tensors.
type DryRunRunner struct {
	metrics []string
}

func newDryRunRunner(cfg *ExperimentConfig, _ Student) (EpochRunner, error) {
	return &DryRunRunner{metrics: cfg.Metrics}, nil
}

// TrainEpoch returns a decaying synthetic training loss.
func (d *DryRunRunner) TrainEpoch(epoch int, weights LossWeights, lr float64) (history.MetricSet, error) {
	loss := 2.0 * math.Pow(0.92, float64(epoch))
	return history.MetricSet{
		"loss":            loss,
		"supervised_loss": weights.Alpha * loss,
		"kd_loss":         weights.Beta * loss,
		"hint_loss":       weights.Gamma * loss,
	}, nil
}

// Validate returns saturating synthetic curves: accuracy-like metrics rise
// toward 1, loss-like metrics mirror the training decay. Saturation means a
// long enough dry run always demonstrates the early-stop path.
func (d *DryRunRunner) Validate(epoch int) (history.MetricSet, error) {
	out := history.MetricSet{}
	for _, name := range d.metrics {
		if name == "loss" {
			out[name] = 2.2 * math.Pow(0.92, float64(epoch))
			continue
		}
		out[name] = math.Min(0.95, 0.40+0.05*float64(epoch))
	}
	return out, nil
}
