package kd

import "github.com/sirupsen/logrus"

// AnnealedCoefficient is one loss-combination coefficient with its annealing
// rule. Value is multiplied by AnnealRate once per scheduling tick and then
// clamped against the optional bound. A nil bound leaves the product unclamped.
type AnnealedCoefficient struct {
	Value      float64
	AnnealRate float64
	Max        *float64 // clamp candidate down to Max when set
	Min        *float64 // clamp candidate up to Min when set
}

// ClampAnneal applies one annealing tick to value and returns the new value.
// Pure function so the clamp semantics (including the permanent-freeze fixed
// point when a min bound exceeds a decaying candidate) stay visible to tests.
func ClampAnneal(value, rate float64, max, min *float64) float64 {
	candidate := value * rate
	if max != nil && candidate > *max {
		candidate = *max
	}
	if min != nil && candidate < *min {
		candidate = *min
	}
	return candidate
}

// LossWeights is the current supervised/KD/hint loss weighting.
type LossWeights struct {
	Alpha float64 // supervised loss weight
	Beta  float64 // distillation loss weight
	Gamma float64 // hint loss weight
}

// WeightScheduler owns the three annealed coefficients combining the
// supervised, distillation, and hint losses. State persists across Step calls;
// nothing outside the scheduler mutates the coefficients.
type WeightScheduler struct {
	Alpha AnnealedCoefficient
	Beta  AnnealedCoefficient
	Gamma AnnealedCoefficient

	warned bool
}

// NewWeightScheduler creates a scheduler from the weight_scheduler config section.
func NewWeightScheduler(cfg WeightSchedulerConfig) *WeightScheduler {
	return &WeightScheduler{
		Alpha: cfg.Alpha.coefficient(),
		Beta:  cfg.Beta.coefficient(),
		Gamma: cfg.Gamma.coefficient(),
	}
}

// Step applies one annealing tick to all three coefficients and returns the
// updated weights. A coefficient whose bound freezes it at its current value on
// the very first tick is almost always a config authoring mistake; it is
// reported once via a warning and otherwise honored as written.
func (ws *WeightScheduler) Step(epoch int) LossWeights {
	frozen := ws.stepOne(&ws.Alpha, "alpha") | ws.stepOne(&ws.Beta, "beta") | ws.stepOne(&ws.Gamma, "gamma")
	if frozen != 0 && !ws.warned {
		ws.warned = true
		logrus.Warnf("weight scheduler: coefficient bound froze a value at epoch %d; check anneal_rate against the bound", epoch)
	}
	return ws.Current()
}

// Current returns the weights without ticking the annealing.
func (ws *WeightScheduler) Current() LossWeights {
	return LossWeights{Alpha: ws.Alpha.Value, Beta: ws.Beta.Value, Gamma: ws.Gamma.Value}
}

// stepOne anneals a single coefficient in place. Returns 1 when the bound
// held the value exactly where it already was (a fixed point), else 0.
func (ws *WeightScheduler) stepOne(c *AnnealedCoefficient, name string) int {
	next := ClampAnneal(c.Value, c.AnnealRate, c.Max, c.Min)
	fixed := next == c.Value && c.AnnealRate != 1
	c.Value = next
	if fixed {
		logrus.Debugf("weight scheduler: %s held at %v by its bound", name, c.Value)
		return 1
	}
	return 0
}
