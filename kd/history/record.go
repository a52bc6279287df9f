// Package history provides the append-only per-epoch training record log.
// This package has no dependencies on kd/; it stores pure data types.
package history

// MetricSet maps a metric name to its scalar value for one pass over the data.
type MetricSet map[string]float64

// Clone returns a deep copy. Safe on nil (returns nil).
func (m MetricSet) Clone() MetricSet {
	if m == nil {
		return nil
	}
	out := make(MetricSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EpochRecord captures one completed epoch: the training metrics and, when a
// validation pass ran that epoch, the validation metrics (nil otherwise).
type EpochRecord struct {
	Epoch      int
	Train      MetricSet
	Validation MetricSet
	LR         float64
	Alpha      float64
	Beta       float64
	Gamma      float64
}

// Validated reports whether a validation pass produced metrics this epoch.
func (r EpochRecord) Validated() bool {
	return r.Validation != nil
}
