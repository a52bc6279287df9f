package history

import "gonum.org/v1/gonum/stat"

// Summary aggregates statistics from a training log.
type Summary struct {
	EpochsRun   int
	Validations int
	BestEpoch   int     // 0 when the monitored metric never appeared
	BestValue   float64 // undefined when BestEpoch is 0
	FinalLR     float64
	MetricMeans map[string]float64 // validation metric name → mean over validated epochs
}

// Summarize computes aggregate statistics from a Log for one monitored metric.
// higherBetter selects the improvement direction. Safe for nil or empty logs
// (returns zero-value fields).
func Summarize(l *Log, metric string, higherBetter bool) *Summary {
	summary := &Summary{MetricMeans: make(map[string]float64)}
	if l == nil || len(l.records) == 0 {
		return summary
	}

	summary.EpochsRun = len(l.records)
	summary.FinalLR = l.Last().LR

	series := make(map[string][]float64)
	for _, rec := range l.records {
		if !rec.Validated() {
			continue
		}
		summary.Validations++
		for name, v := range rec.Validation {
			series[name] = append(series[name], v)
		}
		v, ok := rec.Validation[metric]
		if !ok {
			continue
		}
		if summary.BestEpoch == 0 || better(v, summary.BestValue, higherBetter) {
			summary.BestEpoch = rec.Epoch
			summary.BestValue = v
		}
	}

	for name, vals := range series {
		summary.MetricMeans[name] = stat.Mean(vals, nil)
	}

	return summary
}

func better(candidate, best float64, higherBetter bool) bool {
	if higherBetter {
		return candidate > best
	}
	return candidate < best
}
