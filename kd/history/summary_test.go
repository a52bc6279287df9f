package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_EmptyLog(t *testing.T) {
	s := Summarize(nil, "test_accuracy", true)
	assert.Equal(t, 0, s.EpochsRun)
	assert.Equal(t, 0, s.BestEpoch)

	s = Summarize(NewLog(), "test_accuracy", true)
	assert.Equal(t, 0, s.EpochsRun)
}

func TestSummarize_BestAndMeans(t *testing.T) {
	l := NewLog()
	l.Record(EpochRecord{Epoch: 1, Train: MetricSet{"loss": 1.0}, Validation: MetricSet{"test_accuracy": 0.5}, LR: 0.1})
	l.Record(EpochRecord{Epoch: 2, Train: MetricSet{"loss": 0.8}, LR: 0.1})
	l.Record(EpochRecord{Epoch: 3, Train: MetricSet{"loss": 0.6}, Validation: MetricSet{"test_accuracy": 0.7}, LR: 0.02})

	s := Summarize(l, "test_accuracy", true)
	assert.Equal(t, 3, s.EpochsRun)
	assert.Equal(t, 2, s.Validations)
	assert.Equal(t, 3, s.BestEpoch)
	assert.Equal(t, 0.7, s.BestValue)
	assert.Equal(t, 0.02, s.FinalLR)
	assert.InDelta(t, 0.6, s.MetricMeans["test_accuracy"], 1e-12)
}

func TestSummarize_MinDirection(t *testing.T) {
	l := NewLog()
	l.Record(EpochRecord{Epoch: 1, Validation: MetricSet{"loss": 0.9}})
	l.Record(EpochRecord{Epoch: 2, Validation: MetricSet{"loss": 0.4}})
	l.Record(EpochRecord{Epoch: 3, Validation: MetricSet{"loss": 0.6}})

	s := Summarize(l, "loss", false)
	assert.Equal(t, 2, s.BestEpoch)
	assert.Equal(t, 0.4, s.BestValue)
}

func TestMetricSet_Clone(t *testing.T) {
	var nilSet MetricSet
	assert.Nil(t, nilSet.Clone())

	m := MetricSet{"a": 1}
	c := m.Clone()
	c["a"] = 2
	assert.Equal(t, 1.0, m["a"])
}

func TestEpochRecord_Validated(t *testing.T) {
	assert.False(t, EpochRecord{}.Validated())
	assert.True(t, EpochRecord{Validation: MetricSet{}}.Validated())
}
