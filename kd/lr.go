package kd

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// LRPolicy is the read side shared by both learning-rate strategies. The
// trainer ticks whichever concrete policy is active; everything else only
// needs the current value.
type LRPolicy interface {
	CurrentLR() float64
}

// MultiStepLR multiplies the learning rate by Gamma at fixed milestone epochs.
// Milestones are consumed in ascending order, each at most once; ticking at an
// epoch past an unconsumed milestone catches up on the skipped drops so the
// schedule is insensitive to the trainer's lr_scheduler_step_interval.
type MultiStepLR struct {
	lr         float64
	gamma      float64
	milestones []int
	next       int // index of the first unconsumed milestone
}

// NewMultiStepLR creates a milestone policy. Milestones are sorted ascending.
func NewMultiStepLR(initialLR, gamma float64, milestones []int) *MultiStepLR {
	ms := make([]int, len(milestones))
	copy(ms, milestones)
	sort.Ints(ms)
	return &MultiStepLR{lr: initialLR, gamma: gamma, milestones: ms}
}

// Step consumes every milestone at or before epoch and returns the current lr.
func (m *MultiStepLR) Step(epoch int) float64 {
	for m.next < len(m.milestones) && m.milestones[m.next] <= epoch {
		m.lr *= m.gamma
		logrus.Infof("lr scheduler: milestone %d reached, lr -> %g", m.milestones[m.next], m.lr)
		m.next++
	}
	return m.lr
}

func (m *MultiStepLR) CurrentLR() float64 { return m.lr }

// PlateauMode selects the improvement direction for ReduceLROnPlateau.
type PlateauMode string

const (
	PlateauMin PlateauMode = "min"
	PlateauMax PlateauMode = "max"
)

// ThresholdMode selects how the improvement threshold is applied.
type ThresholdMode string

const (
	ThresholdRel ThresholdMode = "rel"
	ThresholdAbs ThresholdMode = "abs"
)

// ReduceLROnPlateau drops the learning rate by Factor once the monitored
// metric has gone Patience consecutive evaluations without improving on the
// best seen value by more than Threshold.
type ReduceLROnPlateau struct {
	Mode          PlateauMode
	Factor        float64
	Patience      int
	Threshold     float64
	ThresholdMode ThresholdMode
	MinLR         float64

	lr      float64
	best    float64
	hasBest bool
	numBad  int
}

// NewReduceLROnPlateau creates a plateau policy with the given initial lr.
func NewReduceLROnPlateau(initialLR float64, mode PlateauMode, factor float64, patience int,
	threshold float64, thresholdMode ThresholdMode, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		Mode:          mode,
		Factor:        factor,
		Patience:      patience,
		Threshold:     threshold,
		ThresholdMode: thresholdMode,
		MinLR:         minLR,
		lr:            initialLR,
	}
}

// Step feeds one evaluation of the monitored metric and returns the current lr.
// The first evaluation establishes the best value and never reduces.
func (p *ReduceLROnPlateau) Step(metric float64) float64 {
	if !p.hasBest || p.improved(metric) {
		p.hasBest = true
		p.best = metric
		p.numBad = 0
		return p.lr
	}

	p.numBad++
	if p.numBad >= p.Patience {
		reduced := p.lr * p.Factor
		if reduced < p.MinLR {
			reduced = p.MinLR
		}
		if reduced != p.lr {
			logrus.Infof("lr scheduler: plateau after %d evaluations, lr %g -> %g", p.numBad, p.lr, reduced)
		}
		p.lr = reduced
		p.numBad = 0
	}
	return p.lr
}

func (p *ReduceLROnPlateau) CurrentLR() float64 { return p.lr }

// PlateauState is the resumable portion of the plateau policy: without it a
// resumed run would re-establish best from the first post-resume evaluation
// and restart patience from zero.
type PlateauState struct {
	LR      float64 `json:"lr"`
	Best    float64 `json:"best"`
	HasBest bool    `json:"has_best"`
	NumBad  int     `json:"num_bad"`
}

// State snapshots the mutable policy state for a checkpoint.
func (p *ReduceLROnPlateau) State() PlateauState {
	return PlateauState{LR: p.lr, Best: p.best, HasBest: p.hasBest, NumBad: p.numBad}
}

// Restore reinstates a snapshot taken by State.
func (p *ReduceLROnPlateau) Restore(s PlateauState) {
	p.lr = s.LR
	p.best = s.Best
	p.hasBest = s.HasBest
	p.numBad = s.NumBad
}

// improved tests metric against best with the configured threshold.
func (p *ReduceLROnPlateau) improved(metric float64) bool {
	switch p.Mode {
	case PlateauMin:
		if p.ThresholdMode == ThresholdRel {
			return metric < p.best*(1-p.Threshold)
		}
		return metric < p.best-p.Threshold
	case PlateauMax:
		if p.ThresholdMode == ThresholdRel {
			return metric > p.best*(1+p.Threshold)
		}
		return metric > p.best+p.Threshold
	default:
		panic(fmt.Sprintf("unhandled plateau mode %q", p.Mode))
	}
}
