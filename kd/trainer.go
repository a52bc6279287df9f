package kd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lehduong/Knowledge-Distillation-CNN/kd/history"
)

// EpochRunner is the external train/validate collaborator. TrainEpoch runs the
// full batch loop (gradient accumulation, loss combination under the given
// weights) and returns the epoch's training metrics; Validate runs one
// validation pass. The trainer only ever sees completed epoch results.
type EpochRunner interface {
	TrainEpoch(epoch int, weights LossWeights, lr float64) (history.MetricSet, error)
	Validate(epoch int) (history.MetricSet, error)
}

// Trainer drives the epoch loop: it composes the weight scheduler, the LR
// policy, and the event scheduler, tracks the monitored metric, checkpoints,
// and enforces early stopping. All scheduler state is owned here and mutated
// strictly sequentially; nothing in the loop overlaps with anything else.
type Trainer struct {
	cfg     *ExperimentConfig
	runner  EpochRunner
	student Student

	weights *WeightScheduler
	lr      LRPolicy
	events  *EventScheduler
	ckpt    *Checkpointer
	log     *history.Log

	monitor   MonitorSpec
	pruneArgs PruneArgs

	startEpoch    int
	best          float64
	hasBest       bool
	bestRef       CheckpointRef
	notImproved   int
	warnedMissing bool
	stoppedEarly  bool
}

// NewTrainer wires a trainer from a validated config. The registry supplies
// the LR policy; runner and student are the external collaborators.
func NewTrainer(cfg *ExperimentConfig, reg *Registry, runner EpochRunner, student Student) (*Trainer, error) {
	initialLR, err := cfg.InitialLR()
	if err != nil {
		return nil, err
	}
	lr, err := reg.NewLRPolicy(initialLR, cfg.LRScheduler)
	if err != nil {
		return nil, err
	}
	monitor, err := ParseMonitor(cfg.Trainer.Monitor)
	if err != nil {
		return nil, err
	}
	pruneArgs, err := cfg.Pruning.PruneArgs()
	if err != nil {
		return nil, err
	}
	ckpt, err := NewCheckpointer(cfg.Trainer.SaveDir, cfg.Name)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		cfg:        cfg,
		runner:     runner,
		student:    student,
		weights:    NewWeightScheduler(cfg.WeightScheduler),
		lr:         lr,
		events:     cfg.EventSchedule(),
		ckpt:       ckpt,
		log:        history.NewLog(),
		monitor:    monitor,
		pruneArgs:  pruneArgs,
		startEpoch: 1,
	}, nil
}

// Resume restores scheduling state from a checkpoint so training continues at
// the epoch after the snapshot. Fired events stay fired; the milestone LR
// policy re-consumes its milestones deterministically, the plateau policy
// restores its saved rate, best, and patience counter.
func (t *Trainer) Resume(state CheckpointState) {
	t.weights.Alpha.Value = state.Alpha
	t.weights.Beta.Value = state.Beta
	t.weights.Gamma.Value = state.Gamma
	t.events.RestoreFired(state.FiredEvents)
	switch lr := t.lr.(type) {
	case *MultiStepLR:
		lr.Step(state.Epoch)
	case *ReduceLROnPlateau:
		if state.Plateau != nil {
			lr.Restore(*state.Plateau)
		} else {
			lr.lr = state.LR
		}
	}
	if !t.monitor.Off {
		t.best = state.MonitorValue
		t.hasBest = true
	}
	t.startEpoch = state.Epoch + 1
	logrus.Infof("resuming from epoch %d (lr=%g)", t.startEpoch, t.lr.CurrentLR())
}

// History returns the per-epoch record log.
func (t *Trainer) History() *history.Log { return t.log }

// Best returns the best checkpoint reference, valid once hasBest.
func (t *Trainer) Best() (CheckpointRef, bool) { return t.bestRef, t.hasBest }

// StoppedEarly reports whether the run ended by early stop rather than by
// reaching the configured epoch count.
func (t *Trainer) StoppedEarly() bool { return t.stoppedEarly }

// RunDir returns the checkpoint directory for this run.
func (t *Trainer) RunDir() string { return t.ckpt.Dir() }

// Train runs epochs startEpoch..epochs or until early stop. Checkpoint write
// failures abort the run; everything else in the loop either succeeds or is a
// collaborator error worth surfacing as-is.
func (t *Trainer) Train() error {
	tc := t.cfg.Trainer
	for epoch := t.startEpoch; epoch <= tc.Epochs; epoch++ {
		weights := t.weights.Current()
		lr := t.lr.CurrentLR()
		logrus.Infof("[epoch %03d] lr=%g alpha=%g beta=%g gamma=%g", epoch, lr, weights.Alpha, weights.Beta, weights.Gamma)

		trainMetrics, err := t.runner.TrainEpoch(epoch, weights, lr)
		if err != nil {
			return fmt.Errorf("epoch %d: train: %w", epoch, err)
		}

		var valMetrics history.MetricSet
		if epoch%tc.DoValidationInterval == 0 {
			valMetrics, err = t.runner.Validate(epoch)
			if err != nil {
				return fmt.Errorf("epoch %d: validate: %w", epoch, err)
			}
		}

		t.weights.Step(epoch)
		t.stepLR(epoch, trainMetrics, valMetrics)

		if err := t.applyDueEvents(epoch); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}

		t.log.Record(history.EpochRecord{
			Epoch:      epoch,
			Train:      trainMetrics.Clone(),
			Validation: valMetrics.Clone(),
			LR:         t.lr.CurrentLR(),
			Alpha:      t.weights.Alpha.Value,
			Beta:       t.weights.Beta.Value,
			Gamma:      t.weights.Gamma.Value,
		})

		stop, err := t.trackMonitor(epoch, trainMetrics, valMetrics)
		if err != nil {
			return err
		}

		if epoch%tc.SavePeriod == 0 {
			if _, err := t.ckpt.SavePeriodic(t.snapshot(epoch)); err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
		}

		if stop {
			logrus.Infof("early stop at epoch %d: no improvement in %d epochs", epoch, t.notImproved)
			t.stoppedEarly = true
			return nil
		}
	}
	return nil
}

// stepLR ticks whichever LR policy is active. The milestone variant ticks on
// the configured epoch interval; the plateau variant ticks with the monitored
// validation metric whenever validation ran.
func (t *Trainer) stepLR(epoch int, train, val history.MetricSet) {
	switch lr := t.lr.(type) {
	case *MultiStepLR:
		if epoch%t.cfg.Trainer.LRSchedulerStepInterval == 0 {
			lr.Step(epoch)
		}
	case *ReduceLROnPlateau:
		if val == nil || t.monitor.Off {
			return
		}
		if v, ok := lookupMetric(t.monitor.Metric, train, val); ok {
			lr.Step(v)
		}
	}
}

// applyDueEvents fires this epoch's structural events against the student in
// plan order: hints, then unfreezes, then prunes.
func (t *Trainer) applyDueEvents(epoch int) error {
	for _, ev := range t.events.FireDue(epoch) {
		logrus.Infof("[epoch %03d] firing %s event on %q", epoch, ev.Kind, ev.Name)
		var err error
		switch ev.Kind {
		case EventHint:
			err = t.student.RegisterHint(ev.Name)
		case EventUnfreeze:
			err = t.student.Unfreeze(ev.Name)
		case EventPrune:
			rate := t.cfg.Pruning.CompressRate
			if ev.CompressRate != nil {
				rate = *ev.CompressRate
			}
			err = t.student.Prune(ev.Name, t.pruneArgs, rate, ev.LR)
		}
		if err != nil {
			return fmt.Errorf("apply %s event on %q: %w", ev.Kind, ev.Name, err)
		}
	}
	return nil
}

// trackMonitor updates best-metric tracking and the early-stop counter.
// Returns stop=true when the counter reaches the configured early_stop.
func (t *Trainer) trackMonitor(epoch int, train, val history.MetricSet) (bool, error) {
	if t.monitor.Off {
		return false, nil
	}
	value, ok := lookupMetric(t.monitor.Metric, train, val)
	if !ok {
		if val == nil {
			// validation-produced metric on a no-validation epoch
			return false, nil
		}
		if !t.warnedMissing {
			t.warnedMissing = true
			logrus.Warnf("monitor metric %q not produced by train or validation pass; best tracking idle", t.monitor.Metric)
		}
		return false, nil
	}

	if !t.hasBest || t.monitor.Better(value, t.best) {
		t.best = value
		t.hasBest = true
		t.notImproved = 0
		ref, err := t.ckpt.SaveBest(t.snapshot(epoch))
		if err != nil {
			return false, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		t.bestRef = ref
		logrus.Infof("[epoch %03d] new best %s=%g", epoch, t.monitor.Metric, value)
		return false, nil
	}

	t.notImproved++
	return t.cfg.Trainer.EarlyStop > 0 && t.notImproved >= t.cfg.Trainer.EarlyStop, nil
}

func (t *Trainer) snapshot(epoch int) CheckpointState {
	state := CheckpointState{
		Epoch:        epoch,
		MonitorValue: t.best,
		LR:           t.lr.CurrentLR(),
		Alpha:        t.weights.Alpha.Value,
		Beta:         t.weights.Beta.Value,
		Gamma:        t.weights.Gamma.Value,
		FiredEvents:  t.events.FiredNames(),
	}
	if p, ok := t.lr.(*ReduceLROnPlateau); ok {
		ps := p.State()
		state.Plateau = &ps
	}
	return state
}

// lookupMetric finds a metric by name, preferring validation over training
// when both passes produced it.
func lookupMetric(name string, train, val history.MetricSet) (float64, bool) {
	if v, ok := val[name]; ok {
		return v, true
	}
	v, ok := train[name]
	return v, ok
}
