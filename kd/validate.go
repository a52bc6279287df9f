package kd

import (
	"fmt"
)

// Validate checks the whole experiment tree against the registry and the
// student topology. It fails fast: every error here would otherwise surface
// mid-run, after hours of training. Returns the first error found, naming the
// offending section and value.
func (c *ExperimentConfig) Validate(reg *Registry, student Student) error {
	checks := []struct {
		section string
		typ     string
		known   func(string) bool
	}{
		{"teacher", c.Teacher.Type, reg.hasTeacher},
		{"train_data_loader", c.TrainDataLoader.Type, reg.hasLoader},
		{"test_data_loader", c.TestDataLoader.Type, reg.hasLoader},
		{"optimizer", c.Optimizer.Type, reg.hasOptimizer},
		{"supervised_loss", c.SupervisedLoss.Type, reg.hasLoss},
		{"kd_loss", c.KDLoss.Type, reg.hasLoss},
		{"hint_loss", c.HintLoss.Type, reg.hasLoss},
		{"lr_scheduler", c.LRScheduler.Type, reg.hasLRPolicy},
		{"trainer", c.Trainer.Type, reg.hasRunner},
		{"pruning.pruner", c.Pruning.Pruner.Type, reg.hasPruner},
	}
	for _, chk := range checks {
		if !chk.known(chk.typ) {
			return fmt.Errorf("%w: section %q has type %q", ErrUnknownType, chk.section, chk.typ)
		}
	}

	for _, m := range c.Metrics {
		if !reg.hasMetric(m) {
			return fmt.Errorf("%w: section \"metrics\" names %q", ErrUnknownType, m)
		}
	}

	if _, err := ParseMonitor(c.Trainer.Monitor); err != nil {
		return fmt.Errorf("trainer: %w", err)
	}
	if c.Trainer.Epochs < 1 {
		return fmt.Errorf("trainer: epochs must be >= 1, got %d", c.Trainer.Epochs)
	}
	if _, err := c.InitialLR(); err != nil {
		return err
	}
	if _, err := c.Pruning.PruneArgs(); err != nil {
		return err
	}
	if c.Teacher.Snapshot == "" {
		return fmt.Errorf("teacher: snapshot path is required")
	}

	lists := []struct {
		section string
		events  []EventConfig
	}{
		{"pruning.hint", c.Pruning.Hint},
		{"pruning.unfreeze", c.Pruning.Unfreeze},
		{"pruning.pruning_plan", c.Pruning.PruningPlan},
	}
	for _, list := range lists {
		for _, ev := range list.events {
			if ev.Epoch < 1 {
				return fmt.Errorf("%s: event %q has epoch %d, want >= 1", list.section, ev.Name, ev.Epoch)
			}
			if student != nil && !student.HasModule(ev.Name) {
				return fmt.Errorf("%w: %s names %q", ErrLayerNotFound, list.section, ev.Name)
			}
		}
	}

	for _, s := range c.Test.Scales {
		if s <= 0 {
			return fmt.Errorf("test: scale %v must be > 0", s)
		}
	}
	if c.Test.CropSize < 1 {
		return fmt.Errorf("test: crop_size must be >= 1, got %d", c.Test.CropSize)
	}

	if c.Submission.SaveOutput {
		if !reg.hasExt(c.Submission.Ext) {
			return fmt.Errorf("%w: section \"submission\" has ext %q", ErrUnknownType, c.Submission.Ext)
		}
		if c.Submission.PathOutput == "" {
			return fmt.Errorf("submission: path_output is required when save_output is set")
		}
	}

	return nil
}

// EventSchedule builds the event scheduler from the validated config, tagging
// each event with its kind and carrying the per-event pruning overrides.
func (c *ExperimentConfig) EventSchedule() *EventScheduler {
	return NewEventScheduler(
		toEvents(c.Pruning.Hint, EventHint),
		toEvents(c.Pruning.Unfreeze, EventUnfreeze),
		toEvents(c.Pruning.PruningPlan, EventPrune),
	)
}

func toEvents(list []EventConfig, kind EventKind) []Event {
	events := make([]Event, len(list))
	for i, ev := range list {
		events[i] = Event{Name: ev.Name, Epoch: ev.Epoch, Kind: kind}
		if kind == EventPrune {
			events[i].CompressRate = ev.CompressRate
			events[i].LR = ev.LR
		}
	}
	return events
}
