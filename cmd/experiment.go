package cmd

import (
	"github.com/sirupsen/logrus"

	"github.com/lehduong/Knowledge-Distillation-CNN/kd"
)

// loadExperiment loads and validates the experiment file behind the --config
// flag. When the caller supplies the real student topology (--modules), the
// event lists are validated against it; otherwise the in-memory student is
// built from the planned module names themselves.
func loadExperiment(modules []string) (*kd.ExperimentConfig, *kd.Registry, *kd.MemStudent) {
	if configPath == "" {
		logrus.Fatalf("No experiment config provided (use --config)")
	}
	cfg, err := kd.LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("Load config: %v", err)
	}

	if len(modules) == 0 {
		modules = plannedModules(cfg)
	}
	student := kd.NewMemStudent(modules)
	reg := kd.DefaultRegistry()
	if err := cfg.Validate(reg, student); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}
	return cfg, reg, student
}

// plannedModules collects the distinct module names the event lists mention.
func plannedModules(cfg *kd.ExperimentConfig) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, list := range [][]kd.EventConfig{cfg.Pruning.Hint, cfg.Pruning.Unfreeze, cfg.Pruning.PruningPlan} {
		for _, ev := range list {
			if !seen[ev.Name] {
				seen[ev.Name] = true
				names = append(names, ev.Name)
			}
		}
	}
	return names
}
