package kd

import (
	"fmt"
	"sort"
)

// LRPolicyConstructor builds an LR policy from the optimizer's initial lr and
// the lr_scheduler args bag.
type LRPolicyConstructor func(initialLR float64, args StrategyConfig) (LRPolicy, error)

// RunnerConstructor builds an epoch runner (the external train/validate
// collaborator) for a validated config.
type RunnerConstructor func(cfg *ExperimentConfig, student Student) (EpochRunner, error)

// Registry resolves string type identifiers from strategy sections into
// capabilities. It is passed explicitly into validation and the trainer;
// there is no global registry.
//
// Sections whose construction happens outside this package (losses,
// optimizers, data loaders, teacher architectures, metrics) are validated by
// name only; LR policies and epoch runners are constructed here.
type Registry struct {
	lrPolicies map[string]LRPolicyConstructor
	runners    map[string]RunnerConstructor

	losses      map[string]bool
	optimizers  map[string]bool
	dataLoaders map[string]bool
	teachers    map[string]bool
	metricNames map[string]bool
	pruners     map[string]bool
	exts        map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lrPolicies:  make(map[string]LRPolicyConstructor),
		runners:     make(map[string]RunnerConstructor),
		losses:      make(map[string]bool),
		optimizers:  make(map[string]bool),
		dataLoaders: make(map[string]bool),
		teachers:    make(map[string]bool),
		metricNames: make(map[string]bool),
		pruners:     make(map[string]bool),
		exts:        make(map[string]bool),
	}
}

// DefaultRegistry returns a registry with the built-in strategies registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterLRPolicy("MultiStepLR", newMultiStepFromConfig)
	r.RegisterLRPolicy("ReduceLROnPlateau", newPlateauFromConfig)

	r.RegisterRunner("dry-run", newDryRunRunner)

	for _, name := range []string{"cross_entropy", "focal", "kl_divergence", "mse", "l1"} {
		r.losses[name] = true
	}
	for _, name := range []string{"SGD", "Adam", "AdamW", "RMSprop"} {
		r.optimizers[name] = true
	}
	for _, name := range []string{"CityscapesDataLoader", "VOCDataLoader", "CIFAR100DataLoader"} {
		r.dataLoaders[name] = true
	}
	for _, name := range []string{"deeplabv3_resnet101", "deeplabv3_resnet50", "resnet18"} {
		r.teachers[name] = true
	}
	for _, name := range []string{"accuracy", "test_accuracy", "mean_iou", "pixel_accuracy", "loss"} {
		r.metricNames[name] = true
	}
	r.pruners["PFEC"] = true
	r.exts["png"] = true
	r.exts["csv"] = true

	// Trainer strategies are epoch-runner identifiers; the built-in dry-run
	// is registered above, external runners register their own names.
	for _, name := range []string{"KDPTrainer", "TAKDPTrainer", "ATAKDPTrainer", "LayerCompressibleTrainer"} {
		if _, ok := r.runners[name]; !ok {
			r.runners[name] = nil // known name, constructor supplied by the caller
		}
	}
	return r
}

// RegisterLRPolicy registers an LR policy constructor under a type identifier.
func (r *Registry) RegisterLRPolicy(name string, ctor LRPolicyConstructor) {
	r.lrPolicies[name] = ctor
}

// RegisterRunner registers an epoch-runner constructor under a trainer type.
func (r *Registry) RegisterRunner(name string, ctor RunnerConstructor) {
	r.runners[name] = ctor
}

// NewLRPolicy constructs the configured LR policy. The type must have been
// validated; unknown names panic.
func (r *Registry) NewLRPolicy(initialLR float64, cfg StrategyConfig) (LRPolicy, error) {
	ctor, ok := r.lrPolicies[cfg.Type]
	if !ok {
		panic(fmt.Sprintf("unknown lr policy %q", cfg.Type))
	}
	return ctor(initialLR, cfg)
}

// NewRunner constructs the epoch runner for the trainer type, or errors when
// only the name (not a constructor) is registered.
func (r *Registry) NewRunner(cfg *ExperimentConfig, student Student) (EpochRunner, error) {
	ctor, ok := r.runners[cfg.Trainer.Type]
	if !ok {
		panic(fmt.Sprintf("unknown trainer %q", cfg.Trainer.Type))
	}
	if ctor == nil {
		return nil, fmt.Errorf("trainer %q has no registered runner; register one or use dry-run", cfg.Trainer.Type)
	}
	return ctor(cfg, student)
}

func (r *Registry) hasLRPolicy(name string) bool  { return r.lrPolicies[name] != nil }
func (r *Registry) hasRunner(name string) bool    { _, ok := r.runners[name]; return ok }
func (r *Registry) hasLoss(name string) bool      { return r.losses[name] }
func (r *Registry) hasOptimizer(name string) bool { return r.optimizers[name] }
func (r *Registry) hasLoader(name string) bool    { return r.dataLoaders[name] }
func (r *Registry) hasTeacher(name string) bool   { return r.teachers[name] }
func (r *Registry) hasMetric(name string) bool    { return r.metricNames[name] }
func (r *Registry) hasPruner(name string) bool    { return r.pruners[name] }
func (r *Registry) hasExt(name string) bool       { return r.exts[name] }

// LRPolicyNames lists the registered LR policy types, sorted.
func (r *Registry) LRPolicyNames() []string {
	names := make([]string, 0, len(r.lrPolicies))
	for n := range r.lrPolicies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// multiStepArgs is the typed form of MultiStepLR's args bag.
type multiStepArgs struct {
	Milestones []int   `yaml:"milestones"`
	Gamma      float64 `yaml:"gamma"`
}

func newMultiStepFromConfig(initialLR float64, cfg StrategyConfig) (LRPolicy, error) {
	var args multiStepArgs
	if err := cfg.DecodeArgs(&args); err != nil {
		return nil, fmt.Errorf("lr_scheduler %s: %w", cfg.Type, err)
	}
	if args.Gamma == 0 {
		return nil, fmt.Errorf("lr_scheduler %s: gamma must be non-zero", cfg.Type)
	}
	return NewMultiStepLR(initialLR, args.Gamma, args.Milestones), nil
}

// plateauArgs is the typed form of ReduceLROnPlateau's args bag.
type plateauArgs struct {
	Mode          string  `yaml:"mode"`
	Factor        float64 `yaml:"factor"`
	Patience      int     `yaml:"patience"`
	Threshold     float64 `yaml:"threshold"`
	ThresholdMode string  `yaml:"threshold_mode"`
	MinLR         float64 `yaml:"min_lr"`
}

func newPlateauFromConfig(initialLR float64, cfg StrategyConfig) (LRPolicy, error) {
	args := plateauArgs{Mode: "min", Factor: 0.1, Patience: 10, Threshold: 1e-4, ThresholdMode: "rel"}
	if err := cfg.DecodeArgs(&args); err != nil {
		return nil, fmt.Errorf("lr_scheduler %s: %w", cfg.Type, err)
	}
	mode := PlateauMode(args.Mode)
	if mode != PlateauMin && mode != PlateauMax {
		return nil, fmt.Errorf("lr_scheduler %s: mode %q, want min or max", cfg.Type, args.Mode)
	}
	tm := ThresholdMode(args.ThresholdMode)
	if tm != ThresholdRel && tm != ThresholdAbs {
		return nil, fmt.Errorf("lr_scheduler %s: threshold_mode %q, want rel or abs", cfg.Type, args.ThresholdMode)
	}
	return NewReduceLROnPlateau(initialLR, mode, args.Factor, args.Patience, args.Threshold, tm, args.MinLR), nil
}
