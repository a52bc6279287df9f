package kd

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StrategyConfig is one string-keyed strategy section: a type identifier
// resolved through the registry plus an opaque parameter bag handed to the
// selected strategy.
type StrategyConfig struct {
	Type string         `yaml:"type"`
	Args map[string]any `yaml:"args"`
}

// DecodeArgs unmarshals the opaque args bag into a typed struct by
// round-tripping through YAML.
func (s StrategyConfig) DecodeArgs(out any) error {
	raw, err := yaml.Marshal(s.Args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

// FloatArg returns args[key] as a float64, or an error when missing or not
// numeric.
func (s StrategyConfig) FloatArg(key string) (float64, error) {
	v, ok := s.Args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("arg %q is %T, want number", key, v)
	}
}

// TeacherConfig points at the frozen pretrained network loaded once at startup.
type TeacherConfig struct {
	Type     string         `yaml:"type"`     // architecture identifier
	Snapshot string         `yaml:"snapshot"` // path to the pretrained weight snapshot
	Args     map[string]any `yaml:"args"`
}

// EventConfig is one epoch-keyed entry in the hint/unfreeze/pruning_plan lists.
// CompressRate and LR apply to pruning entries only and override the shared
// defaults for that single event.
type EventConfig struct {
	Name         string   `yaml:"name"`
	Epoch        int      `yaml:"epoch"`
	CompressRate *float64 `yaml:"compress_rate"`
	LR           *float64 `yaml:"lr"`
}

// PruningConfig groups the pruner strategy, the shared compress rate, and the
// three epoch-keyed event lists.
type PruningConfig struct {
	CompressRate float64        `yaml:"compress_rate"`
	Pruner       StrategyConfig `yaml:"pruner"`
	PruningPlan  []EventConfig  `yaml:"pruning_plan"`
	Hint         []EventConfig  `yaml:"hint"`
	Unfreeze     []EventConfig  `yaml:"unfreeze"`
}

// PruneArgs decodes the shared pruner arguments (kernel_size, dilation, padding).
func (p PruningConfig) PruneArgs() (PruneArgs, error) {
	var args PruneArgs
	if err := p.Pruner.DecodeArgs(&args); err != nil {
		return PruneArgs{}, fmt.Errorf("pruning.pruner: %w", err)
	}
	return args, nil
}

// CoefficientConfig is the config form of one annealed loss coefficient.
type CoefficientConfig struct {
	Value      float64  `yaml:"value"`
	AnnealRate float64  `yaml:"anneal_rate"`
	Max        *float64 `yaml:"max"`
	Min        *float64 `yaml:"min"`
}

func (c CoefficientConfig) coefficient() AnnealedCoefficient {
	return AnnealedCoefficient{Value: c.Value, AnnealRate: c.AnnealRate, Max: c.Max, Min: c.Min}
}

// WeightSchedulerConfig holds the three annealed coefficients.
type WeightSchedulerConfig struct {
	Alpha CoefficientConfig `yaml:"alpha"`
	Beta  CoefficientConfig `yaml:"beta"`
	Gamma CoefficientConfig `yaml:"gamma"`
}

// TrainerConfig drives the epoch loop.
type TrainerConfig struct {
	Type                    string `yaml:"type"`
	Epochs                  int    `yaml:"epochs"`
	SaveDir                 string `yaml:"save_dir"`
	SavePeriod              int    `yaml:"save_period"`
	Monitor                 string `yaml:"monitor"` // e.g. "max test_accuracy", "min loss", "off"
	EarlyStop               int    `yaml:"early_stop"`
	AccumulationSteps       int    `yaml:"accumulation_steps"`
	DoValidationInterval    int    `yaml:"do_validation_interval"`
	LRSchedulerStepInterval int    `yaml:"lr_scheduler_step_interval"`
	LenEpoch                int    `yaml:"len_epoch"`
	Verbosity               int    `yaml:"verbosity"`
}

// TestConfig drives multi-scale sliding-window inference.
type TestConfig struct {
	Scales   []float64 `yaml:"scales"`
	CropSize int       `yaml:"crop_size"`
}

// SubmissionConfig drives prediction serialization after evaluation.
type SubmissionConfig struct {
	SaveOutput bool   `yaml:"save_output"`
	PathOutput string `yaml:"path_output"`
	Ext        string `yaml:"ext"`
}

// ExperimentConfig is the parsed, validated experiment tree. Immutable after
// Load; every run reads it, nothing writes it.
type ExperimentConfig struct {
	Name            string                `yaml:"name"`
	Teacher         TeacherConfig         `yaml:"teacher"`
	TrainDataLoader StrategyConfig        `yaml:"train_data_loader"`
	TestDataLoader  StrategyConfig        `yaml:"test_data_loader"`
	Optimizer       StrategyConfig        `yaml:"optimizer"`
	SupervisedLoss  StrategyConfig        `yaml:"supervised_loss"`
	KDLoss          StrategyConfig        `yaml:"kd_loss"`
	HintLoss        StrategyConfig        `yaml:"hint_loss"`
	Metrics         []string              `yaml:"metrics"`
	LRScheduler     StrategyConfig        `yaml:"lr_scheduler"`
	Trainer         TrainerConfig         `yaml:"trainer"`
	Pruning         PruningConfig         `yaml:"pruning"`
	WeightScheduler WeightSchedulerConfig `yaml:"weight_scheduler"`
	Test            TestConfig            `yaml:"test"`
	Submission      SubmissionConfig      `yaml:"submission"`
}

// LoadConfig reads and unmarshals an experiment YAML file. Validation is a
// separate step because it needs the registry and the student topology.
func LoadConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg ExperimentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ExperimentConfig) applyDefaults() {
	if c.Trainer.SavePeriod == 0 {
		c.Trainer.SavePeriod = 1
	}
	if c.Trainer.DoValidationInterval == 0 {
		c.Trainer.DoValidationInterval = 1
	}
	if c.Trainer.LRSchedulerStepInterval == 0 {
		c.Trainer.LRSchedulerStepInterval = 1
	}
	if c.Trainer.AccumulationSteps == 0 {
		c.Trainer.AccumulationSteps = 1
	}
	if c.Trainer.SaveDir == "" {
		c.Trainer.SaveDir = "saved"
	}
	if len(c.Test.Scales) == 0 {
		c.Test.Scales = []float64{1.0}
	}
}

// InitialLR extracts the optimizer's starting learning rate, which both LR
// policies anchor on.
func (c *ExperimentConfig) InitialLR() (float64, error) {
	lr, err := c.Optimizer.FloatArg("lr")
	if err != nil {
		return 0, fmt.Errorf("optimizer: %w", err)
	}
	return lr, nil
}

// MonitorDirection is the improvement direction of the monitored metric.
type MonitorDirection string

const (
	MonitorMax MonitorDirection = "max"
	MonitorMin MonitorDirection = "min"
)

// MonitorSpec is the parsed form of trainer.monitor.
type MonitorSpec struct {
	Off       bool
	Direction MonitorDirection
	Metric    string
}

// Better reports whether candidate improves on best under the spec direction.
func (m MonitorSpec) Better(candidate, best float64) bool {
	if m.Direction == MonitorMax {
		return candidate > best
	}
	return candidate < best
}

// ParseMonitor parses strings like "max test_accuracy" or "min loss" into an
// explicit direction + metric-name pair. "off" (or empty) disables monitoring.
func ParseMonitor(s string) (MonitorSpec, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "off" {
		return MonitorSpec{Off: true}, nil
	}
	fields := strings.Fields(trimmed)
	if len(fields) != 2 {
		return MonitorSpec{}, fmt.Errorf("%w: %q, want \"<max|min> <metric>\"", ErrBadMonitor, s)
	}
	dir := MonitorDirection(fields[0])
	if dir != MonitorMax && dir != MonitorMin {
		return MonitorSpec{}, fmt.Errorf("%w: direction %q, want max or min", ErrBadMonitor, fields[0])
	}
	return MonitorSpec{Direction: dir, Metric: fields[1]}, nil
}
