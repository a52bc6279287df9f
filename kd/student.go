package kd

import (
	"fmt"
	"sort"
)

// PruneArgs are the shared structured-pruning parameters used to rebuild a
// pruned convolution's output shape (the depthwise transform block).
type PruneArgs struct {
	KernelSize int `yaml:"kernel_size"`
	Dilation   int `yaml:"dilation"`
	Padding    int `yaml:"padding"`
}

// Student is the external student-model collaborator. The trainer applies the
// fired structural events through it; the actual tensor work lives outside
// this package.
//
// Module names are dotted paths into the student topology
// (e.g. "backbone.layer3.0.conv2").
type Student interface {
	// HasModule reports whether the dotted path names a module.
	HasModule(name string) bool
	// RegisterHint marks the module's output as a hint-loss target.
	RegisterHint(name string) error
	// Unfreeze marks the module's parameters as trainable.
	Unfreeze(name string) error
	// Prune applies structured channel pruning to the named convolution.
	// lr, when non-nil, overrides the optimizer learning rate for the
	// parameters the pruning introduces.
	Prune(name string, args PruneArgs, compressRate float64, lr *float64) error
}

// MemStudent is an in-memory Student over a declared topology. It records
// every applied action, which is what the dry-run trainer and the tests need.
type MemStudent struct {
	modules map[string]bool

	Hints    []string
	Unfrozen []string
	Pruned   []PruneRecord
}

// PruneRecord captures one applied prune action.
type PruneRecord struct {
	Name         string
	Args         PruneArgs
	CompressRate float64
	LR           *float64
}

// NewMemStudent creates a MemStudent whose topology is the given module names.
func NewMemStudent(modules []string) *MemStudent {
	set := make(map[string]bool, len(modules))
	for _, m := range modules {
		set[m] = true
	}
	return &MemStudent{modules: set}
}

func (s *MemStudent) HasModule(name string) bool {
	return s.modules[name]
}

func (s *MemStudent) RegisterHint(name string) error {
	if !s.modules[name] {
		return fmt.Errorf("register hint: %w: %s", ErrLayerNotFound, name)
	}
	s.Hints = append(s.Hints, name)
	return nil
}

func (s *MemStudent) Unfreeze(name string) error {
	if !s.modules[name] {
		return fmt.Errorf("unfreeze: %w: %s", ErrLayerNotFound, name)
	}
	s.Unfrozen = append(s.Unfrozen, name)
	return nil
}

func (s *MemStudent) Prune(name string, args PruneArgs, compressRate float64, lr *float64) error {
	if !s.modules[name] {
		return fmt.Errorf("prune: %w: %s", ErrLayerNotFound, name)
	}
	s.Pruned = append(s.Pruned, PruneRecord{Name: name, Args: args, CompressRate: compressRate, LR: lr})
	return nil
}

// Modules returns the declared topology sorted by name.
func (s *MemStudent) Modules() []string {
	out := make([]string, 0, len(s.modules))
	for m := range s.modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
