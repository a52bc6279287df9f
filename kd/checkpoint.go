package kd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CheckpointState is the persisted snapshot of the scheduling state. It is
// enough to resume a run: the external model weights live in their own
// artifact next to it, referenced by WeightsPath.
type CheckpointState struct {
	Epoch        int      `json:"epoch"`
	MonitorValue float64  `json:"monitor_value"`
	LR           float64  `json:"lr"`
	Alpha        float64  `json:"alpha"`
	Beta         float64  `json:"beta"`
	Gamma        float64  `json:"gamma"`
	FiredEvents  []string `json:"fired_events"`
	WeightsPath  string   `json:"weights_path,omitempty"`

	// Plateau carries the plateau policy's best/patience state; nil for the
	// milestone policy, which replays deterministically from Epoch.
	Plateau *PlateauState `json:"plateau,omitempty"`
}

// CheckpointRef points at one persisted checkpoint.
type CheckpointRef struct {
	Epoch       int
	MetricValue float64
	Path        string
}

// Checkpointer persists periodic and best checkpoints under a per-run
// directory. Writes are write-then-rename so a crash mid-write never leaves a
// corrupt file at the final path.
type Checkpointer struct {
	dir string
}

// NewCheckpointer creates the run directory <saveDir>/<experiment>-<run-id>.
func NewCheckpointer(saveDir, experiment string) (*Checkpointer, error) {
	runID := uuid.NewString()[:8]
	dir := filepath.Join(saveDir, fmt.Sprintf("%s-%s", experiment, runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Checkpointer{dir: dir}, nil
}

// Dir returns the run directory.
func (cp *Checkpointer) Dir() string { return cp.dir }

// SavePeriodic writes the periodic checkpoint for an epoch.
func (cp *Checkpointer) SavePeriodic(state CheckpointState) (CheckpointRef, error) {
	name := fmt.Sprintf("checkpoint-epoch%03d.json", state.Epoch)
	return cp.save(name, state)
}

// SaveBest overwrites the single best-model checkpoint.
func (cp *Checkpointer) SaveBest(state CheckpointState) (CheckpointRef, error) {
	return cp.save("model_best.json", state)
}

func (cp *Checkpointer) save(name string, state CheckpointState) (CheckpointRef, error) {
	final := filepath.Join(cp.dir, name)
	tmp, err := os.CreateTemp(cp.dir, name+".tmp-*")
	if err != nil {
		return CheckpointRef{}, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		tmp.Close()
		return CheckpointRef{}, fmt.Errorf("checkpoint %s: encode: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return CheckpointRef{}, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return CheckpointRef{}, fmt.Errorf("checkpoint %s: %w", name, err)
	}

	logrus.Debugf("checkpoint written: %s", final)
	return CheckpointRef{Epoch: state.Epoch, MetricValue: state.MonitorValue, Path: final}, nil
}

// LoadCheckpoint reads a checkpoint written by this package.
func LoadCheckpoint(path string) (CheckpointState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CheckpointState{}, fmt.Errorf("load checkpoint: %w", err)
	}
	var state CheckpointState
	if err := json.Unmarshal(data, &state); err != nil {
		return CheckpointState{}, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	return state, nil
}
