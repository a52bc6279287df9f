package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehduong/Knowledge-Distillation-CNN/kd"
)

// planCmd previews the epoch schedule without running anything: per-epoch
// loss weights, the milestone learning-rate trajectory, and the structural
// events as they would fire. The plateau policy is metric-driven, so its
// drops cannot be previewed; the initial rate is shown instead.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the annealing, lr, and event schedule",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, reg, _ := loadExperiment(nil)
		lines, err := scheduleLines(cfg, reg)
		if err != nil {
			fmt.Printf("lr policy: %v\n", err)
			return
		}
		for _, line := range lines {
			fmt.Println(line)
		}
	},
}

// scheduleLines renders the per-epoch preview. Training consumes the pre-step
// weights and lr for epoch N and only then advances the schedulers, so each
// line prints before stepping.
func scheduleLines(cfg *kd.ExperimentConfig, reg *kd.Registry) ([]string, error) {
	weights := kd.NewWeightScheduler(cfg.WeightScheduler)
	initialLR, _ := cfg.InitialLR()
	lr, err := reg.NewLRPolicy(initialLR, cfg.LRScheduler)
	if err != nil {
		return nil, err
	}
	events := cfg.EventSchedule()

	lines := []string{fmt.Sprintf("=== Schedule for %q (%d epochs) ===", cfg.Name, cfg.Trainer.Epochs)}
	for epoch := 1; epoch <= cfg.Trainer.Epochs; epoch++ {
		w := weights.Current()
		line := fmt.Sprintf("epoch %3d  lr=%-10g alpha=%-10g beta=%-10g gamma=%-10g",
			epoch, lr.CurrentLR(), w.Alpha, w.Beta, w.Gamma)
		weights.Step(epoch)
		if m, ok := lr.(*kd.MultiStepLR); ok && epoch%cfg.Trainer.LRSchedulerStepInterval == 0 {
			m.Step(epoch)
		}
		for _, ev := range events.FireDue(epoch) {
			line += fmt.Sprintf("  [%s %s]", ev.Kind, ev.Name)
		}
		lines = append(lines, line)
	}
	if len(events.Pending()) > 0 {
		lines = append(lines, "=== Events past the final epoch (never fire) ===")
		for _, ev := range events.Pending() {
			lines = append(lines, fmt.Sprintf("epoch %3d  %s %s", ev.Epoch, ev.Kind, ev.Name))
		}
	}
	return lines, nil
}

func init() {
	rootCmd.AddCommand(planCmd)
}
