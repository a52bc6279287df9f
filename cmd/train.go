package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lehduong/Knowledge-Distillation-CNN/kd"
	"github.com/lehduong/Knowledge-Distillation-CNN/kd/history"
)

var (
	resumePath  string   // Checkpoint to resume from
	dryRun      bool     // Replace the trainer's epoch runner with the dry-run runner
	moduleNames []string // Student topology override for event validation
)

// trainCmd runs the full epoch loop for the configured experiment.
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the distillation-pruning training loop",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, reg, student := loadExperiment(moduleNames)
		if dryRun {
			cfg.Trainer.Type = "dry-run"
		}

		runner, err := reg.NewRunner(cfg, student)
		if err != nil {
			logrus.Fatalf("Build runner: %v", err)
		}
		trainer, err := kd.NewTrainer(cfg, reg, runner, student)
		if err != nil {
			logrus.Fatalf("Build trainer: %v", err)
		}
		if resumePath != "" {
			state, err := kd.LoadCheckpoint(resumePath)
			if err != nil {
				logrus.Fatalf("Resume: %v", err)
			}
			trainer.Resume(state)
		}

		logrus.Infof("Starting experiment %q: %d epochs, monitor=%q, checkpoints in %s",
			cfg.Name, cfg.Trainer.Epochs, cfg.Trainer.Monitor, trainer.RunDir())
		if err := trainer.Train(); err != nil {
			logrus.Fatalf("Training failed: %v", err)
		}

		monitor, _ := kd.ParseMonitor(cfg.Trainer.Monitor)
		summary := history.Summarize(trainer.History(), monitor.Metric, monitor.Direction == kd.MonitorMax)
		logrus.Infof("Run complete: %d epochs, %d validations, early-stop=%v",
			summary.EpochsRun, summary.Validations, trainer.StoppedEarly())
		if best, ok := trainer.Best(); ok {
			logrus.Infof("Best %s=%g at epoch %d (%s)", monitor.Metric, best.MetricValue, best.Epoch, best.Path)
		}
	},
}

func init() {
	trainCmd.Flags().StringVarP(&resumePath, "resume", "r", "", "checkpoint to resume from")
	trainCmd.Flags().BoolVar(&dryRun, "dry-run", false, "use the synthetic dry-run epoch runner")
	trainCmd.Flags().StringSliceVar(&moduleNames, "modules", nil, "student module names for topology validation")
	rootCmd.AddCommand(trainCmd)
}
