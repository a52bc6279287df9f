package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var validateModules []string // Student topology for event validation

// validateCmd loads and validates an experiment file, then exits. Pass the
// real student module names with --modules to also check the event lists
// against the topology.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an experiment config",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, student := loadExperiment(validateModules)
		logrus.Infof("Config %q is valid: %d epochs, %d planned events, %d known modules",
			cfg.Name, cfg.Trainer.Epochs,
			len(cfg.Pruning.Hint)+len(cfg.Pruning.Unfreeze)+len(cfg.Pruning.PruningPlan),
			len(student.Modules()))
	},
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateModules, "modules", nil, "student module names for topology validation")
	rootCmd.AddCommand(validateCmd)
}
