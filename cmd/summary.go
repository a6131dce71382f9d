package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-hparams/internal/hparams"
	"github.com/imishinist/mlflow-hparams/internal/models"
	"github.com/imishinist/mlflow-hparams/internal/parser"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Manage sweep experiment summaries",
	Long:  "Describe the hyperparameters and metrics of a sweep",
}

var summaryWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the sweep experiment summary to the event log",
	Long: `Write an experiment summary event describing the hyperparameter domains and
tracked metrics of a sweep. Write it once per sweep, before any session starts.`,
	Example: `  # Units, dropout and optimizer sweep tracking epoch_accuracy
  mlflow-hparams summary write --log-dir logs/run1 --num-units 16,32 --dropout-rate 0.1,0.2 --optimizer adam,sgd

  # Sweep described in a file
  mlflow-hparams summary write --log-dir logs/run1 --from-file sweep.yaml`,
	RunE: summaryWrite,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.AddCommand(summaryWriteCmd)

	summaryWriteCmd.Flags().String("from-file", "", "Load sweep definition from file (JSON/YAML)")
	summaryWriteCmd.Flags().Float64Slice("num-units", nil, "Candidate unit counts")
	summaryWriteCmd.Flags().Float64Slice("dropout-rate", nil, "Candidate dropout rates")
	summaryWriteCmd.Flags().StringSlice("optimizer", nil, "Candidate optimizer names")
	summaryWriteCmd.MarkFlagsMutuallyExclusive("from-file", "num-units")
	summaryWriteCmd.MarkFlagsMutuallyExclusive("from-file", "dropout-rate")
	summaryWriteCmd.MarkFlagsMutuallyExclusive("from-file", "optimizer")
	summaryWriteCmd.MarkFlagsRequiredTogether("num-units", "dropout-rate", "optimizer")
}

func loadSummary(cmd *cobra.Command) (models.ExperimentSummary, error) {
	fromFile, _ := cmd.Flags().GetString("from-file")
	if fromFile != "" {
		sweep, err := parser.ParseSweepFile(fromFile)
		if err != nil {
			return models.ExperimentSummary{}, err
		}
		return hparams.BuildFromSweep(*sweep)
	}

	numUnits, _ := cmd.Flags().GetFloat64Slice("num-units")
	dropoutRates, _ := cmd.Flags().GetFloat64Slice("dropout-rate")
	optimizers, _ := cmd.Flags().GetStringSlice("optimizer")
	if len(numUnits) == 0 || len(dropoutRates) == 0 || len(optimizers) == 0 {
		return models.ExperimentSummary{}, fmt.Errorf("either --from-file or --num-units, --dropout-rate and --optimizer must be specified")
	}

	return hparams.BuildExperimentSummary(numUnits, dropoutRates, optimizers), nil
}

func summaryWrite(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	summary, err := loadSummary(cmd)
	if err != nil {
		return err
	}

	// Write at most once, before any session
	record, err := loadRecord(cfg.LogDir)
	if err != nil {
		return err
	}
	if record.Summary != nil {
		return fmt.Errorf("log directory %s already holds an experiment summary", cfg.LogDir)
	}
	if len(record.Sessions) > 0 {
		return fmt.Errorf("%w: experiment summary after session start in %s", hparams.ErrOutOfOrder, cfg.LogDir)
	}

	w := &logWriter{dir: cfg.LogDir}
	defer w.Close()

	if err := hparams.NewEmitter(w, hparams.NewSweep(summary)).WriteSummary(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.V(1).Info("Wrote experiment summary", "path", w.Path())

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully wrote experiment summary to %s\n", w.Path())
	for _, info := range summary.HParamInfos {
		fmt.Fprintf(cmd.OutOrStdout(), "  hparam %s (%s): %d values\n", info.Name, info.Type, len(info.Domain))
	}
	for _, info := range summary.MetricInfos {
		fmt.Fprintf(cmd.OutOrStdout(), "  metric %s\n", info.Tag)
	}

	return nil
}
