package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-hparams/internal/callback"
	"github.com/imishinist/mlflow-hparams/internal/hparams"
)

// Environment passed to the training command.
const (
	envHParams = "HPARAMS"
	envLogDir  = "HPARAMS_LOG_DIR"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <train command> [args...]",
	Short: "Run a training command as one session of a sweep",
	Long: `Run a training command between a session start and a session end.

The hyperparameters are passed to the command as JSON in $HPARAMS and the log
directory in $HPARAMS_LOG_DIR. Stdout lines of the form

  epoch=<n> <name>=<value> ...

are written as epoch_<name> scalars at step n. The session ends with SUCCESS
when the command exits zero and FAILURE otherwise.`,
	Example: `  mlflow-hparams run --log-dir logs/run1 --sweep sweep.yaml --strict \
    --hparam num_units=16 --hparam dropout_rate=0.1 --hparam optimizer=adam -- python train.py`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTraining,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArray("hparam", []string{}, "Hyperparameters in key=value format")
	runCmd.Flags().String("from-file", "", "Load hyperparameters from file (JSON/YAML)")
	runCmd.Flags().String("sweep", "", "Sweep definition file; its summary is written first if the log has none")
	runCmd.Flags().Bool("strict", false, "Reject hyperparameters outside the sweep's domains")
}

func runTraining(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	sweepFile, _ := cmd.Flags().GetString("sweep")
	strict, _ := cmd.Flags().GetBool("strict")

	values, err := collectHParams(cmd)
	if err != nil {
		return err
	}
	sweep, err := loadSweep(sweepFile, strict)
	if err != nil {
		return err
	}

	start, err := hparams.NewSessionStart(values)
	if err != nil {
		return err
	}
	if strict {
		if err := hparams.Validate(sweep.Summary(), start); err != nil {
			return err
		}
	}

	record, err := loadRecord(cfg.LogDir)
	if err != nil {
		return err
	}
	if record.Open() {
		return fmt.Errorf("%w: a session is already running in %s", hparams.ErrOutOfOrder, cfg.LogDir)
	}
	if sweep != nil && record.Summary != nil {
		sweep.MarkWritten()
	}

	encoded, err := json.Marshal(start.HParams)
	if err != nil {
		return fmt.Errorf("failed to encode hparams: %w", err)
	}

	process := &callback.Process{
		Name:   args[0],
		Args:   args[1:],
		Env:    []string{envHParams + "=" + string(encoded), envLogDir + "=" + cfg.LogDir},
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
	callbacks := []callback.Callback{
		&callback.HParams{LogDir: cfg.LogDir, Sweep: sweep, HParams: start.HParams, Log: log},
		&callback.Scalars{LogDir: cfg.LogDir, Log: log},
	}

	log.Info("Starting training", "command", args[0], "logDir", cfg.LogDir)
	if err := callback.Run(context.Background(), callbacks, process.Train); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Training finished, session recorded in %s\n", cfg.LogDir)
	return nil
}
