package cmd

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-hparams/internal/config"
	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/mlflow"
	"github.com/imishinist/mlflow-hparams/internal/models"
	"github.com/imishinist/mlflow-hparams/internal/tracker"
)

const eventsArtifactDir = "tfevents"

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync an event log into an MLflow run",
	Long: `Replay a run's event log into MLflow: session hyperparameters become run
params, scalars become metrics, and the last session's status ends the run.
Without --run-id a new run is created in the configured experiment.`,
	Example: `  mlflow-hparams sync --log-dir logs/run1 --experiment-id 0 --run-name units16
  mlflow-hparams sync --log-dir logs/run1 --run-id <run-id> --upload-events`,
	RunE: syncRun,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("run-id", "", "Existing run ID to sync into")
	syncCmd.Flags().String("run-name", "", "Name of the created run (default: timestamp-based)")
	syncCmd.Flags().StringArray("tag", []string{}, "Tags of the created run in key=value format")
	syncCmd.Flags().Bool("end-run", true, "Set the run status from the last session")
	syncCmd.Flags().Bool("upload-events", false, "Upload the event files as run artifacts")
}

// parseTags parses tag strings in key=value format
func parseTags(tags []string) (map[string]string, error) {
	tagMap := make(map[string]string)
	for _, tag := range tags {
		parts := strings.SplitN(tag, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid tag format: %s (expected key=value)", tag)
		}
		tagMap[parts[0]] = parts[1]
	}
	return tagMap, nil
}

// buildRunConfig constructs RunConfig from command flags and configuration
func buildRunConfig(cmd *cobra.Command, cfg *config.Config) (*models.RunConfig, error) {
	runName, _ := cmd.Flags().GetString("run-name")
	tags, _ := cmd.Flags().GetStringArray("tag")

	experimentID := cfg.ExperimentID
	if experimentID == "" {
		return nil, fmt.Errorf("experiment ID must be specified via --experiment-id flag or MLFLOW_EXPERIMENT_ID environment variable when --run-id is not given")
	}

	tagMap, err := parseTags(tags)
	if err != nil {
		return nil, err
	}

	runConfig := &models.RunConfig{
		ExperimentID: &experimentID,
		Tags:         tagMap,
	}
	if runName != "" {
		runConfig.RunName = &runName
	}
	return runConfig, nil
}

func syncRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	runID, _ := cmd.Flags().GetString("run-id")
	endRun, _ := cmd.Flags().GetBool("end-run")
	uploadEvents, _ := cmd.Flags().GetBool("upload-events")

	record, err := tracker.Load(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to load event log: %w", err)
	}

	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	ctx := context.Background()
	if runID == "" {
		runConfig, err := buildRunConfig(cmd, cfg)
		if err != nil {
			return err
		}
		runInfo, err := client.CreateRun(ctx, runConfig)
		if err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		runID = runInfo.RunID
		log.Info("Created run", "runID", runID, "name", runInfo.RunName)
	}

	if uploadEvents {
		files, err := eventlog.Files(cfg.LogDir)
		if err != nil {
			return err
		}
		for _, file := range files {
			target := path.Join(eventsArtifactDir, filepath.Base(file))
			if err := client.UploadArtifact(ctx, runID, file, target); err != nil {
				return fmt.Errorf("failed to upload %s: %w", file, err)
			}
		}
		log.Info("Uploaded event files", "runID", runID, "count", len(files))
	}

	result, err := tracker.Sync(ctx, client, runID, record, tracker.Options{
		Params: cfg.Params,
		Time:   cfg.TimeConfig(),
		EndRun: endRun,
		Log:    log,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", runID)
	fmt.Fprintf(cmd.ErrOrStderr(), "Synced %d params, %d metrics", len(result.Params), result.Metrics)
	if endRun {
		fmt.Fprintf(cmd.ErrOrStderr(), ", status %s", result.Status)
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return nil
}
