package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/mlflow"
	"github.com/imishinist/mlflow-hparams/internal/models"
	"github.com/imishinist/mlflow-hparams/internal/parser"
	timeutils "github.com/imishinist/mlflow-hparams/internal/time"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log scalars to the event log",
	Long:  "Append scalar summaries, such as epoch_accuracy, to a run's event log",
}

var logScalarCmd = &cobra.Command{
	Use:   "scalar",
	Short: "Log a single scalar",
	RunE:  logScalar,
}

var logScalarsCmd = &cobra.Command{
	Use:   "scalars",
	Short: "Log multiple scalars from file",
	RunE:  logScalars,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logScalarCmd)
	logCmd.AddCommand(logScalarsCmd)

	logScalarCmd.Flags().String("tag", "", "Scalar tag (required)")
	logScalarCmd.Flags().Float64("value", 0, "Scalar value (required)")
	logScalarCmd.Flags().Int64("step", 0, "Step number")
	logScalarCmd.Flags().String("timestamp", "", "Timestamp in ISO8601 format (optional)")
	logScalarCmd.Flags().String("run-id", "", "Also log the scalar as a metric of this MLflow run")
	logScalarCmd.MarkFlagRequired("tag")
	logScalarCmd.MarkFlagRequired("value")

	logScalarsCmd.Flags().String("from-file", "", "Load scalars from file (JSON/YAML)")
	logScalarsCmd.MarkFlagRequired("from-file")
}

func scalarEvent(s models.Scalar) eventlog.Event {
	value := s.Value
	return eventlog.Event{
		WallTime: s.Timestamp,
		Step:     s.Step,
		Summary:  []eventlog.SummaryValue{{Tag: s.Tag, SimpleValue: &value}},
	}
}

func writeScalars(dir string, scalars []models.Scalar) (string, error) {
	w, err := eventlog.Open(dir)
	if err != nil {
		return "", err
	}
	defer w.Close()

	for _, s := range scalars {
		if err := w.Write(scalarEvent(s)); err != nil {
			return "", err
		}
	}
	return w.Path(), w.Close()
}

func logScalar(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	tag, _ := cmd.Flags().GetString("tag")
	value, _ := cmd.Flags().GetFloat64("value")
	step, _ := cmd.Flags().GetInt64("step")
	timestampStr, _ := cmd.Flags().GetString("timestamp")
	runID, _ := cmd.Flags().GetString("run-id")

	timestamp := time.Now()
	if timestampStr != "" {
		timestamp, err = time.Parse(time.RFC3339, timestampStr)
		if err != nil {
			return fmt.Errorf("invalid timestamp format: %s (expected ISO8601)", timestampStr)
		}
	}

	path, err := writeScalars(cfg.LogDir, []models.Scalar{{Tag: tag, Value: value, Step: step, Timestamp: timestamp}})
	if err != nil {
		return err
	}
	log.V(1).Info("Wrote scalar", "path", path, "tag", tag)

	if runID != "" {
		client, err := mlflow.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to create MLflow client: %w", err)
		}
		if err := client.LogMetric(context.Background(), runID, tag, value, &timestamp, &step); err != nil {
			return err
		}
		log.Info("Logged metric", "runID", runID, "key", tag)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged scalar: %s = %g (step: %d)\n", tag, value, step)
	return nil
}

func logScalars(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	fromFile, _ := cmd.Flags().GetString("from-file")
	file, err := parser.ParseScalarsFile(fromFile)
	if err != nil {
		return fmt.Errorf("failed to parse scalars file: %w", err)
	}

	scalars := timeutils.ResolveScalars(file.Scalars, time.Now())
	path, err := writeScalars(cfg.LogDir, scalars)
	if err != nil {
		return err
	}
	log.V(1).Info("Wrote scalars", "path", path, "count", len(scalars))

	counts := make(map[string]int)
	for _, s := range scalars {
		counts[s.Tag]++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged %d scalars from %s\n", len(scalars), fromFile)
	for tag, count := range counts {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d points\n", tag, count)
	}
	return nil
}
