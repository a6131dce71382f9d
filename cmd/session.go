package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-hparams/internal/config"
	"github.com/imishinist/mlflow-hparams/internal/hparams"
	"github.com/imishinist/mlflow-hparams/internal/mlflow"
	"github.com/imishinist/mlflow-hparams/internal/models"
	"github.com/imishinist/mlflow-hparams/internal/parser"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Record sweep sessions",
	Long:  "Record the start and end of one training run within a sweep",
}

var sessionStartCmd = &cobra.Command{
	Use:     "start",
	Short:   "Write a session start with the run's hyperparameters",
	Example: `  mlflow-hparams session start --log-dir logs/run1 --hparam num_units=16 --hparam dropout_rate=0.1 --hparam optimizer=adam`,
	RunE:    sessionStart,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Write a session end with the run's terminal status",
	RunE:  sessionEnd,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)

	sessionStartCmd.Flags().StringArray("hparam", []string{}, "Hyperparameters in key=value format")
	sessionStartCmd.Flags().String("from-file", "", "Load hyperparameters from file (JSON/YAML)")
	sessionStartCmd.Flags().String("sweep", "", "Sweep definition file; its summary is written first if the log has none")
	sessionStartCmd.Flags().Bool("strict", false, "Reject hyperparameters outside the sweep's domains")
	sessionStartCmd.Flags().String("group", "", "Session group name (default: random)")
	sessionStartCmd.Flags().String("model-uri", "", "URI of the trained model")
	sessionStartCmd.Flags().String("run-id", "", "Also log the hyperparameters to this MLflow run")

	sessionEndCmd.Flags().String("status", "SUCCESS", "Session status (SUCCESS/FAILURE/RUNNING/UNKNOWN)")
}

// parseHParamValue types a command line value: numbers become float64,
// true/false become bool, anything else stays a string.
func parseHParamValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}

func parseHParams(values []string) (map[string]any, error) {
	result := make(map[string]any, len(values))
	for _, value := range values {
		parts := strings.SplitN(value, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid hparam format: %s (expected key=value)", value)
		}
		result[parts[0]] = parseHParamValue(parts[1])
	}
	return result, nil
}

// mirrorHParams logs session hyperparameters straight to an MLflow run, one
// parameter at a time in key order.
func mirrorHParams(ctx context.Context, cfg *config.Config, runID string, values map[string]any) error {
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := client.LogParam(ctx, runID, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// collectHParams merges --from-file values with --hparam flags; flags win.
func collectHParams(cmd *cobra.Command) (map[string]any, error) {
	values, _ := cmd.Flags().GetStringArray("hparam")
	fromFile, _ := cmd.Flags().GetString("from-file")

	if len(values) == 0 && fromFile == "" {
		return nil, fmt.Errorf("either --hparam or --from-file must be specified")
	}

	merged := make(map[string]any)
	if fromFile != "" {
		fileValues, err := parser.ParseHParamsFile(fromFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse hparams file: %w", err)
		}
		for k, v := range fileValues {
			merged[k] = v
		}
	}
	flagValues, err := parseHParams(values)
	if err != nil {
		return nil, err
	}
	for k, v := range flagValues {
		merged[k] = v
	}
	return merged, nil
}

// loadSweep builds the sweep described by path. It returns nil when no file
// is given; strict requires one.
func loadSweep(path string, strict bool) (*hparams.Sweep, error) {
	if path == "" {
		if strict {
			return nil, fmt.Errorf("--strict requires --sweep")
		}
		return nil, nil
	}

	sweepDef, err := parser.ParseSweepFile(path)
	if err != nil {
		return nil, err
	}
	summary, err := hparams.BuildFromSweep(*sweepDef)
	if err != nil {
		return nil, err
	}
	return hparams.NewSweep(summary), nil
}

func sessionStart(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	sweepFile, _ := cmd.Flags().GetString("sweep")
	strict, _ := cmd.Flags().GetBool("strict")
	group, _ := cmd.Flags().GetString("group")
	modelURI, _ := cmd.Flags().GetString("model-uri")
	runID, _ := cmd.Flags().GetString("run-id")

	merged, err := collectHParams(cmd)
	if err != nil {
		return err
	}
	sweep, err := loadSweep(sweepFile, strict)
	if err != nil {
		return err
	}

	start, err := hparams.NewSessionStart(merged)
	if err != nil {
		return err
	}
	if group != "" {
		start.GroupName = group
	}
	start.ModelURI = modelURI

	if strict {
		if err := hparams.Validate(sweep.Summary(), start); err != nil {
			return err
		}
	}

	// Resume from what the log already holds
	record, err := loadRecord(cfg.LogDir)
	if err != nil {
		return err
	}

	w := &logWriter{dir: cfg.LogDir}
	defer w.Close()

	if err := record.Resume(w, sweep).Start(start); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.V(1).Info("Wrote session start", "path", w.Path(), "group", start.GroupName)

	if runID != "" {
		if err := mirrorHParams(context.Background(), cfg, runID, start.HParams); err != nil {
			return err
		}
		log.Info("Logged hparams", "runID", runID, "count", len(start.HParams))
	}

	keys := make([]string, 0, len(start.HParams))
	for k := range start.HParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully started session %s with %d hparams\n", start.GroupName, len(keys))
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", k, start.HParams[k])
	}
	return nil
}

func sessionEnd(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	statusFlag, _ := cmd.Flags().GetString("status")
	status, err := models.ParseSessionStatus(statusFlag)
	if err != nil {
		return err
	}

	record, err := loadRecord(cfg.LogDir)
	if err != nil {
		return err
	}

	w := &logWriter{dir: cfg.LogDir}
	defer w.Close()

	if err := record.Resume(w, nil).End(hparams.NewSessionEnd(status)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.V(1).Info("Wrote session end", "path", w.Path(), "status", status.String())

	fmt.Fprintf(cmd.OutOrStdout(), "Session ended with status %s\n", status)
	return nil
}
