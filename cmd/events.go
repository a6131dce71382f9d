package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/imishinist/mlflow-hparams/internal/tracker"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect event logs",
}

var eventsDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the sweep records found in the event log",
	Long:  "Print the experiment summary, sessions and scalars recovered from a run's log directory",
	RunE:  eventsDump,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsDumpCmd)

	eventsDumpCmd.Flags().StringP("output", "o", "yaml", "Output format (json/yaml)")
}

func eventsDump(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")

	record, err := tracker.Load(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to load event log: %w", err)
	}

	switch output {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(record); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s (supported: json, yaml)", output)
	}
}
