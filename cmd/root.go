package cmd

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/mlflow-hparams/internal/config"
	"github.com/imishinist/mlflow-hparams/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mlflow-hparams",
	Short: "TensorBoard hparams sweep logging for MLflow",
	Long: `A command line tool that writes TensorBoard hyperparameter sweep records
(experiment summary, session start/end, scalars) to a run's event log and
syncs those records into an MLflow tracking run.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI (overrides MLFLOW_TRACKING_URI)")
	rootCmd.PersistentFlags().String("experiment-id", "", "Experiment ID (overrides MLFLOW_EXPERIMENT_ID)")
	rootCmd.PersistentFlags().String("log-dir", "", "Run log directory holding event files (overrides MLFLOW_LOG_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console/json)")
	viper.BindPFlag("tracking_uri", rootCmd.PersistentFlags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", rootCmd.PersistentFlags().Lookup("experiment-id"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	viper.SetEnvPrefix("MLFLOW")
	viper.AutomaticEnv()

	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read config file %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
	}
}

// setup loads and validates the configuration and builds the logger.
func setup() (*config.Config, logr.Logger, error) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return nil, logr.Discard(), fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, logr.Discard(), err
	}
	return cfg, log, nil
}
