package mlflow

import (
	"fmt"
	"net/http"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/httpclient"

	"github.com/imishinist/mlflow-hparams/internal/config"
)

type Client struct {
	client     *databricks.WorkspaceClient
	config     *config.Config
	httpClient *http.Client
	// apiClient sends authenticated REST calls the SDK has no method for.
	// Only set for Databricks workspaces.
	apiClient *httpclient.ApiClient
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	databricksConfig, err := workspaceConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	c := &Client{
		client:     client,
		config:     cfg,
		httpClient: &http.Client{},
	}

	// Artifact credentials are only served by Databricks
	if cfg.IsDatabricks() {
		apiClient, err := client.Config.NewApiClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create Databricks API client: %w", err)
		}
		c.apiClient = apiClient
	}

	return c, nil
}

// workspaceConfig picks the SDK configuration for the tracking URI. Plain
// MLflow servers speak the same REST API, so they get a placeholder token.
func workspaceConfig(cfg *config.Config) (*databricks.Config, error) {
	if !cfg.IsDatabricks() {
		return &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: "dummy-token-for-regular-mlflow",
		}, nil
	}

	databricksConfig := &databricks.Config{}
	if cfg.TrackingURI == "databricks" {
		databricksConfig.Host = cfg.DatabricksHost
	} else if profile := cfg.GetDatabricksProfile(); profile != "" {
		databricksConfig.Profile = profile
	} else {
		databricksConfig.Host = cfg.TrackingURI
	}

	if cfg.DatabricksToken != "" {
		databricksConfig.Token = cfg.DatabricksToken
	}

	if databricksConfig.Host == "" && databricksConfig.Profile == "" {
		return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST environment variable, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
	}
	return databricksConfig, nil
}
