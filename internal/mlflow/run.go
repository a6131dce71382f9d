package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

const runNameTag = "mlflow.runName"

func (c *Client) CreateRun(ctx context.Context, config *models.RunConfig) (*models.RunInfo, error) {
	// Get experiment ID
	var experimentID string

	if config.ExperimentID != nil {
		experimentID = *config.ExperimentID
	} else {
		return nil, fmt.Errorf("experiment ID must be provided")
	}

	// Generate run name if not provided
	runName := "sweep-" + time.Now().Format("2006-01-02-15-04-05")
	if config.RunName != nil {
		runName = *config.RunName
	}

	// Prepare tags
	tags := make([]ml.RunTag, 0, len(config.Tags)+1)
	for key, value := range config.Tags {
		tags = append(tags, ml.RunTag{
			Key:   key,
			Value: value,
		})
	}
	// Add run name as tag
	tags = append(tags, ml.RunTag{
		Key:   runNameTag,
		Value: runName,
	})

	// Create run
	startTime := time.Now()
	resp, err := c.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    startTime.UnixMilli(),
		Tags:         tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &models.RunInfo{
		RunID:        resp.Run.Info.RunId,
		ExperimentID: experimentID,
		RunName:      runName,
		Status:       string(models.RunStatusRunning),
		ArtifactURI:  resp.Run.Info.ArtifactUri,
		StartTime:    startTime,
		Tags:         config.Tags,
	}, nil
}

func toUpdateRunStatus(status models.RunStatus) ml.UpdateRunStatus {
	switch status {
	case models.RunStatusRunning:
		return ml.UpdateRunStatusRunning
	case models.RunStatusFailed:
		return ml.UpdateRunStatusFailed
	case models.RunStatusKilled:
		return ml.UpdateRunStatusKilled
	default:
		return ml.UpdateRunStatusFinished
	}
}

func (c *Client) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	// Convert status to MLflow status type
	updateRun := ml.UpdateRun{
		RunId:  runID,
		Status: toUpdateRunStatus(status),
	}

	// Set end time for terminal statuses
	if status.IsTerminal() {
		updateRun.EndTime = time.Now().UnixMilli()
	}

	_, err := c.client.Experiments.UpdateRun(ctx, updateRun)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*models.RunInfo, error) {
	resp, err := c.client.Experiments.GetRun(ctx, ml.GetRunRequest{
		RunId: runID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run := resp.Run
	tags := make(map[string]string)
	for _, tag := range run.Data.Tags {
		tags[tag.Key] = tag.Value
	}

	runInfo := &models.RunInfo{
		RunID:        run.Info.RunId,
		ExperimentID: run.Info.ExperimentId,
		RunName:      tags[runNameTag],
		Status:       string(run.Info.Status),
		ArtifactURI:  run.Info.ArtifactUri,
		StartTime:    time.UnixMilli(run.Info.StartTime),
		Tags:         tags,
	}

	if run.Info.EndTime != 0 {
		endTime := time.UnixMilli(run.Info.EndTime)
		runInfo.EndTime = &endTime
	}

	return runInfo, nil
}
