package tracker

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imishinist/mlflow-hparams/internal/models"
	timeutils "github.com/imishinist/mlflow-hparams/internal/time"
)

// RunLogger is the tracking backend a Record is synced into.
// *mlflow.Client implements it.
type RunLogger interface {
	LogParams(ctx context.Context, runID string, params map[string]any) error
	LogBatchMetrics(ctx context.Context, runID string, metrics []models.Metric) error
	UpdateRun(ctx context.Context, runID string, status models.RunStatus) error
}

type Options struct {
	// Params are logged alongside the session hyperparameters; session values
	// win on conflicts.
	Params map[string]any
	Time   models.TimeConfig
	// EndRun sets the run status from the last session's outcome.
	EndRun bool
	Log    logr.Logger
}

type SyncResult struct {
	Params  map[string]any
	Metrics int
	Status  models.RunStatus
}

// Sync pushes a Record into runID: hyperparameters of every session become run
// params (later sessions overwrite earlier ones), scalars become metrics.
func Sync(ctx context.Context, logger RunLogger, runID string, record *Record, opts Options) (*SyncResult, error) {
	result := &SyncResult{Params: make(map[string]any)}

	for k, v := range opts.Params {
		result.Params[k] = v
	}
	for _, session := range record.Sessions {
		for k, v := range session.Start.HParams {
			result.Params[k] = v
		}
	}

	if len(result.Params) > 0 {
		if err := logger.LogParams(ctx, runID, result.Params); err != nil {
			return nil, fmt.Errorf("failed to log hparams: %w", err)
		}
		opts.Log.Info("Logged hparams", "runID", runID, "count", len(result.Params))
	}

	metrics, err := timeutils.ScalarsToMetrics(record.Scalars, opts.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to process scalars: %w", err)
	}
	if len(metrics) > 0 {
		if err := logger.LogBatchMetrics(ctx, runID, metrics); err != nil {
			return nil, fmt.Errorf("failed to log metrics: %w", err)
		}
		opts.Log.Info("Logged metrics", "runID", runID, "count", len(metrics))
	}
	result.Metrics = len(metrics)

	if opts.EndRun {
		status := models.RunStatusRunning
		if session, ok := record.LastSession(); ok && session.End != nil {
			status = models.RunStatusFromSession(session.End.Status)
		}
		if err := logger.UpdateRun(ctx, runID, status); err != nil {
			return nil, fmt.Errorf("failed to update run status: %w", err)
		}
		result.Status = status
		opts.Log.Info("Updated run", "runID", runID, "status", status)
	}

	return result, nil
}
