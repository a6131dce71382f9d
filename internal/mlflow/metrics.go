package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

// maxMetricsPerBatch is the MLflow limit on metrics in one log-batch call.
const maxMetricsPerBatch = 1000

func (c *Client) LogMetric(ctx context.Context, runID string, key string, value float64, timestamp *time.Time, step *int64) error {
	logMetric := ml.LogMetric{
		RunId: runID,
		Key:   key,
		Value: value,
	}

	if timestamp != nil {
		logMetric.Timestamp = timestamp.UnixMilli()
	} else {
		logMetric.Timestamp = time.Now().UnixMilli()
	}

	if step != nil {
		logMetric.Step = *step
		logMetric.ForceSendFields = []string{"Step"}
	}

	err := c.client.Experiments.LogMetric(ctx, logMetric)
	if err != nil {
		return fmt.Errorf("failed to log metric %s: %w", key, err)
	}

	return nil
}

func metricBatches(metrics []models.Metric) [][]ml.Metric {
	var batches [][]ml.Metric
	for start := 0; start < len(metrics); start += maxMetricsPerBatch {
		end := start + maxMetricsPerBatch
		if end > len(metrics) {
			end = len(metrics)
		}
		batch := make([]ml.Metric, 0, end-start)
		for _, metric := range metrics[start:end] {
			batch = append(batch, ml.Metric{
				Key:             metric.Key,
				Value:           metric.Value,
				Timestamp:       metric.Timestamp.UnixMilli(),
				Step:            metric.Step,
				ForceSendFields: []string{"Value", "Step"},
			})
		}
		batches = append(batches, batch)
	}
	return batches
}

func (c *Client) LogBatchMetrics(ctx context.Context, runID string, metrics []models.Metric) error {
	for _, batch := range metricBatches(metrics) {
		if err := c.client.Experiments.LogBatch(ctx, ml.LogBatch{RunId: runID, Metrics: batch}); err != nil {
			return fmt.Errorf("failed to log %d metrics: %w", len(batch), err)
		}
	}
	return nil
}
