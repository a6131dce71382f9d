package mlflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/databricks/databricks-sdk-go/service/ml"
)

// maxParamsPerBatch is the MLflow limit on params in one log-batch call.
const maxParamsPerBatch = 100

// FormatParam renders a hyperparameter value as an MLflow param string.
func FormatParam(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func paramBatches(params map[string]any) [][]ml.Param {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var batches [][]ml.Param
	for start := 0; start < len(keys); start += maxParamsPerBatch {
		end := start + maxParamsPerBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := make([]ml.Param, 0, end-start)
		for _, key := range keys[start:end] {
			batch = append(batch, ml.Param{Key: key, Value: FormatParam(params[key]), ForceSendFields: []string{"Value"}})
		}
		batches = append(batches, batch)
	}
	return batches
}

func (c *Client) LogParam(ctx context.Context, runID string, key string, value any) error {
	err := c.client.Experiments.LogParam(ctx, ml.LogParam{
		RunId: runID,
		Key:   key,
		Value: FormatParam(value),
	})
	if err != nil {
		return fmt.Errorf("failed to log parameter %s: %w", key, err)
	}

	return nil
}

// LogParams logs typed hyperparameter values in key order.
func (c *Client) LogParams(ctx context.Context, runID string, params map[string]any) error {
	for _, batch := range paramBatches(params) {
		if err := c.client.Experiments.LogBatch(ctx, ml.LogBatch{RunId: runID, Params: batch}); err != nil {
			return fmt.Errorf("failed to log %d parameters: %w", len(batch), err)
		}
	}

	return nil
}
