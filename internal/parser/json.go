package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

func ParseJSONSweep(reader io.Reader) (*models.SweepFile, error) {
	var data models.SweepFile
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON sweep: %w", err)
	}

	return &data, nil
}

func ParseJSONHParams(reader io.Reader) (map[string]any, error) {
	var data models.HParamsFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON hparams: %w", err)
	}

	return data.HParams, nil
}

func ParseJSONScalars(reader io.Reader) (*models.ScalarsFile, error) {
	var data models.ScalarsFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON scalars: %w", err)
	}

	return &data, nil
}
