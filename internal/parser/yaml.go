package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

func ParseYAMLSweep(reader io.Reader) (*models.SweepFile, error) {
	var data models.SweepFile
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML sweep: %w", err)
	}

	return &data, nil
}

func ParseYAMLHParams(reader io.Reader) (map[string]any, error) {
	var data models.HParamsFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML hparams: %w", err)
	}

	return data.HParams, nil
}

func ParseYAMLScalars(reader io.Reader) (*models.ScalarsFile, error) {
	var data models.ScalarsFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML scalars: %w", err)
	}

	return &data, nil
}
