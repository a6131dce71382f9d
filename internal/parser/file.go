package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

// parseFile opens path and hands it to the JSON or YAML parser picked by its
// extension.
func parseFile[T any](path string, parseJSON, parseYAML func(io.Reader) (T, error)) (T, error) {
	var zero T

	file, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return parseJSON(file)
	case ".yaml", ".yml":
		return parseYAML(file)
	default:
		return zero, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}

func ParseSweepFile(path string) (*models.SweepFile, error) {
	return parseFile(path, ParseJSONSweep, ParseYAMLSweep)
}

func ParseHParamsFile(path string) (map[string]any, error) {
	return parseFile(path, ParseJSONHParams, ParseYAMLHParams)
}

func ParseScalarsFile(path string) (*models.ScalarsFile, error) {
	return parseFile(path, ParseJSONScalars, ParseYAMLScalars)
}
