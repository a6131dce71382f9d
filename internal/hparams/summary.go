// Package hparams builds TensorBoard hyperparameter sweep records and writes
// them to run event logs.
package hparams

import (
	"fmt"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

// AccuracyTag is the scalar tag a Keras-style TensorBoard writer uses for
// per-epoch accuracy.
const AccuracyTag = "epoch_accuracy"

// BuildExperimentSummary describes the classic units/dropout/optimizer sweep.
// Each domain is taken as given: order is kept and duplicates are not removed.
func BuildExperimentSummary(numUnits, dropoutRates []float64, optimizers []string) models.ExperimentSummary {
	return models.ExperimentSummary{
		HParamInfos: []models.HParamInfo{
			{
				Name:        "num_units",
				DisplayName: "Number of units",
				Type:        models.DataTypeFloat64,
				Domain:      toDomain(numUnits),
			},
			{
				Name:        "dropout_rate",
				DisplayName: "Dropout rate",
				Type:        models.DataTypeFloat64,
				Domain:      toDomain(dropoutRates),
			},
			{
				Name:        "optimizer",
				DisplayName: "Optimizer",
				Type:        models.DataTypeString,
				Domain:      toDomain(optimizers),
			},
		},
		MetricInfos: []models.MetricInfo{
			{
				Tag:         AccuracyTag,
				DisplayName: "Accuracy",
			},
		},
	}
}

func toDomain[T float64 | string | bool](values []T) []any {
	domain := make([]any, len(values))
	for i, v := range values {
		domain[i] = v
	}
	return domain
}

// BuildFromSweep builds a summary from a sweep file. A parameter without a
// type takes the type of its first value.
func BuildFromSweep(sweep models.SweepFile) (models.ExperimentSummary, error) {
	summary := models.ExperimentSummary{
		Name:        sweep.Name,
		Description: sweep.Description,
		HParamInfos: make([]models.HParamInfo, 0, len(sweep.HParams)),
		MetricInfos: make([]models.MetricInfo, 0, len(sweep.Metrics)),
	}

	for _, spec := range sweep.HParams {
		info, err := buildHParamInfo(spec)
		if err != nil {
			return models.ExperimentSummary{}, err
		}
		summary.HParamInfos = append(summary.HParamInfos, info)
	}

	for _, spec := range sweep.Metrics {
		if spec.Tag == "" {
			return models.ExperimentSummary{}, fmt.Errorf("metric tag is required")
		}
		datasetType, err := models.ParseDatasetType(spec.DatasetType)
		if err != nil {
			return models.ExperimentSummary{}, fmt.Errorf("metric %s: %w", spec.Tag, err)
		}
		summary.MetricInfos = append(summary.MetricInfos, models.MetricInfo{
			Group:       spec.Group,
			Tag:         spec.Tag,
			DisplayName: spec.DisplayName,
			Description: spec.Description,
			DatasetType: datasetType,
		})
	}

	return summary, nil
}

func buildHParamInfo(spec models.HParamSpec) (models.HParamInfo, error) {
	if spec.Name == "" {
		return models.HParamInfo{}, fmt.Errorf("hparam name is required")
	}

	dataType, err := models.ParseDataType(spec.Type)
	if err != nil {
		return models.HParamInfo{}, fmt.Errorf("hparam %s: %w", spec.Name, err)
	}

	info := models.HParamInfo{
		Name:        spec.Name,
		DisplayName: spec.DisplayName,
		Description: spec.Description,
		Type:        dataType,
	}

	if spec.Min != nil || spec.Max != nil {
		if len(spec.Values) > 0 {
			return models.HParamInfo{}, fmt.Errorf("hparam %s: values and min/max are mutually exclusive", spec.Name)
		}
		if spec.Min == nil || spec.Max == nil {
			return models.HParamInfo{}, fmt.Errorf("hparam %s: both min and max are required for an interval", spec.Name)
		}
		if info.Type != models.DataTypeUnset && info.Type != models.DataTypeFloat64 {
			return models.HParamInfo{}, fmt.Errorf("hparam %s: interval domains must be float64", spec.Name)
		}
		info.Type = models.DataTypeFloat64
		info.Interval = &models.Interval{Min: *spec.Min, Max: *spec.Max}
		return info, nil
	}

	info.Domain = make([]any, 0, len(spec.Values))
	for _, raw := range spec.Values {
		value, valueType, err := Normalize(raw)
		if err != nil {
			return models.HParamInfo{}, fmt.Errorf("hparam %s: %w", spec.Name, err)
		}
		if info.Type == models.DataTypeUnset {
			info.Type = valueType
		}
		if valueType != info.Type {
			return models.HParamInfo{}, fmt.Errorf("hparam %s: value %v is not of type %s", spec.Name, raw, info.Type)
		}
		info.Domain = append(info.Domain, value)
	}

	return info, nil
}

// Normalize converts a decoded hyperparameter value to float64, string or
// bool and reports its data type.
func Normalize(v any) (any, models.DataType, error) {
	switch x := v.(type) {
	case float64:
		return x, models.DataTypeFloat64, nil
	case float32:
		return float64(x), models.DataTypeFloat64, nil
	case int:
		return float64(x), models.DataTypeFloat64, nil
	case int32:
		return float64(x), models.DataTypeFloat64, nil
	case int64:
		return float64(x), models.DataTypeFloat64, nil
	case uint64:
		return float64(x), models.DataTypeFloat64, nil
	case string:
		return x, models.DataTypeString, nil
	case bool:
		return x, models.DataTypeBool, nil
	}
	return nil, models.DataTypeUnset, fmt.Errorf("unsupported value %v (%T)", v, v)
}
