package models

import (
	"fmt"
	"strings"
	"time"
)

// DataType is the declared type of a hyperparameter. Values follow the
// TensorBoard hparams plugin numbering.
type DataType int32

const (
	DataTypeUnset   DataType = 0
	DataTypeString  DataType = 1
	DataTypeBool    DataType = 2
	DataTypeFloat64 DataType = 3
)

var dataTypeNames = map[DataType]string{
	DataTypeUnset:   "DATA_TYPE_UNSET",
	DataTypeString:  "DATA_TYPE_STRING",
	DataTypeBool:    "DATA_TYPE_BOOL",
	DataTypeFloat64: "DATA_TYPE_FLOAT64",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DATA_TYPE(%d)", int32(t))
}

func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDataType accepts the short names used in sweep files (float64, string, bool)
// as well as the full enum names.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(s) {
	case "", "unset", "data_type_unset":
		return DataTypeUnset, nil
	case "string", "data_type_string":
		return DataTypeString, nil
	case "bool", "data_type_bool":
		return DataTypeBool, nil
	case "float64", "float", "number", "data_type_float64":
		return DataTypeFloat64, nil
	}
	return DataTypeUnset, fmt.Errorf("invalid data type: %s (valid: float64, string, bool)", s)
}

// Interval is a continuous hyperparameter domain.
type Interval struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// HParamInfo describes one tunable parameter and its legal values. Domain
// elements are float64, string or bool; at most one of Domain and Interval is set.
type HParamInfo struct {
	Name        string    `json:"name" yaml:"name"`
	DisplayName string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Type        DataType  `json:"type" yaml:"type"`
	Domain      []any     `json:"domain,omitempty" yaml:"domain,omitempty"`
	Interval    *Interval `json:"interval,omitempty" yaml:"interval,omitempty"`
}

type DatasetType int32

const (
	DatasetTypeUnknown    DatasetType = 0
	DatasetTypeTraining   DatasetType = 1
	DatasetTypeValidation DatasetType = 2
)

func ParseDatasetType(s string) (DatasetType, error) {
	switch strings.ToLower(s) {
	case "", "unknown":
		return DatasetTypeUnknown, nil
	case "training", "train":
		return DatasetTypeTraining, nil
	case "validation":
		return DatasetTypeValidation, nil
	}
	return DatasetTypeUnknown, fmt.Errorf("invalid dataset type: %s (valid: training, validation)", s)
}

// MetricInfo identifies a tracked scalar metric by its summary tag.
type MetricInfo struct {
	Group       string      `json:"group,omitempty" yaml:"group,omitempty"`
	Tag         string      `json:"tag" yaml:"tag"`
	DisplayName string      `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	DatasetType DatasetType `json:"dataset_type,omitempty" yaml:"dataset_type,omitempty"`
}

// ExperimentSummary describes the design of a whole sweep. It is treated as
// immutable once built.
type ExperimentSummary struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	User        string       `json:"user,omitempty" yaml:"user,omitempty"`
	TimeCreated time.Time    `json:"time_created,omitempty" yaml:"time_created,omitempty"`
	HParamInfos []HParamInfo `json:"hparam_infos" yaml:"hparam_infos"`
	MetricInfos []MetricInfo `json:"metric_infos" yaml:"metric_infos"`
}

// HParam returns the declared hyperparameter with the given name.
func (s *ExperimentSummary) HParam(name string) (HParamInfo, bool) {
	for _, info := range s.HParamInfos {
		if info.Name == name {
			return info, true
		}
	}
	return HParamInfo{}, false
}
