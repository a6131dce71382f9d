package models

// HParamsFile holds the hyperparameter values of a single session.
type HParamsFile struct {
	HParams map[string]any `json:"hparams" yaml:"hparams"`
}

type HParamSpec struct {
	Name        string   `json:"name" yaml:"name"`
	DisplayName string   `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Values      []any    `json:"values,omitempty" yaml:"values,omitempty"`
	Min         *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

type MetricSpec struct {
	Tag         string `json:"tag" yaml:"tag"`
	Group       string `json:"group,omitempty" yaml:"group,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	DatasetType string `json:"dataset_type,omitempty" yaml:"dataset_type,omitempty"`
}

// SweepFile is the on-disk description of a sweep design.
type SweepFile struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	HParams     []HParamSpec `json:"hparams" yaml:"hparams"`
	Metrics     []MetricSpec `json:"metrics" yaml:"metrics"`
}
