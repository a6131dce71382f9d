package models

import "time"

// Scalar is one scalar summary point read from or written to an event log.
type Scalar struct {
	Tag       string    `json:"tag" yaml:"tag"`
	Value     float64   `json:"value" yaml:"value"`
	Step      int64     `json:"step" yaml:"step"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

type ScalarPoint struct {
	Tag       string     `json:"tag" yaml:"tag"`
	Value     float64    `json:"value" yaml:"value"`
	Step      *int64     `json:"step,omitempty" yaml:"step,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

type ScalarsFile struct {
	Scalars []ScalarPoint `json:"scalars" yaml:"scalars"`
}

type Metric struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Step      int64     `json:"step"`
}

type TimeConfig struct {
	Resolution string // none, 1m, 5m, 1h
	Alignment  string // floor, ceil, round
}
