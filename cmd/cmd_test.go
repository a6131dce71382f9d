package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/models"
)

func TestParseHParamValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"16", 16.0},
		{"0.25", 0.25},
		{"true", true},
		{"false", false},
		{"adam", "adam"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHParamValue(tt.in))
		})
	}
}

func TestParseHParams(t *testing.T) {
	got, err := parseHParams([]string{"num_units=16", "optimizer=adam", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"num_units": 16.0, "optimizer": "adam", "note": "a=b"}, got)

	_, err = parseHParams([]string{"num_units"})
	assert.Error(t, err)
	_, err = parseHParams([]string{"=1"})
	assert.Error(t, err)
}

func TestParseTags(t *testing.T) {
	got, err := parseTags([]string{"team=ml", "env=dev"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "ml", "env": "dev"}, got)

	_, err = parseTags([]string{"invalid"})
	assert.Error(t, err)
}

func TestWriteScalars(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1700000000, 0)

	path, err := writeScalars(dir, []models.Scalar{
		{Tag: "epoch_accuracy", Value: 0.5, Step: 0, Timestamp: now},
		{Tag: "epoch_accuracy", Value: 0.75, Step: 1, Timestamp: now.Add(time.Second)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	events, err := eventlog.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[1].Step)
	assert.Equal(t, "epoch_accuracy", events[1].Summary[0].Tag)
	assert.Equal(t, 0.75, *events[1].Summary[0].SimpleValue)
}
