package hparams

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

func TestExperimentRoundTrip(t *testing.T) {
	summary := BuildExperimentSummary([]float64{16, 32}, []float64{0.1, 0.2}, []string{"adam", "sgd"})

	content, err := EncodeExperiment(summary)
	require.NoError(t, err)

	data, err := DecodePluginData(content)
	require.NoError(t, err)
	require.NotNil(t, data.Experiment)
	assert.Nil(t, data.SessionStart)
	assert.Nil(t, data.SessionEnd)
	assert.Equal(t, int32(pluginDataVersion), data.Version)

	assert.Equal(t, summary.HParamInfos, data.Experiment.HParamInfos)
	assert.Equal(t, summary.MetricInfos, data.Experiment.MetricInfos)
}

func TestExperimentRoundTripWithAllFields(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	summary := models.ExperimentSummary{
		Name:        "sweep",
		Description: "units and rates",
		User:        "ml",
		TimeCreated: created,
		HParamInfos: []models.HParamInfo{
			{Name: "lr", DisplayName: "Learning rate", Description: "step size", Type: models.DataTypeFloat64, Interval: &models.Interval{Min: 0.001, Max: 0.1}},
			{Name: "bn", Type: models.DataTypeBool, Domain: []any{true, false}},
		},
		MetricInfos: []models.MetricInfo{
			{Group: "validation", Tag: "epoch_accuracy", DisplayName: "Accuracy", Description: "top-1", DatasetType: models.DatasetTypeValidation},
			{Group: "train", Tag: "epoch_loss", DatasetType: models.DatasetTypeTraining},
		},
	}

	content, err := EncodeExperiment(summary)
	require.NoError(t, err)
	data, err := DecodePluginData(content)
	require.NoError(t, err)
	require.NotNil(t, data.Experiment)

	got := *data.Experiment
	assert.True(t, created.Equal(got.TimeCreated))
	got.TimeCreated = created
	assert.Equal(t, summary, got)
}

func TestEncodeExperimentRejectsUnsupportedDomain(t *testing.T) {
	_, err := EncodeExperiment(models.ExperimentSummary{
		HParamInfos: []models.HParamInfo{{Name: "x", Domain: []any{struct{}{}}}},
	})
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	start, err := NewSessionStart(map[string]any{"num_units": 16, "dropout_rate": 0.1, "optimizer": "adam"})
	require.NoError(t, err)
	start.ModelURI = "models:/mnist/1"

	content, err := EncodeSessionStart(start)
	require.NoError(t, err)
	data, err := DecodePluginData(content)
	require.NoError(t, err)
	require.NotNil(t, data.SessionStart)

	got := data.SessionStart
	assert.Equal(t, map[string]any{"num_units": 16.0, "dropout_rate": 0.1, "optimizer": "adam"}, got.HParams)
	assert.Equal(t, start.GroupName, got.GroupName)
	assert.Equal(t, "models:/mnist/1", got.ModelURI)
	assert.WithinDuration(t, start.StartTime, got.StartTime, time.Millisecond)

	end := NewSessionEnd(models.SessionStatusSuccess)
	data, err = DecodePluginData(EncodeSessionEnd(end))
	require.NoError(t, err)
	require.NotNil(t, data.SessionEnd)
	assert.Equal(t, models.SessionStatusSuccess, data.SessionEnd.Status)
	assert.WithinDuration(t, end.EndTime, data.SessionEnd.EndTime, time.Millisecond)
}

func TestEncodeSessionStartIsDeterministic(t *testing.T) {
	start := models.SessionStart{HParams: map[string]any{"a": 1.0, "b": "x", "c": true, "d": 2.5}}
	first, err := EncodeSessionStart(start)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := EncodeSessionStart(start)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodePluginDataRejectsGarbage(t *testing.T) {
	_, err := DecodePluginData([]byte{0x12, 0x05, 0x01})
	assert.Error(t, err)
}
