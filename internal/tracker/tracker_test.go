package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-hparams/internal/callback"
	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/hparams"
	"github.com/imishinist/mlflow-hparams/internal/models"
)

type fakeRun struct {
	params  map[string]any
	metrics []models.Metric
	status  models.RunStatus
	err     error
}

func (f *fakeRun) LogParams(ctx context.Context, runID string, params map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.params = params
	return nil
}

func (f *fakeRun) LogBatchMetrics(ctx context.Context, runID string, metrics []models.Metric) error {
	f.metrics = append(f.metrics, metrics...)
	return nil
}

func (f *fakeRun) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	f.status = status
	return nil
}

func train(t *testing.T, dir string, fail bool) models.ExperimentSummary {
	t.Helper()
	summary := hparams.BuildExperimentSummary([]float64{16, 32}, []float64{0.1, 0.2}, []string{"adam", "sgd"})
	callbacks := []callback.Callback{
		&callback.Scalars{LogDir: dir, Log: logr.Discard()},
		&callback.HParams{
			LogDir:  dir,
			Sweep:   hparams.NewSweep(summary),
			HParams: map[string]any{"num_units": 16, "dropout_rate": 0.1, "optimizer": "adam"},
			Log:     logr.Discard(),
		},
	}

	err := callback.Run(context.Background(), callbacks, func(ctx context.Context, report callback.EpochFunc) error {
		for epoch := 0; epoch < 5; epoch++ {
			if err := report(epoch, callback.Logs{"accuracy": 0.25 * float64(epoch%4), "loss": 1}); err != nil {
				return err
			}
		}
		if fail {
			return errors.New("diverged")
		}
		return nil
	})
	if fail {
		require.Error(t, err)
	} else {
		require.NoError(t, err)
	}
	return summary
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	summary := train(t, dir, false)

	record, err := Load(dir)
	require.NoError(t, err)

	require.NotNil(t, record.Summary)
	assert.Equal(t, summary.HParamInfos, record.Summary.HParamInfos)
	assert.Equal(t, summary.MetricInfos, record.Summary.MetricInfos)

	require.Len(t, record.Sessions, 1)
	session := record.Sessions[0]
	assert.Equal(t, 0.1, session.Start.HParams["dropout_rate"])
	assert.Equal(t, "adam", session.Start.HParams["optimizer"])
	require.NotNil(t, session.End)
	assert.Equal(t, models.SessionStatusSuccess, session.End.Status)

	var accuracy []models.Scalar
	for _, s := range record.Scalars {
		if s.Tag == hparams.AccuracyTag {
			accuracy = append(accuracy, s)
		}
	}
	require.Len(t, accuracy, 5)
	assert.Equal(t, int64(0), accuracy[0].Step)
	assert.Equal(t, int64(4), accuracy[4].Step)
	assert.Equal(t, 0.5, accuracy[2].Value)
}

func TestReplayTensorScalars(t *testing.T) {
	events := []eventlog.Event{{
		WallTime: time.Now(),
		Step:     3,
		Summary: []eventlog.SummaryValue{
			{Tag: "epoch_loss", PluginName: "scalars", Tensor: &eventlog.Tensor{DType: eventlog.DTFloat, FloatVal: []float32{0.5}}},
			{Tag: "histogram", PluginName: "histograms", Tensor: &eventlog.Tensor{DType: eventlog.DTFloat, FloatVal: []float32{1}}},
		},
	}}

	record, err := Replay(events)
	require.NoError(t, err)
	require.Len(t, record.Scalars, 1)
	assert.Equal(t, "epoch_loss", record.Scalars[0].Tag)
	assert.Equal(t, 0.5, record.Scalars[0].Value)
	assert.Equal(t, int64(3), record.Scalars[0].Step)
}

func TestReplayRejectsEndWithoutStart(t *testing.T) {
	event := eventlog.Event{Summary: []eventlog.SummaryValue{{
		Tag:           hparams.SessionEndTag,
		PluginName:    hparams.PluginName,
		PluginContent: hparams.EncodeSessionEnd(models.SessionEnd{Status: models.SessionStatusSuccess}),
	}}}

	_, err := Replay([]eventlog.Event{event})
	assert.True(t, errors.Is(err, hparams.ErrOutOfOrder))
}

func TestReplayLeavesOpenSession(t *testing.T) {
	content, err := hparams.EncodeSessionStart(models.SessionStart{HParams: map[string]any{"optimizer": "sgd"}})
	require.NoError(t, err)

	record, err := Replay([]eventlog.Event{{Summary: []eventlog.SummaryValue{{
		Tag: hparams.SessionStartTag, PluginName: hparams.PluginName, PluginContent: content,
	}}}})
	require.NoError(t, err)
	assert.Nil(t, record.Summary)
	require.Len(t, record.Sessions, 1)
	assert.Nil(t, record.Sessions[0].End)
	assert.True(t, record.Open())
}

func TestResumeKeepsLogReplayable(t *testing.T) {
	dir := t.TempDir()
	summary := hparams.BuildExperimentSummary([]float64{16}, []float64{0.1}, []string{"adam"})

	appendRecords := func(write func(e *hparams.Emitter) error) error {
		record, err := Load(dir)
		require.NoError(t, err)
		w, err := eventlog.Open(dir)
		require.NoError(t, err)
		defer w.Close()
		return write(record.Resume(w, hparams.NewSweep(summary)))
	}

	err := appendRecords(func(e *hparams.Emitter) error {
		return e.End(hparams.NewSessionEnd(models.SessionStatusSuccess))
	})
	assert.True(t, errors.Is(err, hparams.ErrOutOfOrder))

	for i := 0; i < 2; i++ {
		require.NoError(t, appendRecords(func(e *hparams.Emitter) error {
			return e.Start(models.SessionStart{HParams: map[string]any{"num_units": 16.0}})
		}))
		err = appendRecords(func(e *hparams.Emitter) error {
			return e.Start(models.SessionStart{HParams: map[string]any{"num_units": 16.0}})
		})
		assert.True(t, errors.Is(err, hparams.ErrOutOfOrder))
		require.NoError(t, appendRecords(func(e *hparams.Emitter) error {
			return e.End(hparams.NewSessionEnd(models.SessionStatusSuccess))
		}))
	}

	record, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, record.Summary)
	require.Len(t, record.Sessions, 2)
	assert.False(t, record.Open())

	events, err := eventlog.ReadDir(dir)
	require.NoError(t, err)
	summaries := 0
	for _, e := range events {
		if e.Summary[0].Tag == hparams.ExperimentTag {
			summaries++
		}
	}
	assert.Equal(t, 1, summaries)
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	train(t, dir, false)

	record, err := Load(dir)
	require.NoError(t, err)

	run := &fakeRun{}
	result, err := Sync(context.Background(), run, "run-1", record, Options{
		Params: map[string]any{"learning_rate": 0.01, "optimizer": "rmsprop"},
		Time:   models.TimeConfig{Resolution: "none"},
		EndRun: true,
		Log:    logr.Discard(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0.1, run.params["dropout_rate"])
	assert.Equal(t, "adam", run.params["optimizer"])
	assert.Equal(t, 0.01, run.params["learning_rate"])
	assert.Equal(t, 16.0, run.params["num_units"])

	assert.Equal(t, 10, result.Metrics)
	assert.Len(t, run.metrics, 10)
	assert.Equal(t, int64(0), run.metrics[0].Step)
	assert.Equal(t, int64(4), run.metrics[len(run.metrics)-1].Step)

	assert.Equal(t, models.RunStatusFinished, run.status)
	assert.Equal(t, models.RunStatusFinished, result.Status)
}

func TestSyncFailedSession(t *testing.T) {
	dir := t.TempDir()
	train(t, dir, true)

	record, err := Load(dir)
	require.NoError(t, err)

	run := &fakeRun{}
	_, err = Sync(context.Background(), run, "run-1", record, Options{EndRun: true})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.status)
}

func TestSyncWithoutEndRunLeavesStatus(t *testing.T) {
	run := &fakeRun{}
	result, err := Sync(context.Background(), run, "run-1", &Record{}, Options{})
	require.NoError(t, err)
	assert.Empty(t, run.status)
	assert.Nil(t, run.params)
	assert.Zero(t, result.Metrics)
}

func TestSyncPropagatesErrors(t *testing.T) {
	run := &fakeRun{err: errors.New("unavailable")}
	record := &Record{Sessions: []models.Session{{Start: models.SessionStart{HParams: map[string]any{"x": 1.0}}}}}
	_, err := Sync(context.Background(), run, "run-1", record, Options{})
	assert.Error(t, err)

	_, err = Sync(context.Background(), &fakeRun{}, "run-1", &Record{Scalars: []models.Scalar{{Tag: "a"}}}, Options{
		Time: models.TimeConfig{Resolution: "2d"},
	})
	assert.Error(t, err)
}
