package callback

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/hparams"
	"github.com/imishinist/mlflow-hparams/internal/models"
)

// HParams records one run of a sweep. On train begin it opens an event file in
// LogDir and writes the sweep summary and session start; on train end it
// writes the session end and closes the file, whether training failed or not.
type HParams struct {
	LogDir  string
	Sweep   *hparams.Sweep
	HParams map[string]any
	Log     logr.Logger

	writer  *eventlog.Writer
	emitter *hparams.Emitter
}

var _ Callback = &HParams{}

func (h *HParams) OnTrainBegin(ctx context.Context) error {
	start, err := hparams.NewSessionStart(h.HParams)
	if err != nil {
		return err
	}

	w, err := eventlog.Open(h.LogDir)
	if err != nil {
		return err
	}

	emitter := hparams.NewEmitter(w, h.Sweep)
	if err := emitter.Start(start); err != nil {
		return errors.Join(err, w.Close())
	}

	h.writer, h.emitter = w, emitter
	h.Log.V(1).Info("Session started", "logDir", h.LogDir, "group", start.GroupName, "hparams", start.HParams)
	return nil
}

func (h *HParams) OnEpochEnd(context.Context, int, Logs) error {
	return nil
}

func (h *HParams) OnTrainEnd(ctx context.Context, trainErr error) error {
	if h.writer == nil {
		return fmt.Errorf("hparams session for %s was never started", h.LogDir)
	}

	status := models.SessionStatusSuccess
	if trainErr != nil {
		status = models.SessionStatusFailure
	}

	endErr := h.emitter.End(hparams.NewSessionEnd(status))
	closeErr := h.writer.Close()
	h.writer, h.emitter = nil, nil

	h.Log.V(1).Info("Session ended", "logDir", h.LogDir, "status", status.String())
	return errors.Join(endErr, closeErr)
}
