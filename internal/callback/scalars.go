package callback

import (
	"context"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/imishinist/mlflow-hparams/internal/eventlog"
)

// Scalars writes each epoch's logs as `epoch_<name>` scalar summaries at
// step = epoch, the way a Keras TensorBoard callback does.
type Scalars struct {
	LogDir string
	Log    logr.Logger

	writer *eventlog.Writer
}

var _ Callback = &Scalars{}

func (s *Scalars) OnTrainBegin(ctx context.Context) error {
	w, err := eventlog.Open(s.LogDir)
	if err != nil {
		return err
	}
	s.writer = w
	return nil
}

func (s *Scalars) OnEpochEnd(ctx context.Context, epoch int, logs Logs) error {
	names := make([]string, 0, len(logs))
	for name := range logs {
		names = append(names, name)
	}
	sort.Strings(names)

	event := eventlog.Event{WallTime: time.Now(), Step: int64(epoch)}
	for _, name := range names {
		value := logs[name]
		event.Summary = append(event.Summary, eventlog.SummaryValue{
			Tag:         "epoch_" + name,
			SimpleValue: &value,
		})
	}
	if len(event.Summary) == 0 {
		return nil
	}

	s.Log.V(2).Info("Epoch scalars", "epoch", epoch, "count", len(event.Summary))
	return s.writer.Write(event)
}

func (s *Scalars) OnTrainEnd(ctx context.Context, trainErr error) error {
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}
