// Package tracker replays run event logs into an experiment tracking run.
package tracker

import (
	"fmt"

	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/hparams"
	"github.com/imishinist/mlflow-hparams/internal/models"
)

const scalarsPlugin = "scalars"

// Record is everything recovered from one run's log directory.
type Record struct {
	Summary  *models.ExperimentSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Sessions []models.Session          `json:"sessions" yaml:"sessions"`
	Scalars  []models.Scalar           `json:"scalars" yaml:"scalars"`
}

// LastSession returns the most recently started session.
func (r *Record) LastSession() (models.Session, bool) {
	if len(r.Sessions) == 0 {
		return models.Session{}, false
	}
	return r.Sessions[len(r.Sessions)-1], true
}

// Open reports whether the last session was started and has not ended yet.
func (r *Record) Open() bool {
	session, ok := r.LastSession()
	return ok && session.End == nil
}

// Resume returns an emitter that continues this record's run on w. A summary
// already present in the record is not written again.
func (r *Record) Resume(w hparams.EventWriter, sweep *hparams.Sweep) *hparams.Emitter {
	if sweep != nil && r.Summary != nil {
		sweep.MarkWritten()
	}
	return hparams.ResumeEmitter(w, sweep, r.Open())
}

// Load reads every event file in dir.
func Load(dir string) (*Record, error) {
	events, err := eventlog.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return Replay(events)
}

// Replay rebuilds sweep records from events in log order. A session end is
// matched to the latest session without one; an end with no open session is
// an error.
func Replay(events []eventlog.Event) (*Record, error) {
	record := &Record{}

	for _, e := range events {
		for _, v := range e.Summary {
			data, ok, err := hparams.Decode(v)
			if err != nil {
				return nil, err
			}
			if ok {
				if err := record.apply(data); err != nil {
					return nil, err
				}
				continue
			}

			if value, ok := scalarValue(v); ok {
				record.Scalars = append(record.Scalars, models.Scalar{
					Tag:       v.Tag,
					Value:     value,
					Step:      e.Step,
					Timestamp: e.WallTime,
				})
			}
		}
	}

	return record, nil
}

func (r *Record) apply(data hparams.PluginData) error {
	switch {
	case data.Experiment != nil:
		r.Summary = data.Experiment
	case data.SessionStart != nil:
		r.Sessions = append(r.Sessions, models.Session{Start: *data.SessionStart})
	case data.SessionEnd != nil:
		if len(r.Sessions) == 0 || r.Sessions[len(r.Sessions)-1].End != nil {
			return fmt.Errorf("%w: session end without a started session", hparams.ErrOutOfOrder)
		}
		end := *data.SessionEnd
		r.Sessions[len(r.Sessions)-1].End = &end
	}
	return nil
}

func scalarValue(v eventlog.SummaryValue) (float64, bool) {
	if v.SimpleValue != nil {
		return *v.SimpleValue, true
	}
	if v.Tensor != nil && v.PluginName == scalarsPlugin {
		return v.Tensor.Scalar()
	}
	return 0, false
}
