package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/tracker"
)

// loadRecord replays the log in dir. A directory that does not exist yet is
// an empty log.
func loadRecord(dir string) (*tracker.Record, error) {
	record, err := tracker.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return &tracker.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event log: %w", err)
	}
	return record, nil
}

// logWriter opens its event file on the first write, so a command that
// rejects its records leaves no empty file behind.
type logWriter struct {
	dir string
	w   *eventlog.Writer
}

func (l *logWriter) Write(e eventlog.Event) error {
	if l.w == nil {
		w, err := eventlog.Open(l.dir)
		if err != nil {
			return err
		}
		l.w = w
	}
	return l.w.Write(e)
}

func (l *logWriter) Path() string {
	if l.w == nil {
		return ""
	}
	return l.w.Path()
}

func (l *logWriter) Close() error {
	if l.w == nil {
		return nil
	}
	return l.w.Close()
}
