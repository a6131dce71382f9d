package hparams

import (
	"errors"
	"fmt"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

// ErrOutOfOrder is returned when session records are emitted out of their
// start/end lifecycle.
var ErrOutOfOrder = errors.New("hparams records out of order")

// Sweep holds the summary shared by every run of one sweep and remembers
// whether it has been written. Not safe for concurrent use.
type Sweep struct {
	summary models.ExperimentSummary
	written bool
}

func NewSweep(summary models.ExperimentSummary) *Sweep {
	return &Sweep{summary: summary}
}

func (s *Sweep) Summary() models.ExperimentSummary {
	return s.summary
}

func (s *Sweep) Written() bool {
	return s.written
}

// MarkWritten records that the summary is already in the log, for example
// from an earlier process.
func (s *Sweep) MarkWritten() {
	s.written = true
}

// Emitter writes the records of a single run: the sweep summary (once per
// sweep), then a session start, then its end.
type Emitter struct {
	w       EventWriter
	sweep   *Sweep
	started bool
	ended   bool
}

// NewEmitter binds a run to the writer it emits to. sweep may be nil when the
// summary is written elsewhere.
func NewEmitter(w EventWriter, sweep *Sweep) *Emitter {
	return &Emitter{w: w, sweep: sweep}
}

// ResumeEmitter continues a run whose earlier records were replayed from its
// log. open reports a session that was started and has not ended yet.
func ResumeEmitter(w EventWriter, sweep *Sweep, open bool) *Emitter {
	return &Emitter{w: w, sweep: sweep, started: open}
}

// WriteSummary emits the sweep summary unless the sweep already has.
func (e *Emitter) WriteSummary() error {
	if e.sweep == nil || e.sweep.written {
		return nil
	}
	if err := WriteExperiment(e.w, e.sweep.summary); err != nil {
		return err
	}
	e.sweep.written = true
	return nil
}

// Start emits the session start, preceded by the sweep summary if it has not
// been written yet.
func (e *Emitter) Start(start models.SessionStart) error {
	if e.started {
		return fmt.Errorf("%w: session already started", ErrOutOfOrder)
	}
	if err := e.WriteSummary(); err != nil {
		return err
	}
	if err := WriteSessionStart(e.w, start); err != nil {
		return err
	}
	e.started = true
	return nil
}

func (e *Emitter) End(end models.SessionEnd) error {
	if !e.started {
		return fmt.Errorf("%w: session end before start", ErrOutOfOrder)
	}
	if e.ended {
		return fmt.Errorf("%w: session already ended", ErrOutOfOrder)
	}
	if err := WriteSessionEnd(e.w, end); err != nil {
		return err
	}
	e.ended = true
	return nil
}

func (e *Emitter) Started() bool {
	return e.started
}

func (e *Emitter) Ended() bool {
	return e.ended
}
