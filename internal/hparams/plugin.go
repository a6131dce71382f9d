package hparams

import (
	"fmt"
	"time"

	"github.com/imishinist/mlflow-hparams/internal/eventlog"
	"github.com/imishinist/mlflow-hparams/internal/models"
)

const (
	PluginName      = "hparams"
	ExperimentTag   = "_hparams_/experiment"
	SessionStartTag = "_hparams_/session_start_info"
	SessionEndTag   = "_hparams_/session_end_info"

	pluginDataVersion = 0
)

// EventWriter is where sweep records are appended. *eventlog.Writer
// implements it.
type EventWriter interface {
	Write(e eventlog.Event) error
}

func summaryEvent(tag string, content []byte) eventlog.Event {
	return eventlog.Event{
		WallTime: time.Now(),
		Summary: []eventlog.SummaryValue{{
			Tag:           tag,
			PluginName:    PluginName,
			PluginContent: content,
			Tensor:        eventlog.NullTensor(),
		}},
	}
}

func WriteExperiment(w EventWriter, summary models.ExperimentSummary) error {
	content, err := EncodeExperiment(summary)
	if err != nil {
		return err
	}
	if err := w.Write(summaryEvent(ExperimentTag, content)); err != nil {
		return fmt.Errorf("failed to write experiment summary: %w", err)
	}
	return nil
}

func WriteSessionStart(w EventWriter, start models.SessionStart) error {
	content, err := EncodeSessionStart(start)
	if err != nil {
		return err
	}
	if err := w.Write(summaryEvent(SessionStartTag, content)); err != nil {
		return fmt.Errorf("failed to write session start: %w", err)
	}
	return nil
}

func WriteSessionEnd(w EventWriter, end models.SessionEnd) error {
	if err := w.Write(summaryEvent(SessionEndTag, EncodeSessionEnd(end))); err != nil {
		return fmt.Errorf("failed to write session end: %w", err)
	}
	return nil
}

// Decode extracts hparams plugin data from a summary value. ok is false for
// values written by other plugins.
func Decode(v eventlog.SummaryValue) (data PluginData, ok bool, err error) {
	if v.PluginName != PluginName {
		return PluginData{}, false, nil
	}
	data, err = DecodePluginData(v.PluginContent)
	if err != nil {
		return PluginData{}, true, fmt.Errorf("summary %s: %w", v.Tag, err)
	}
	return data, true, nil
}
