package models

import "time"

type RunConfig struct {
	ExperimentID *string           `json:"experiment_id,omitempty"`
	RunName      *string           `json:"run_name,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

type RunInfo struct {
	RunID        string            `json:"run_id"`
	ExperimentID string            `json:"experiment_id"`
	RunName      string            `json:"run_name"`
	Status       string            `json:"status"`
	ArtifactURI  string            `json:"artifact_uri,omitempty"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      *time.Time        `json:"end_time,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
	RunStatusKilled   RunStatus = "KILLED"
)

// RunStatusFromSession maps a sweep session status onto the tracking run
// lifecycle. A session that never reported an outcome is treated as killed.
func RunStatusFromSession(s SessionStatus) RunStatus {
	switch s {
	case SessionStatusSuccess:
		return RunStatusFinished
	case SessionStatusFailure:
		return RunStatusFailed
	case SessionStatusRunning:
		return RunStatusRunning
	default:
		return RunStatusKilled
	}
}

// IsTerminal reports whether the status ends the run.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusFinished || s == RunStatusFailed || s == RunStatusKilled
}
