package models

import (
	"fmt"
	"strings"
	"time"
)

// SessionStatus is the terminal status of one training run within a sweep.
type SessionStatus int32

const (
	SessionStatusUnknown SessionStatus = 0
	SessionStatusSuccess SessionStatus = 1
	SessionStatusFailure SessionStatus = 2
	SessionStatusRunning SessionStatus = 3
)

var sessionStatusNames = map[SessionStatus]string{
	SessionStatusUnknown: "UNKNOWN",
	SessionStatusSuccess: "SUCCESS",
	SessionStatusFailure: "FAILURE",
	SessionStatusRunning: "RUNNING",
}

func (s SessionStatus) String() string {
	if name, ok := sessionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int32(s))
}

func (s SessionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SessionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseSessionStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSessionStatus(s string) (SessionStatus, error) {
	name := strings.TrimPrefix(strings.ToUpper(s), "STATUS_")
	for status, n := range sessionStatusNames {
		if n == name {
			return status, nil
		}
	}
	return SessionStatusUnknown, fmt.Errorf("invalid status: %s (valid: SUCCESS, FAILURE, RUNNING, UNKNOWN)", s)
}

// SessionStart carries the concrete hyperparameter values chosen for a run.
type SessionStart struct {
	HParams    map[string]any `json:"hparams" yaml:"hparams"`
	ModelURI   string         `json:"model_uri,omitempty" yaml:"model_uri,omitempty"`
	MonitorURL string         `json:"monitor_url,omitempty" yaml:"monitor_url,omitempty"`
	GroupName  string         `json:"group_name,omitempty" yaml:"group_name,omitempty"`
	StartTime  time.Time      `json:"start_time" yaml:"start_time"`
}

type SessionEnd struct {
	Status  SessionStatus `json:"status" yaml:"status"`
	EndTime time.Time     `json:"end_time" yaml:"end_time"`
}

// Session pairs a start record with its end, if one was written.
type Session struct {
	Start SessionStart `json:"start" yaml:"start"`
	End   *SessionEnd  `json:"end,omitempty" yaml:"end,omitempty"`
}
