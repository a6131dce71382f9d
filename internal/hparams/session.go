package hparams

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

var (
	ErrUnknownHParam = errors.New("hparam not declared in experiment summary")
	ErrOutOfDomain   = errors.New("hparam value outside declared domain")
)

// NewSessionStart records the values chosen for one run. Numeric values are
// normalized to float64 and the session gets a fresh group name.
func NewSessionStart(hparams map[string]any) (models.SessionStart, error) {
	values := make(map[string]any, len(hparams))
	for name, raw := range hparams {
		value, _, err := Normalize(raw)
		if err != nil {
			return models.SessionStart{}, fmt.Errorf("hparam %s: %w", name, err)
		}
		values[name] = value
	}

	return models.SessionStart{
		HParams:   values,
		GroupName: uuid.NewString(),
		StartTime: time.Now(),
	}, nil
}

func NewSessionEnd(status models.SessionStatus) models.SessionEnd {
	return models.SessionEnd{Status: status, EndTime: time.Now()}
}

// Validate checks that every hyperparameter of start is declared by summary
// and lies in its domain. Writing a session never calls this on its own.
func Validate(summary models.ExperimentSummary, start models.SessionStart) error {
	names := make([]string, 0, len(start.HParams))
	for name := range start.HParams {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		info, ok := summary.HParam(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownHParam, name))
			continue
		}
		if !inDomain(info, start.HParams[name]) {
			errs = append(errs, fmt.Errorf("%w: %s=%v", ErrOutOfDomain, name, start.HParams[name]))
		}
	}
	return errors.Join(errs...)
}

func inDomain(info models.HParamInfo, raw any) bool {
	value, valueType, err := Normalize(raw)
	if err != nil {
		return false
	}
	if info.Type != models.DataTypeUnset && valueType != info.Type {
		return false
	}

	if info.Interval != nil {
		f, ok := value.(float64)
		return ok && f >= info.Interval.Min && f <= info.Interval.Max
	}
	if len(info.Domain) == 0 {
		return true
	}
	for _, d := range info.Domain {
		if normalized, _, err := Normalize(d); err == nil && normalized == value {
			return true
		}
	}
	return false
}
