package timeutils

import (
	"fmt"
	"math"
	"time"

	"github.com/imishinist/mlflow-hparams/internal/models"
)

// WallTime converts t to the fractional seconds stored in event records.
func WallTime(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromWallTime converts event record seconds back to a time, rounded to the
// microsecond precision a float64 can carry for current dates.
func FromWallTime(secs float64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).Round(time.Microsecond)
}

// AlignTimestamp aligns timestamp to the specified resolution and alignment
func AlignTimestamp(t time.Time, resolution string, alignment string) (time.Time, error) {
	var duration time.Duration

	switch resolution {
	case "", "none":
		return t, nil
	case "1m":
		duration = time.Minute
	case "5m":
		duration = 5 * time.Minute
	case "1h":
		duration = time.Hour
	default:
		return t, fmt.Errorf("unsupported resolution: %s", resolution)
	}

	aligned := t.Truncate(duration)

	switch alignment {
	case "floor":
		return aligned, nil
	case "ceil":
		if t.After(aligned) {
			return aligned.Add(duration), nil
		}
		return aligned, nil
	case "round":
		half := duration / 2
		if t.Sub(aligned) >= half {
			return aligned.Add(duration), nil
		}
		return aligned, nil
	default:
		return t, fmt.Errorf("unsupported alignment: %s", alignment)
	}
}

// ResolveScalars fills in missing steps and timestamps of file-provided points.
// A point without a step takes the next step after the last one seen for its tag.
func ResolveScalars(points []models.ScalarPoint, now time.Time) []models.Scalar {
	next := make(map[string]int64)
	result := make([]models.Scalar, 0, len(points))

	for _, point := range points {
		step := next[point.Tag]
		if point.Step != nil {
			step = *point.Step
		}
		next[point.Tag] = step + 1

		timestamp := now
		if point.Timestamp != nil {
			timestamp = *point.Timestamp
		}

		result = append(result, models.Scalar{
			Tag:       point.Tag,
			Value:     point.Value,
			Step:      step,
			Timestamp: timestamp,
		})
	}

	return result
}

// ScalarsToMetrics converts event log scalars into tracking metrics, aligning
// timestamps according to config.
func ScalarsToMetrics(scalars []models.Scalar, config models.TimeConfig) ([]models.Metric, error) {
	result := make([]models.Metric, 0, len(scalars))

	for _, scalar := range scalars {
		timestamp, err := AlignTimestamp(scalar.Timestamp, config.Resolution, config.Alignment)
		if err != nil {
			return nil, err
		}

		result = append(result, models.Metric{
			Key:       scalar.Tag,
			Value:     scalar.Value,
			Timestamp: timestamp,
			Step:      scalar.Step,
		})
	}

	return result, nil
}
