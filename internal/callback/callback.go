// Package callback defines the lifecycle hooks a training loop invokes and
// the callbacks that turn those hooks into event log records.
package callback

import (
	"context"
	"errors"
	"fmt"
)

// Logs are the named scalar results a training loop reports for an epoch.
type Logs map[string]float64

// Callback receives training lifecycle notifications. OnTrainEnd is called
// exactly once for every successful OnTrainBegin, with the error training
// stopped on, if any.
type Callback interface {
	OnTrainBegin(ctx context.Context) error
	OnEpochEnd(ctx context.Context, epoch int, logs Logs) error
	OnTrainEnd(ctx context.Context, trainErr error) error
}

// EpochFunc reports the results of one epoch to the registered callbacks.
type EpochFunc func(epoch int, logs Logs) error

// TrainFunc is the external training loop. It calls report after each epoch.
type TrainFunc func(ctx context.Context, report EpochFunc) error

// Run drives callbacks around train. Callbacks begin in order and end in
// reverse order; a callback that failed to begin is not ended. The returned
// error joins the training error with any callback errors.
func Run(ctx context.Context, callbacks []Callback, train TrainFunc) error {
	begun := make([]Callback, 0, len(callbacks))

	var trainErr error
	for _, cb := range callbacks {
		if err := cb.OnTrainBegin(ctx); err != nil {
			trainErr = fmt.Errorf("failed to begin training callback: %w", err)
			break
		}
		begun = append(begun, cb)
	}

	if trainErr == nil {
		trainErr = train(ctx, func(epoch int, logs Logs) error {
			for _, cb := range begun {
				if err := cb.OnEpochEnd(ctx, epoch, logs); err != nil {
					return fmt.Errorf("epoch %d callback failed: %w", epoch, err)
				}
			}
			return nil
		})
	}

	errs := []error{trainErr}
	for i := len(begun) - 1; i >= 0; i-- {
		if err := begun[i].OnTrainEnd(ctx, trainErr); err != nil {
			errs = append(errs, fmt.Errorf("failed to end training callback: %w", err))
		}
	}
	return errors.Join(errs...)
}
