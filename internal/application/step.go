package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// RunStep executes fn under a wall-clock timeout and returns a structured
// timing/status record alongside fn's error. Timeouts are flagged on the
// record and in the error message so callers can tell "slow" from "broken".
func RunStep(ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) (model.StepTiming, error) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(stepCtx)

	timing := model.StepTiming{
		Name:     name,
		Duration: time.Since(start),
	}

	if err != nil {
		timing.Failed = true
		if errors.Is(err, context.DeadlineExceeded) {
			timing.TimedOut = true
			err = fmt.Errorf("step %s timed out after %s: %w", name, timeout, err)
		}
	}

	return timing, err
}
