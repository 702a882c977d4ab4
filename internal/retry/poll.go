// Package retry provides a bounded fixed-interval poll loop for
// asynchronous upstream jobs.
package retry

import (
	"context"
	"time"

	"github.com/lindesk/internal/errs"
)

// PollConfig configures a fixed-delay poll loop.
type PollConfig struct {
	Op          string        // operation name, used in the timeout error
	Interval    time.Duration // delay between attempts (default: 5s)
	MaxAttempts int           // attempt cap (default: 120, ~10 minutes)
}

// DefaultPollConfig returns the poll settings used for AI conversation
// status checks.
func DefaultPollConfig(op string) PollConfig {
	return PollConfig{
		Op:          op,
		Interval:    5 * time.Second,
		MaxAttempts: 120,
	}
}

// Poll invokes fn once per interval until it reports done, returns an
// error, or the attempt cap is exhausted. Exhaustion yields a
// TimeoutError distinct from any error fn returns. Context cancellation
// stops the loop between attempts.
func Poll(ctx context.Context, config PollConfig, fn func(ctx context.Context, attempt int) (done bool, err error)) error {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 120
	}

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		done, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.Interval):
		}
	}

	return &errs.TimeoutError{
		Op:    config.Op,
		Limit: time.Duration(config.MaxAttempts) * config.Interval,
	}
}
