package async

import (
	"context"
	"time"
)

// Retry calls f until it succeeds, up to 1+retries times, sleeping backoff between attempts. It gives up early if the
// context ends, returning the context error.
func Retry(ctx context.Context, retries int, backoff time.Duration, f func(attempt int) error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = f(attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
