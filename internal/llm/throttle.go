package llm

import (
	"context"
	"time"
)

// PaceDelay is the fixed pause inserted between consecutive calls to a
// hosted backend so sequential pipeline traffic stays polite.
const PaceDelay = 100 * time.Millisecond

// Pace sleeps for PaceDelay when c is a hosted backend, returning early
// with the context's error if the run is canceled mid-sleep. Local
// backends are never paced.
func Pace(ctx context.Context, c Client) error {
	if c == nil || !c.Hosted() {
		return nil
	}
	t := time.NewTimer(PaceDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
