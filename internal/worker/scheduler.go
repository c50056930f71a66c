package worker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Schedule runs job immediately and then every interval until ctx is done.
func Schedule(ctx context.Context, clock clockwork.Clock, interval time.Duration, job *RefreshJob) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	job.Run(ctx)

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			job.Run(ctx)
		}
	}
}
