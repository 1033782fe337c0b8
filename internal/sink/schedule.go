package sink

import (
	"context"
	"fmt"
	"time"

	"homescreen/internal/domain"
)

// DefaultRetryDelay is how long to wait before the second application.
// Hosts that re-render after load usually settle within this window.
const DefaultRetryDelay = 2 * time.Second

// Outcome reports the two applications made by Schedule
type Outcome struct {
	// Initial is the result of the synchronous application
	Initial error
	// Deferred receives exactly one value when the delayed application
	// has run or been skipped, then is closed
	Deferred <-chan error
}

// Wait blocks until the deferred application has finished and returns its result
func (o Outcome) Wait() error {
	return <-o.Deferred
}

// Schedule applies the identity now, then once more after delay on a single
// timer. The delayed application is skipped if ctx is done when the timer
// fires. There are no further retries.
func Schedule(ctx context.Context, s IdentitySink, id domain.PageIdentity, delay time.Duration) Outcome {
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	deferred := make(chan error, 1)
	initial := Apply(ctx, s, id)

	time.AfterFunc(delay, func() {
		defer close(deferred)
		if err := ctx.Err(); err != nil {
			deferred <- fmt.Errorf("deferred apply skipped: %w", err)
			return
		}
		deferred <- Apply(ctx, s, id)
	})

	return Outcome{Initial: initial, Deferred: deferred}
}
