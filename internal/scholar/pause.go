package scholar

import (
	"context"
	"time"
)

// TimerPauser implements Pauser with a timer that exits early when the
// context finishes.
type TimerPauser struct{}

// Pause blocks for delay or until ctx is done, whichever comes first.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
