package sail

import (
	"context"
	"time"
)

// stopGrace is how long a signalled process group gets to exit cleanly
// before it is killed outright.
const stopGrace = 5 * time.Second

// waitCtx blocks until the process exits or ctx is cancelled. On
// cancellation the process group is asked to stop, given stopGrace to
// comply, then killed. The child's own exit error is returned only when it
// finished on its own; a cancelled wait returns ctx.Err().
func (h *processHandle) waitCtx(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		h.requestStop()
		select {
		case <-done:
		case <-time.After(stopGrace):
			h.forceKill()
			<-done
		}
		return ctx.Err()
	}
}
