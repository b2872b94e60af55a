package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// terminationHandler forwards termination to a Group. It listens from the
// moment it is installed, before any member is spawned; a signal received
// before arm is held and forwarded once arm is called.
type terminationHandler struct {
	// ctx is done once termination was requested.
	ctx     context.Context
	stop    context.CancelFunc
	armed   chan struct{}
	done    chan struct{}
	armOnce sync.Once
	endOnce sync.Once
}

// installTerminationHandler starts listening for sigs and for cancellation
// of ctx. uninstall must be called once the session ends.
func installTerminationHandler(ctx context.Context, g *Group, sigs ...os.Signal) *terminationHandler {
	sigCtx, stop := signal.NotifyContext(ctx, sigs...)
	h := &terminationHandler{
		ctx:   sigCtx,
		stop:  stop,
		armed: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go func() {
		select {
		case <-sigCtx.Done():
		case <-h.done:
			return
		}
		select {
		case <-h.armed:
			g.Terminate()
		case <-h.done:
		}
	}()
	return h
}

// arm lets a pending or later termination reach the group. Call it once
// every member has been added.
func (h *terminationHandler) arm() { h.armOnce.Do(func() { close(h.armed) }) }

func (h *terminationHandler) uninstall() {
	h.endOnce.Do(func() {
		close(h.done)
		h.stop()
	})
}
