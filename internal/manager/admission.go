package manager

import (
	"context"
	"time"
)

// enqueue reserves a queue slot for j, waiting at most MaxWait.
// The read lock is held until the job is in the queue or rejected, so Close
// cannot drain the queue between the closing check and the send.
func (m *Manager) enqueue(ctx context.Context, j *job) error {
	m.admitMu.RLock()
	defer m.admitMu.RUnlock()
	if m.closing.Load() {
		return errShuttingDown
	}
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case m.queue <- j:
		queueDepth.Set(float64(len(m.queue)))
		return nil
	default:
	}
	timer := time.NewTimer(m.cfg.MaxWait)
	defer timer.Stop()
	select {
	case m.queue <- j:
		queueDepth.Set(float64(len(m.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.baseCtx.Done():
		return errShuttingDown
	case <-timer.C:
		jobsRejected.WithLabelValues("queue_full").Inc()
		return NewTooBusyError(cap(m.queue))
	}
}
