package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"segmentd/internal/registry"
	"segmentd/pkg/types"
)

type Manager struct {
	cfg ManagerConfig
	log zerolog.Logger

	queue   chan *job
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closing atomic.Bool
	running atomic.Int32
	// admitMu orders enqueue against Close.
	admitMu sync.RWMutex

	startTime time.Time
}

// Recover marks predictions orphaned by a previous process as failed.
func (m *Manager) Recover(ctx context.Context) error {
	n, err := m.cfg.Store.FailInterrupted(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		m.log.Warn().Int64("count", n).Msg("marked interrupted predictions as failed")
	}
	return nil
}

// Close stops accepting jobs, cancels running inference processes and waits
// for the workers. Jobs still queued are marked failed.
func (m *Manager) Close() error {
	if !m.closing.CompareAndSwap(false, true) {
		return nil
	}
	// Waiting enqueues see baseCtx done and return; new ones see closing.
	m.cancel()
	m.admitMu.Lock()
	// nolint:staticcheck // SA2001: the empty section waits out enqueues already past the closing check
	m.admitMu.Unlock()
	m.wg.Wait()
	for {
		select {
		case j := <-m.queue:
			m.finish(j, types.StatusFailed, nil, "server shutting down", "")
		default:
			return nil
		}
	}
}

// Ready reports whether the inference process can be launched.
func (m *Manager) Ready() bool {
	if m.closing.Load() {
		return false
	}
	return m.SanityCheck().OK()
}

// Tasks lists the task table with weights availability.
func (m *Manager) Tasks() []types.TaskInfo {
	found, err := registry.ScanWeights(m.cfg.Layout.WeightsDir)
	if err != nil {
		m.log.Warn().Err(err).Str("dir", m.cfg.Layout.WeightsDir).Msg("scan weights")
	}
	tasks := m.cfg.Registry.List()
	out := make([]types.TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, types.TaskInfo{Task: t, WeightsPresent: found[t.WeightsFile]})
	}
	return out
}

// TaskNames returns the valid values of the predict `task` parameter.
func (m *Manager) TaskNames() []string { return m.cfg.Registry.Names() }

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.baseCtx.Done():
			return
		case j := <-m.queue:
			queueDepth.Set(float64(len(m.queue)))
			m.runJob(j)
		}
	}
}
