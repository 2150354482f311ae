package manager

import (
	"context"
	"time"

	"segmentd/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status(ctx context.Context) types.StatusResponse {
	resp := types.StatusResponse{
		Ready:         m.Ready(),
		Workers:       m.cfg.Workers,
		Running:       int(m.running.Load()),
		QueueLen:      len(m.queue),
		MaxQueueDepth: cap(m.queue),
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
	resp.AllowedExtensions = m.AllowedExtensions()
	counts, err := m.cfg.Store.CountPredictions(ctx)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Predictions = counts
	return resp
}
