package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"segmentd/internal/inferer"
	"segmentd/internal/storage"
	"segmentd/internal/store"
	"segmentd/pkg/types"
)

// job is one accepted prediction waiting for or holding a worker.
type job struct {
	id   string
	req  inferer.Request
	done chan struct{}
}

// Predict allocates a prediction directory, records a pending job and queues
// it. In sync mode it returns once the job has finished; the returned status
// tells whether the process succeeded.
func (m *Manager) Predict(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error) {
	crop, err := inferer.ParseCropFlag(req.IsCrop)
	if err != nil {
		return types.PredictResponse{}, err
	}
	// The directory is allocated before inputs are resolved; a failed
	// request leaves it empty.
	id, dir, err := m.cfg.Layout.CreatePrediction()
	if err != nil {
		return types.PredictResponse{}, err
	}
	task, ok := m.cfg.Registry.Lookup(req.Task)
	if !ok {
		return types.PredictResponse{}, fmt.Errorf("unknown task %q", req.Task)
	}
	dataPath, err := m.cfg.Layout.ResolveUpload(req.Data)
	if err != nil {
		return types.PredictResponse{}, err
	}
	ireq := inferer.Request{
		Task:              task.Name,
		OutChannels:       task.OutChannels,
		WeightsPath:       m.cfg.Layout.WeightsPath(task.WeightsFile),
		DataPath:          dataPath,
		Crop:              crop,
		ResultDir:         dir,
		VisualizationPath: m.cfg.Layout.VisualizationPath(dir),
	}
	j := &job{id: id, req: ireq, done: make(chan struct{})}
	rec := store.Prediction{
		Id:        id,
		UploadId:  req.Data,
		Task:      task.Name,
		IsCrop:    crop,
		Status:    string(types.StatusPending),
		CreatedAt: time.Now(),
	}
	if err := m.cfg.Store.CreatePrediction(ctx, rec); err != nil {
		return types.PredictResponse{}, err
	}
	if err := m.enqueue(ctx, j); err != nil {
		m.finish(j, types.StatusFailed, nil, "rejected: "+err.Error(), "")
		m.cfg.Publisher.Publish(Event{Name: EventPredictRejected, ID: id, Fields: map[string]any{"error": err.Error()}})
		return types.PredictResponse{}, err
	}
	m.log.Info().Str("prediction", id).Str("task", task.Name).Str("upload", req.Data).Bool("crop", crop).Msg("prediction queued")
	m.cfg.Publisher.Publish(Event{Name: EventPredictQueued, ID: id, Fields: map[string]any{"task": task.Name}})

	resp := types.PredictResponse{Message: "Prediction queued", UUID: id, Status: types.StatusPending}
	if !m.cfg.SyncPredict {
		return resp, nil
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		// The job keeps running; its record carries the outcome.
		return resp, nil
	}
	resp.Message = "Successfully predicted"
	if p, err := m.cfg.Store.GetPrediction(context.WithoutCancel(ctx), id); err == nil {
		resp.Status = types.PredictionStatus(p.Status)
	}
	return resp, nil
}

// Prediction returns the tracked state of a prediction job.
func (m *Manager) Prediction(ctx context.Context, id string) (types.Prediction, error) {
	if err := storage.ValidateID(id); err != nil {
		return types.Prediction{}, NewNotFoundError("prediction", id)
	}
	p, err := m.cfg.Store.GetPrediction(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Prediction{}, NewNotFoundError("prediction", id)
		}
		return types.Prediction{}, err
	}
	return p.ToAPI(), nil
}

func (m *Manager) runJob(j *job) {
	started := time.Now()
	if err := m.cfg.Store.MarkRunning(context.Background(), j.id, started); err != nil {
		m.log.Error().Err(err).Str("prediction", j.id).Msg("mark running")
	}
	m.running.Add(1)
	jobsRunning.Inc()
	m.cfg.Publisher.Publish(Event{Name: EventPredictStart, ID: j.id})
	m.log.Info().Str("prediction", j.id).Str("task", j.req.Task).Msg("prediction started")

	res, err := m.cfg.Runner.Run(m.baseCtx, j.req)

	jobsRunning.Dec()
	m.running.Add(-1)
	inferenceDuration.WithLabelValues(j.req.Task).Observe(time.Since(started).Seconds())

	status := types.StatusSucceeded
	var exit *int
	msg := ""
	var ee *inferer.ExitError
	if err == nil || errors.As(err, &ee) {
		code := res.ExitCode
		exit = &code
	}
	if err != nil {
		status = types.StatusFailed
		msg = err.Error()
	}
	m.finish(j, status, exit, msg, res.StderrTail)

	ev := m.log.Info()
	if status == types.StatusFailed {
		ev = m.log.Warn().Str("error", msg)
	}
	ev.Str("prediction", j.id).Str("status", string(status)).Int("pid", res.PID).Dur("took", time.Since(started)).Msg("prediction finished")
}

// finish records the terminal state of j and releases sync waiters.
func (m *Manager) finish(j *job, status types.PredictionStatus, exit *int, msg, stderrTail string) {
	err := m.cfg.Store.MarkFinished(context.Background(), j.id, store.Outcome{
		Status:     status,
		ExitCode:   exit,
		Error:      msg,
		StderrTail: stderrTail,
		FinishedAt: time.Now(),
	})
	if err != nil {
		m.log.Error().Err(err).Str("prediction", j.id).Msg("record outcome")
	}
	jobsTotal.WithLabelValues(string(status)).Inc()
	m.cfg.Publisher.Publish(Event{Name: EventPredictEnd, ID: j.id, Fields: map[string]any{"status": string(status)}})
	close(j.done)
}
