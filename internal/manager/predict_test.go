package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmentd/internal/inferer"
	"segmentd/internal/storage"
	"segmentd/pkg/types"
)

func TestPredictLifecycle(t *testing.T) {
	fr := newFakeRunner()
	m := newTestManager(t, fr, nil)
	up := mustUpload(t, m)

	resp, err := m.Predict(context.Background(), types.PredictRequest{Task: covidTask, Data: up, IsCrop: "On"})
	require.NoError(t, err)
	require.Len(t, resp.UUID, 36)
	assert.Equal(t, types.StatusPending, resp.Status)

	p := waitStatus(t, m, resp.UUID, types.StatusSucceeded)
	require.NotNil(t, p.ExitCode)
	assert.Equal(t, 0, *p.ExitCode)
	assert.Equal(t, up, p.UploadUUID)
	assert.True(t, p.IsCrop)
	assert.NotNil(t, p.StartedAt)
	assert.NotNil(t, p.FinishedAt)

	calls := fr.Calls()
	require.Len(t, calls, 1)
	req := calls[0]
	assert.Equal(t, covidTask, req.Task)
	assert.Equal(t, 4, req.OutChannels)
	assert.Equal(t, filepath.Join(m.cfg.Layout.WeightsDir, "3d_swin_unetr_lungs_covid.pth"), req.WeightsPath)
	assert.Equal(t, filepath.Join(m.cfg.Layout.UploadDir, up, "scan.nii.gz"), req.DataPath)
	assert.True(t, req.Crop)
	assert.Equal(t, filepath.Join(m.cfg.Layout.PredictDir, resp.UUID), req.ResultDir)
	assert.Equal(t, filepath.Join(req.ResultDir, storage.VisualizationFile), req.VisualizationPath)

	pub := m.cfg.Publisher.(*MemoryPublisher)
	assert.Subset(t, pub.Names(), []string{EventPredictQueued, EventPredictStart, EventPredictEnd})
}

func TestPredictCropOff(t *testing.T) {
	fr := newFakeRunner()
	m := newTestManager(t, fr, nil)
	up := mustUpload(t, m)
	resp, err := m.Predict(context.Background(), types.PredictRequest{Task: covidTask, Data: up, IsCrop: "Off"})
	require.NoError(t, err)
	waitStatus(t, m, resp.UUID, types.StatusSucceeded)
	assert.False(t, fr.Calls()[0].Crop)
}

func TestPredictRecordsFailure(t *testing.T) {
	fr := newFakeRunner()
	fr.exitCode = 2
	m := newTestManager(t, fr, nil)
	up := mustUpload(t, m)
	resp, err := m.Predict(context.Background(), types.PredictRequest{Task: covidTask, Data: up, IsCrop: "Off"})
	require.NoError(t, err, "a failing process is reported through the job status")

	p := waitStatus(t, m, resp.UUID, types.StatusFailed)
	require.NotNil(t, p.ExitCode)
	assert.Equal(t, 2, *p.ExitCode)
	assert.Contains(t, p.Error, "status 2")
	assert.Equal(t, "Traceback: boom", p.StderrTail)
}

func TestPredictLaunchFailureHasNoExitCode(t *testing.T) {
	fr := newFakeRunner()
	fr.err = errors.New("start inference: exec: \"python3\": executable file not found")
	m := newTestManager(t, fr, nil)
	up := mustUpload(t, m)
	resp, err := m.Predict(context.Background(), types.PredictRequest{Task: covidTask, Data: up, IsCrop: "Off"})
	require.NoError(t, err)
	p := waitStatus(t, m, resp.UUID, types.StatusFailed)
	assert.Nil(t, p.ExitCode)
	assert.Contains(t, p.Error, "executable file not found")
}

func TestPredictInvalidInputs(t *testing.T) {
	m := newTestManager(t, newFakeRunner(), nil)
	up := mustUpload(t, m)
	cases := []struct {
		name string
		req  types.PredictRequest
	}{
		{"unknown task", types.PredictRequest{Task: "3D Segmentation heart", Data: up, IsCrop: "On"}},
		{"bad crop", types.PredictRequest{Task: covidTask, Data: up, IsCrop: "yes"}},
		{"malformed upload id", types.PredictRequest{Task: covidTask, Data: "../../etc", IsCrop: "On"}},
		{"missing upload", types.PredictRequest{Task: covidTask, Data: storage.NewID(), IsCrop: "On"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := m.Predict(context.Background(), c.req)
			require.Error(t, err)
			assert.False(t, IsTooBusy(err))
		})
	}
	n, err := m.cfg.Store.CountPredictions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, n, "rejected requests must not create job records")
}

func TestPredictMissingUploadLeavesEmptyDir(t *testing.T) {
	m := newTestManager(t, newFakeRunner(), nil)
	_, err := m.Predict(context.Background(), types.PredictRequest{Task: covidTask, Data: storage.NewID(), IsCrop: "On"})
	require.ErrorIs(t, err, storage.ErrNotFound)
	entries, err := os.ReadDir(m.cfg.Layout.PredictDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	inner, err := os.ReadDir(filepath.Join(m.cfg.Layout.PredictDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Empty(t, inner)
}

func TestPredictQueueFull(t *testing.T) {
	fr := newFakeRunner()
	fr.release = make(chan struct{})
	m := newTestManager(t, fr, func(c *ManagerConfig) { c.QueueDepth = 1 })
	up := mustUpload(t, m)
	req := types.PredictRequest{Task: covidTask, Data: up, IsCrop: "Off"}

	first, err := m.Predict(context.Background(), req)
	require.NoError(t, err)
	waitStarted(t, fr)
	second, err := m.Predict(context.Background(), req)
	require.NoError(t, err)

	_, err = m.Predict(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsTooBusy(err))

	st := m.Status(context.Background())
	assert.Equal(t, 1, st.Running)
	assert.Equal(t, 1, st.QueueLen)
	assert.Equal(t, 1, st.MaxQueueDepth)
	assert.EqualValues(t, 1, st.Predictions[types.StatusFailed], "rejected job is recorded as failed")

	close(fr.release)
	waitStatus(t, m, first.UUID, types.StatusSucceeded)
	waitStatus(t, m, second.UUID, types.StatusSucceeded)
}

func TestPredictSyncMode(t *testing.T) {
	fr := newFakeRunner()
	fr.exitCode = 1
	m := newTestManager(t, fr, func(c *ManagerConfig) { c.SyncPredict = true })
	up := mustUpload(t, m)
	resp, err := m.Predict(context.Background(), types.PredictRequest{Task: covidTask, Data: up, IsCrop: "On"})
	require.NoError(t, err)
	assert.Equal(t, "Successfully predicted", resp.Message)
	assert.Equal(t, types.StatusFailed, resp.Status)
}

func TestPredictionNotFound(t *testing.T) {
	m := newTestManager(t, newFakeRunner(), nil)
	_, err := m.Prediction(context.Background(), storage.NewID())
	assert.True(t, IsNotFound(err))
	_, err = m.Prediction(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
}

func TestCloseCancelsRunningAndQueued(t *testing.T) {
	fr := newFakeRunner()
	fr.release = make(chan struct{})
	m := newTestManager(t, fr, nil)
	up := mustUpload(t, m)
	req := types.PredictRequest{Task: covidTask, Data: up, IsCrop: "Off"}
	running, err := m.Predict(context.Background(), req)
	require.NoError(t, err)
	waitStarted(t, fr)
	queued, err := m.Predict(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.False(t, m.Ready())

	for _, id := range []string{running.UUID, queued.UUID} {
		p, err := m.Prediction(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, types.StatusFailed, p.Status, id)
	}
	_, err = m.Predict(context.Background(), req)
	assert.ErrorIs(t, err, errShuttingDown)
}

func TestCloseDuringPredictLeavesNoPendingJobs(t *testing.T) {
	fr := newFakeRunner()
	fr.release = make(chan struct{})
	m := newTestManager(t, fr, func(c *ManagerConfig) { c.QueueDepth = 4 })
	up := mustUpload(t, m)
	req := types.PredictRequest{Task: covidTask, Data: up, IsCrop: "On"}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _ = m.Predict(context.Background(), req)
		}()
	}
	close(start)
	require.NoError(t, m.Close())
	wg.Wait()

	counts, err := m.cfg.Store.CountPredictions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[types.StatusPending], "pending jobs left without a worker")
	assert.Zero(t, counts[types.StatusRunning])
}

func TestRecoverFailsInterrupted(t *testing.T) {
	fr := newFakeRunner()
	fr.release = make(chan struct{})
	m := newTestManager(t, fr, nil)
	up := mustUpload(t, m)
	resp, err := m.Predict(context.Background(), types.PredictRequest{Task: covidTask, Data: up, IsCrop: "Off"})
	require.NoError(t, err)
	waitStarted(t, fr)

	// A second manager over the same store plays the restarted process.
	m2 := NewWithConfig(ManagerConfig{Layout: m.cfg.Layout, Store: m.cfg.Store, Registry: m.cfg.Registry, Runner: newFakeRunner()})
	defer m2.Close()
	require.NoError(t, m2.Recover(context.Background()))
	p, err := m2.Prediction(context.Background(), resp.UUID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, p.Status)
	assert.Equal(t, "interrupted by server restart", p.Error)
	close(fr.release)
}

func TestReadyUsesSanity(t *testing.T) {
	m := newTestManager(t, newFakeRunner(), func(c *ManagerConfig) {
		c.Sanity = func() inferer.SanityReport { return inferer.SanityReport{InterpreterFound: true} }
	})
	assert.False(t, m.Ready())
	assert.False(t, m.Status(context.Background()).Ready)

	ok := newTestManager(t, newFakeRunner(), nil)
	assert.True(t, ok.Ready())
}

func TestTasksReportsWeights(t *testing.T) {
	m := newTestManager(t, newFakeRunner(), nil)
	require.NoError(t, os.WriteFile(filepath.Join(m.cfg.Layout.WeightsDir, "3d_swin_unetr_cancer.pth"), []byte("w"), 0o644))
	tasks := m.Tasks()
	require.Len(t, tasks, 3)
	present := map[string]bool{}
	for _, ti := range tasks {
		present[ti.Name] = ti.WeightsPresent
	}
	assert.True(t, present["3D Segmentation lungs cancer"])
	assert.False(t, present[covidTask])
}

func TestEnqueueRespectsCanceledContext(t *testing.T) {
	m := newTestManager(t, newFakeRunner(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.enqueue(ctx, &job{id: "x", done: make(chan struct{})})
	assert.ErrorIs(t, err, context.Canceled)
}
