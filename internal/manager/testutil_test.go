package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"segmentd/internal/inferer"
	"segmentd/internal/registry"
	"segmentd/internal/storage"
	"segmentd/internal/store"
	"segmentd/pkg/types"
)

const covidTask = "3D Segmentation lungs covid"

// fakeRunner stands in for the inference process. On success it writes a
// mask and the visualization into the result directory.
type fakeRunner struct {
	mu    sync.Mutex
	calls []inferer.Request

	started  chan string
	release  chan struct{}
	exitCode int
	err      error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan string, 64)}
}

func (f *fakeRunner) Run(ctx context.Context, req inferer.Request) (inferer.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	f.started <- req.ResultDir
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return inferer.Result{ExitCode: -1}, fmt.Errorf("inference canceled: %w", ctx.Err())
		}
	}
	if f.err != nil {
		return inferer.Result{}, f.err
	}
	if f.exitCode != 0 {
		return inferer.Result{PID: 42, ExitCode: f.exitCode, StderrTail: "Traceback: boom"}, &inferer.ExitError{Code: f.exitCode}
	}
	if err := os.WriteFile(filepath.Join(req.ResultDir, "mask.nii.gz"), []byte("mask"), 0o644); err != nil {
		return inferer.Result{}, err
	}
	if err := os.WriteFile(req.VisualizationPath, []byte("png"), 0o644); err != nil {
		return inferer.Result{}, err
	}
	return inferer.Result{PID: 42}, nil
}

func (f *fakeRunner) Calls() []inferer.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]inferer.Request(nil), f.calls...)
}

// newTestManager wires a Manager over a temp base directory and a file-backed store.
func newTestManager(t *testing.T, r InferenceRunner, mutate func(*ManagerConfig)) *Manager {
	t.Helper()
	base := t.TempDir()
	layout := storage.NewLayout(base, filepath.Join(base, "weights"), filepath.Join(base, "upload"), filepath.Join(base, "predict"))
	require.NoError(t, layout.Ensure())
	st, err := store.Open(filepath.Join(base, "segmentd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	reg, err := registry.New(registry.DefaultTasks())
	require.NoError(t, err)

	cfg := ManagerConfig{
		Layout:    layout,
		Store:     st,
		Registry:  reg,
		Runner:    r,
		MaxWait:   20 * time.Millisecond,
		Publisher: NewMemoryPublisher(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func mustUpload(t *testing.T, m *Manager) string {
	t.Helper()
	id, err := m.Upload(context.Background(), "scan.nii.gz", strings.NewReader("volume"))
	require.NoError(t, err)
	return id
}

func waitStatus(t *testing.T, m *Manager, id string, want types.PredictionStatus) types.Prediction {
	t.Helper()
	var last types.Prediction
	require.Eventually(t, func() bool {
		p, err := m.Prediction(context.Background(), id)
		if err != nil {
			return false
		}
		last = p
		return p.Status == want
	}, 5*time.Second, 10*time.Millisecond, "prediction %s never reached %s", id, want)
	return last
}

func waitStarted(t *testing.T, f *fakeRunner) string {
	t.Helper()
	select {
	case dir := <-f.started:
		return dir
	case <-time.After(5 * time.Second):
		t.Fatal("runner was never invoked")
		return ""
	}
}
