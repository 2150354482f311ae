package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"segmentd/internal/httpapi"
	"segmentd/internal/inferer"
	"segmentd/internal/manager"
	"segmentd/internal/registry"
	"segmentd/internal/storage"
	"segmentd/internal/store"
	"segmentd/pkg/types"
)

const covidTask = "3D Segmentation lungs covid"

// inferScript mimics the segmentation script: it waits for the gate file,
// then writes a mask and the visualization into the result directory.
const inferScript = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -p) out="$2"; shift 2;;
    -v) vis="$2"; shift 2;;
    -t) task="$2"; shift 2;;
    *) shift;;
  esac
done
while [ ! -f %q ]; do sleep 0.05; done
if [ -f %q ]; then echo "Traceback: forced failure" >&2; exit 3; fi
printf '%%s' "$task" > "$out/mask.nii.gz"
printf 'png' > "$vis"
`

type env struct {
	srv    *httptest.Server
	mgr    *manager.Manager
	layout *storage.Layout
	gate   string
	fail   string
}

// open lets blocked inference processes finish.
func (e *env) open(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.gate, nil, 0o644))
}

// failNext makes every following inference exit non-zero.
func (e *env) failNext(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.fail, nil, 0o644))
}

func newEnv(t *testing.T, mutate func(*manager.ManagerConfig)) *env {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	base := t.TempDir()
	e := &env{gate: filepath.Join(base, "gate"), fail: filepath.Join(base, "fail")}
	script := filepath.Join(base, "inferer.sh")
	require.NoError(t, os.WriteFile(script, []byte(fmt.Sprintf(inferScript, e.gate, e.fail)), 0o755))

	e.layout = storage.NewLayout(base, filepath.Join(base, "weights"), filepath.Join(base, "upload"), filepath.Join(base, "predict"))
	require.NoError(t, e.layout.Ensure())
	st, err := store.Open(filepath.Join(base, "segmentd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	reg, err := registry.New(nil)
	require.NoError(t, err)

	log := zerolog.Nop()
	runner := inferer.NewRunner(inferer.Config{Interpreter: "/bin/sh", Script: script, Timeout: 30 * time.Second}, &log)
	cfg := manager.ManagerConfig{
		Layout:   e.layout,
		Store:    st,
		Registry: reg,
		Runner:   runner,
		Sanity:   runner.Config().SanityCheck,
		MaxWait:  20 * time.Millisecond,
		Logger:   &log,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e.mgr = manager.NewWithConfig(cfg)
	t.Cleanup(func() { _ = e.mgr.Close() })
	e.srv = httptest.NewServer(httpapi.NewMux(e.mgr))
	t.Cleanup(e.srv.Close)
	return e
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	return resp, body
}

func (e *env) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	return do(t, req)
}

func (e *env) post(t *testing.T, path string, q url.Values) (*http.Response, []byte) {
	t.Helper()
	u := e.srv.URL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, u, nil)
	require.NoError(t, err)
	return do(t, req)
}

func (e *env) upload(t *testing.T, filename, content string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("data", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.srv.URL+"/api/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(t, req)
}

func (e *env) mustUpload(t *testing.T) string {
	t.Helper()
	resp, body := e.upload(t, "scan.nii.gz", "volume")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out types.UploadResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.UUID
}

func (e *env) predict(t *testing.T, task, data, crop string) (*http.Response, []byte) {
	t.Helper()
	return e.post(t, "/api/predict", url.Values{"task": {task}, "data": {data}, "is_crop": {crop}})
}

func (e *env) mustPredict(t *testing.T, data string) string {
	t.Helper()
	resp, body := e.predict(t, covidTask, data, "On")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out types.PredictResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.UUID
}

func (e *env) waitStatus(t *testing.T, id string, want types.PredictionStatus) types.Prediction {
	t.Helper()
	var last types.Prediction
	// The condition runs on another goroutine, so it must not call t.FailNow.
	require.Eventually(t, func() bool {
		resp, err := http.Get(e.srv.URL + "/api/predict/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var p types.Prediction
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return false
		}
		last = p
		return p.Status == want
	}, 10*time.Second, 20*time.Millisecond, "prediction %s never reached %s", id, want)
	return last
}

func errorBody(t *testing.T, body []byte) types.ErrorResponse {
	t.Helper()
	var e types.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e
}
