package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const fakeInferer = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -p) out="$2"; shift 2;;
    -v) vis="$2"; shift 2;;
    *) shift;;
  esac
done
printf 'mask' > "$out/mask.nii.gz"
printf 'png' > "$vis"
`

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the server binary")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	binPath := filepath.Join(t.TempDir(), "segmentd")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/segmentd")
	cmd.Dir = projectRootFromThisFile(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
	dir  string
}

func startServer(t *testing.T, bin string, extra ...string) *serverProc {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "inferer.sh")
	if err := os.WriteFile(script, []byte(fakeInferer), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args := append([]string{
		"--addr", fmt.Sprintf("127.0.0.1:%d", port),
		"--base-dir", dir,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--interpreter", "/bin/sh",
		"--inferer-script", script,
	}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		done := make(chan struct{})
		go func() { _ = cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			_ = cmd.Process.Kill()
		}
	})
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base, dir: dir}
}

func do(t *testing.T, method, u string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, u, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func upload(t *testing.T, base, filename, content string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("data", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	return do(t, http.MethodPost, base+"/api/upload", &buf, mw.FormDataContentType())
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin)

	resp, body := do(t, http.MethodGet, sp.base+"/readyz", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz %d %s", resp.StatusCode, string(body))
	}

	resp, body = do(t, http.MethodGet, sp.base+"/api/tasks", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/tasks %d %s", resp.StatusCode, string(body))
	}
	var tasks struct {
		Tasks []struct {
			Name string `json:"name"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(body, &tasks); err != nil {
		t.Fatalf("/api/tasks json: %v body=%s", err, string(body))
	}
	if len(tasks.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks.Tasks))
	}

	resp, body = upload(t, sp.base, "scan.nii.gz", "volume")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("/api/upload %d %s", resp.StatusCode, string(body))
	}
	var up struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(body, &up); err != nil || up.UUID == "" {
		t.Fatalf("/api/upload json: %v body=%s", err, string(body))
	}

	q := url.Values{"task": {"3D Segmentation lungs covid"}, "data": {up.UUID}, "is_crop": {"On"}}
	resp, body = do(t, http.MethodPost, sp.base+"/api/predict?"+q.Encode(), nil, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("/api/predict %d %s", resp.StatusCode, string(body))
	}
	var pr struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(body, &pr); err != nil || pr.UUID == "" {
		t.Fatalf("/api/predict json: %v body=%s", err, string(body))
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, body = do(t, http.MethodGet, sp.base+"/api/predict/"+pr.UUID, nil, "")
		if resp.StatusCode == http.StatusOK && strings.Contains(string(body), `"status":"succeeded"`) {
			break
		}
		if strings.Contains(string(body), `"status":"failed"`) {
			t.Fatalf("prediction failed: %s", string(body))
		}
		if time.Now().After(deadline) {
			t.Fatalf("prediction did not finish; last=%d %s", resp.StatusCode, string(body))
		}
		time.Sleep(50 * time.Millisecond)
	}

	resp, body = do(t, http.MethodPost, sp.base+"/api/export?predict="+pr.UUID, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/export %d %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("/api/export content-type=%s", ct)
	}
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Fatalf("/api/export body is not a zip")
	}

	resp, body = do(t, http.MethodGet, sp.base+"/metrics", nil, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "segmentd_jobs_finished_total") {
		t.Fatalf("/metrics %d", resp.StatusCode)
	}
}

func TestBlackbox_UploadWrongExtension_400(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin)

	resp, body := upload(t, sp.base, "scan.txt", "x")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", resp.StatusCode, string(body))
	}
	if !strings.Contains(string(body), "Allowed file types are") {
		t.Fatalf("unexpected body: %s", string(body))
	}
}

func TestBlackbox_NotReadyWithoutScript_503(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin, "--inferer-script", "/nonexistent/inferer.py")

	resp, body := do(t, http.MethodGet, sp.base+"/readyz", nil, "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d, body=%s", resp.StatusCode, string(body))
	}
}
