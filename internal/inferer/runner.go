package inferer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("inference exited with status %d", e.Code) }

// Result summarizes a finished run.
type Result struct {
	PID        int
	ExitCode   int
	Duration   time.Duration
	StderrTail string
}

// Runner launches the inference script. It is safe for concurrent use.
type Runner struct {
	cfg Config
	log zerolog.Logger
}

// NewRunner returns a Runner. A disabled logger is used when log is nil.
func NewRunner(cfg Config, log *zerolog.Logger) *Runner {
	if cfg.StderrTailBytes <= 0 {
		cfg.StderrTailBytes = defaultStderrTail
	}
	l := zerolog.Nop()
	if log != nil {
		l = log.With().Str("component", "inferer").Logger()
	}
	return &Runner{cfg: cfg, log: l}
}

// Config returns the runner configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run executes the script for req and waits for it to exit. A launch
// failure, a canceled context or a non-zero exit (*ExitError) is returned as
// an error; Result is filled in as far as the run got.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	var res Result
	name, args, err := r.cfg.Command(req)
	if err != nil {
		return res, err
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	// Ask politely first; WaitDelay escalates to SIGKILL.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 5 * time.Second
	stderr := newTailBuffer(r.cfg.StderrTailBytes)
	cmd.Stderr = stderr
	cmd.Stdout = &lineLogger{log: r.log, task: req.Task}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("start inference: %w", err)
	}
	res.PID = cmd.Process.Pid
	r.log.Info().Int("pid", res.PID).Str("task", req.Task).Str("data", req.DataPath).Str("result_dir", req.ResultDir).Msg("inference start")

	waitErr := cmd.Wait()
	res.Duration = time.Since(start)
	res.StderrTail = stderr.String()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.log.Warn().Int("pid", res.PID).Dur("dur", res.Duration).Err(ctxErr).Msg("inference canceled")
		return res, fmt.Errorf("inference canceled: %w", ctxErr)
	}
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			r.log.Warn().Int("pid", res.PID).Int("exit_code", res.ExitCode).Dur("dur", res.Duration).Str("stderr_tail", res.StderrTail).Msg("inference failed")
			return res, &ExitError{Code: res.ExitCode}
		}
		return res, fmt.Errorf("wait inference: %w", waitErr)
	}
	r.log.Info().Int("pid", res.PID).Dur("dur", res.Duration).Msg("inference end")
	return res, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// lineLogger logs complete stdout lines of the script at debug level.
type lineLogger struct {
	log  zerolog.Logger
	task string
	buf  []byte
}

func (lw *lineLogger) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(lw.buf[:idx]); len(line) > 0 {
			lw.log.Debug().Str("task", lw.task).Msg("inferer> " + line)
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}
