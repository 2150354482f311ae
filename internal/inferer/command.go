// Package inferer runs the external segmentation script. The script loads a
// checkpoint, preprocesses the volume, runs sliding-window inference and
// writes its outputs plus a visualization image; this package only builds its
// command line and supervises the process.
package inferer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"segmentd/internal/common/fsutil"
)

// Crop flag tokens accepted by the script.
const (
	CropOn  = "On"
	CropOff = "Off"
)

// CropFlag renders the crop flag token.
func CropFlag(crop bool) string {
	if crop {
		return CropOn
	}
	return CropOff
}

// ParseCropFlag parses one of the two crop tokens.
func ParseCropFlag(s string) (bool, error) {
	switch s {
	case CropOn:
		return true, nil
	case CropOff:
		return false, nil
	}
	return false, fmt.Errorf("crop flag must be %q or %q, got %q", CropOn, CropOff, s)
}

// Request is one inference invocation.
type Request struct {
	Task              string
	OutChannels       int
	WeightsPath       string
	DataPath          string
	Crop              bool
	ResultDir         string
	VisualizationPath string
}

// Config describes how to launch the script.
type Config struct {
	// Interpreter is split on whitespace, so wrappers such as
	// "sudo /opt/env/bin/python" work.
	Interpreter string
	Script      string
	// Timeout bounds a single run; zero disables it.
	Timeout time.Duration
	// StderrTailBytes bounds the stderr kept for diagnostics.
	StderrTailBytes int
}

const defaultStderrTail = 4096

// Command returns the program and arguments for req.
func (c Config) Command(req Request) (string, []string, error) {
	fields := strings.Fields(c.Interpreter)
	if len(fields) == 0 {
		return "", nil, errors.New("interpreter is empty")
	}
	if strings.TrimSpace(c.Script) == "" {
		return "", nil, errors.New("inferer script is empty")
	}
	if req.Task == "" || req.WeightsPath == "" || req.DataPath == "" || req.ResultDir == "" || req.VisualizationPath == "" {
		return "", nil, fmt.Errorf("incomplete inference request: %+v", req)
	}
	args := append([]string(nil), fields[1:]...)
	args = append(args,
		c.Script,
		"-t", req.Task,
		"-o", strconv.Itoa(req.OutChannels),
		"-w", req.WeightsPath,
		"-d", req.DataPath,
		"-c", CropFlag(req.Crop),
		"-p", req.ResultDir,
		"-v", req.VisualizationPath,
	)
	return fields[0], args, nil
}

// SanityReport describes whether the external dependencies are present.
type SanityReport struct {
	InterpreterFound bool   `json:"interpreter_found"`
	InterpreterPath  string `json:"interpreter_path,omitempty"`
	ScriptFound      bool   `json:"script_found"`
	ScriptPath       string `json:"script_path,omitempty"`
	Error            string `json:"error,omitempty"`
}

// OK reports whether both the interpreter and the script were found.
func (r SanityReport) OK() bool { return r.InterpreterFound && r.ScriptFound }

// SanityCheck validates that the interpreter resolves and the script exists.
// It does not mutate state and is safe to call at any time.
func (c Config) SanityCheck() SanityReport {
	var r SanityReport
	r.ScriptPath = c.Script
	fields := strings.Fields(c.Interpreter)
	if len(fields) == 0 {
		r.Error = "interpreter not configured"
		return r
	}
	p, err := exec.LookPath(fields[0])
	if err != nil {
		r.Error = err.Error()
	} else {
		r.InterpreterFound = true
		r.InterpreterPath = p
	}
	if fsutil.IsFile(c.Script) {
		r.ScriptFound = true
	} else if r.Error == "" {
		if _, err := os.Stat(c.Script); err != nil {
			r.Error = err.Error()
		} else {
			r.Error = "inferer script is a directory"
		}
	}
	return r
}
