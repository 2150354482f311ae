package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"segmentd/internal/common/fsutil"
	"segmentd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultAddr           = ":8080"
	DefaultBaseDir        = "."
	DefaultWeightsDir     = "weights"
	DefaultUploadDir      = "upload"
	DefaultPredictDir     = "predict"
	DefaultDBPath         = "segmentd.db"
	DefaultInterpreter    = "python3"
	DefaultInfererScript  = "inferer.py"
	DefaultMaxUploadBytes = int64(1) << 40
	DefaultWorkers        = 1
	DefaultQueueDepth     = 32
	DefaultLogLevel       = "info"
)

// DefaultAllowedExtensions lists the accepted upload suffixes.
var DefaultAllowedExtensions = []string{".nii.gz"}

// WithDefaults returns a copy of cfg with unset fields filled in.
func WithDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = DefaultBaseDir
	}
	if cfg.WeightsDir == "" {
		cfg.WeightsDir = DefaultWeightsDir
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}
	if cfg.PredictDir == "" {
		cfg.PredictDir = DefaultPredictDir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.Interpreter == "" {
		cfg.Interpreter = DefaultInterpreter
	}
	if cfg.InfererScript == "" {
		cfg.InfererScript = DefaultInfererScript
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.InferTimeoutSeconds < 0 {
		cfg.InferTimeoutSeconds = 0
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg
}

// ResolvePaths makes BaseDir absolute and resolves the storage roots, the
// database path and the inference script against it.
func ResolvePaths(cfg Config) (Config, error) {
	base, err := fsutil.AbsPath(cfg.BaseDir)
	if err != nil {
		return cfg, fmt.Errorf("base dir: %w", err)
	}
	cfg.BaseDir = base
	resolve := func(p string) (string, error) {
		if p == "" {
			return p, nil
		}
		p, err := fsutil.ExpandHome(p)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p), nil
		}
		return filepath.Join(base, p), nil
	}
	for _, f := range []*string{&cfg.WeightsDir, &cfg.UploadDir, &cfg.PredictDir, &cfg.DBPath, &cfg.InfererScript} {
		if *f, err = resolve(*f); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// TaskTable converts configured tasks to their wire form.
func (c Config) TaskTable() []types.Task {
	out := make([]types.Task, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		out = append(out, types.Task{
			Name:        strings.TrimSpace(t.Name),
			WeightsFile: strings.TrimSpace(t.WeightsFile),
			OutChannels: t.OutChannels,
		})
	}
	return out
}
