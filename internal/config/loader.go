package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "SEGMENTD_"

// Task is a task table entry as written in configuration files.
type Task struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	WeightsFile string `json:"weights_file" yaml:"weights_file" toml:"weights_file"`
	OutChannels int    `json:"out_channels" yaml:"out_channels" toml:"out_channels"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr    string `json:"addr" yaml:"addr" toml:"addr" env:"ADDR"`
	BaseDir string `json:"base_dir" yaml:"base_dir" toml:"base_dir" env:"BASE_DIR"`
	// Storage roots; relative values are resolved against BaseDir.
	WeightsDir string `json:"weights_dir" yaml:"weights_dir" toml:"weights_dir" env:"WEIGHTS_DIR"`
	UploadDir  string `json:"upload_dir" yaml:"upload_dir" toml:"upload_dir" env:"UPLOAD_DIR"`
	PredictDir string `json:"predict_dir" yaml:"predict_dir" toml:"predict_dir" env:"PREDICT_DIR"`
	DBPath     string `json:"db_path" yaml:"db_path" toml:"db_path" env:"DB_PATH"`

	// External inference process.
	Interpreter   string `json:"interpreter" yaml:"interpreter" toml:"interpreter" env:"INTERPRETER"`
	InfererScript string `json:"inferer_script" yaml:"inferer_script" toml:"inferer_script" env:"INFERER_SCRIPT"`

	AllowedExtensions   []string `json:"allowed_extensions" yaml:"allowed_extensions" toml:"allowed_extensions" env:"ALLOWED_EXTENSIONS" envSeparator:","`
	MaxUploadBytes      int64    `json:"max_upload_bytes" yaml:"max_upload_bytes" toml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	Workers             int      `json:"workers" yaml:"workers" toml:"workers" env:"WORKERS"`
	QueueDepth          int      `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth" env:"QUEUE_DEPTH"`
	InferTimeoutSeconds int64    `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds" env:"INFER_TIMEOUT_SECONDS"`
	SyncPredict         bool     `json:"sync_predict" yaml:"sync_predict" toml:"sync_predict" env:"SYNC_PREDICT"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	LogFile   string `json:"log_file" yaml:"log_file" toml:"log_file" env:"LOG_FILE"`
	LogPretty bool   `json:"log_pretty" yaml:"log_pretty" toml:"log_pretty" env:"LOG_PRETTY"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" env:"CORS_ENABLED"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Tasks []Task `json:"tasks" yaml:"tasks" toml:"tasks"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg fields from SEGMENTD_* environment variables.
// Unset variables leave the existing values untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}
