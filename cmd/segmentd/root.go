package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"segmentd/internal/config"
	"segmentd/internal/inferer"
	"segmentd/internal/registry"
	"segmentd/pkg/types"
)

// flagValues holds raw flag values; only flags the user set override config.
type flagValues struct {
	configPath     string
	envFile        string
	addr           string
	baseDir        string
	weightsDir     string
	uploadDir      string
	predictDir     string
	dbPath         string
	interpreter    string
	infererScript  string
	allowedExt     string
	maxUploadBytes int64
	workers        int
	queueDepth     int
	inferTimeout   int64
	syncPredict    bool
	logLevel       string
	logFile        string
	logPretty      bool
	cors           bool
	corsOrigins    string
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&flagValues{}) }

// newRootCmdWith builds the command tree writing parsed flags into fv.
func newRootCmdWith(fv *flagValues) *cobra.Command {
	root := &cobra.Command{
		Use:           "segmentd",
		Short:         "HTTP service for CT upload, 3D lung segmentation and result export",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), fv)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml); defaults to $SEGMENTD_CONFIG")
	pf.StringVar(&fv.envFile, "env-file", ".env", "dotenv file loaded before reading SEGMENTD_* variables")
	pf.StringVar(&fv.baseDir, "base-dir", "", "Application base directory; relative paths resolve against it")
	pf.StringVar(&fv.weightsDir, "weights-dir", "", "Directory holding the task checkpoints (*.pth)")
	pf.StringVar(&fv.interpreter, "interpreter", "", "Command used to run the inference script, e.g. \"python3\"")
	pf.StringVar(&fv.infererScript, "inferer-script", "", "Path of the inference script")
	pf.StringVar(&fv.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.BoolVar(&fv.logPretty, "log-pretty", false, "Human-readable console logs")

	f := root.Flags()
	f.StringVar(&fv.addr, "addr", "", "HTTP listen address, e.g. :8080")
	f.StringVar(&fv.uploadDir, "upload-dir", "", "Root of staged uploads")
	f.StringVar(&fv.predictDir, "predict-dir", "", "Root of prediction outputs")
	f.StringVar(&fv.dbPath, "db", "", "Path of the sqlite job database")
	f.StringVar(&fv.allowedExt, "allowed-ext", "", "Comma-separated accepted upload suffixes")
	f.Int64Var(&fv.maxUploadBytes, "max-upload-bytes", 0, "Maximum upload request size in bytes")
	f.IntVar(&fv.workers, "workers", 0, "Concurrent inference processes")
	f.IntVar(&fv.queueDepth, "queue-depth", 0, "Predictions allowed to wait for a worker")
	f.Int64Var(&fv.inferTimeout, "infer-timeout", 0, "Inference process timeout in seconds (0 disables)")
	f.BoolVar(&fv.syncPredict, "sync-predict", false, "Block /api/predict until the inference process exits")
	f.StringVar(&fv.logFile, "log-file", "", "Also write JSON logs to this rotated file")
	f.BoolVar(&fv.cors, "cors", false, "Enable CORS")
	f.StringVar(&fv.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins")

	root.AddCommand(newTasksCmd(fv), newCheckCmd(fv))
	return root
}

func newTasksCmd(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Print the task table and whether each checkpoint is present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), fv)
			if err != nil {
				return err
			}
			reg, err := registry.New(cfg.TaskTable())
			if err != nil {
				return err
			}
			found, err := registry.ScanWeights(cfg.WeightsDir)
			if err != nil {
				return err
			}
			out := types.TasksResponse{}
			for _, t := range reg.List() {
				out.Tasks = append(out.Tasks, types.TaskInfo{Task: t, WeightsPresent: found[t.WeightsFile]})
			}
			return printJSON(out)
		},
	}
}

func newCheckCmd(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the interpreter and inference script can be found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), fv)
			if err != nil {
				return err
			}
			rep := inferer.Config{Interpreter: cfg.Interpreter, Script: cfg.InfererScript}.SanityCheck()
			if err := printJSON(rep); err != nil {
				return err
			}
			if !rep.OK() {
				return fmt.Errorf("inference dependencies missing: %s", rep.Error)
			}
			return nil
		},
	}
}

// loadConfig layers defaults < config file < .env and SEGMENTD_* < flags.
func loadConfig(flags *pflag.FlagSet, fv *flagValues) (config.Config, error) {
	if err := config.LoadDotEnv(fv.envFile); err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	path := fv.configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyFlags(flags, fv, &cfg)
	return config.ResolvePaths(config.WithDefaults(cfg))
}

func applyFlags(flags *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	if set("addr") {
		cfg.Addr = fv.addr
	}
	if set("base-dir") {
		cfg.BaseDir = fv.baseDir
	}
	if set("weights-dir") {
		cfg.WeightsDir = fv.weightsDir
	}
	if set("upload-dir") {
		cfg.UploadDir = fv.uploadDir
	}
	if set("predict-dir") {
		cfg.PredictDir = fv.predictDir
	}
	if set("db") {
		cfg.DBPath = fv.dbPath
	}
	if set("interpreter") {
		cfg.Interpreter = fv.interpreter
	}
	if set("inferer-script") {
		cfg.InfererScript = fv.infererScript
	}
	if set("allowed-ext") {
		cfg.AllowedExtensions = splitCSV(fv.allowedExt)
	}
	if set("max-upload-bytes") {
		cfg.MaxUploadBytes = fv.maxUploadBytes
	}
	if set("workers") {
		cfg.Workers = fv.workers
	}
	if set("queue-depth") {
		cfg.QueueDepth = fv.queueDepth
	}
	if set("infer-timeout") {
		cfg.InferTimeoutSeconds = fv.inferTimeout
	}
	if set("sync-predict") {
		cfg.SyncPredict = fv.syncPredict
	}
	if set("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if set("log-file") {
		cfg.LogFile = fv.logFile
	}
	if set("log-pretty") {
		cfg.LogPretty = fv.logPretty
	}
	if set("cors") {
		cfg.CORSEnabled = fv.cors
	}
	if set("cors-origins") {
		cfg.CORSAllowedOrigins = splitCSV(fv.corsOrigins)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
