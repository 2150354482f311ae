package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"segmentd/internal/inferer"
	"segmentd/internal/registry"
	"segmentd/internal/storage"
	"segmentd/internal/store"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultWorkers    = 1
	defaultQueueDepth = 32
	defaultMaxWait    = 2 * time.Second
)

var defaultAllowedExtensions = []string{".nii.gz"}

// InferenceRunner executes one inference request to completion.
type InferenceRunner interface {
	Run(ctx context.Context, req inferer.Request) (inferer.Result, error)
}

// ManagerConfig encapsulates all collaborators and tunables for Manager construction.
type ManagerConfig struct {
	Layout   *storage.Layout
	Store    *store.Store
	Registry *registry.Registry
	Runner   InferenceRunner
	// Sanity reports whether the inference dependencies are present; nil means always ready.
	Sanity func() inferer.SanityReport

	AllowedExtensions []string
	Workers           int
	QueueDepth        int
	// MaxWait bounds how long a request waits for a queue slot before 429.
	MaxWait time.Duration
	// SyncPredict makes Predict block until the job finishes.
	SyncPredict bool

	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig and starts its workers.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		log:       log,
		queue:     make(chan *job, cfg.QueueDepth),
		baseCtx:   ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}
