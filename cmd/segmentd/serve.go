package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"segmentd/internal/config"
	"segmentd/internal/httpapi"
	"segmentd/internal/inferer"
	"segmentd/internal/logging"
	"segmentd/internal/manager"
	"segmentd/internal/registry"
	"segmentd/internal/storage"
	"segmentd/internal/store"
)

const shutdownTimeout = 10 * time.Second

func runServe(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, closer := logging.New(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, File: cfg.LogFile})
	defer closer.Close()

	reg, err := registry.New(cfg.TaskTable())
	if err != nil {
		return err
	}
	layout := storage.NewLayout(cfg.BaseDir, cfg.WeightsDir, cfg.UploadDir, cfg.PredictDir)
	if err := layout.Ensure(); err != nil {
		return err
	}
	if missing, err := reg.CheckWeights(cfg.WeightsDir); err != nil {
		log.Warn().Err(err).Str("dir", cfg.WeightsDir).Msg("scan weights")
	} else if len(missing) > 0 {
		log.Warn().Strs("tasks", missing).Str("dir", cfg.WeightsDir).Msg("checkpoints missing; predictions for these tasks will fail")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := inferer.NewRunner(inferer.Config{
		Interpreter: cfg.Interpreter,
		Script:      cfg.InfererScript,
		Timeout:     time.Duration(cfg.InferTimeoutSeconds) * time.Second,
	}, &log)
	if rep := runner.Config().SanityCheck(); !rep.OK() {
		log.Warn().Str("error", rep.Error).Msg("inference dependencies not found; /readyz will report unavailable")
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Layout:            layout,
		Store:             st,
		Registry:          reg,
		Runner:            runner,
		Sanity:            runner.Config().SanityCheck,
		AllowedExtensions: cfg.AllowedExtensions,
		Workers:           cfg.Workers,
		QueueDepth:        cfg.QueueDepth,
		SyncPredict:       cfg.SyncPredict,
		Logger:            &log,
	})
	if err := mgr.Recover(ctx); err != nil {
		_ = mgr.Close()
		return err
	}

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxUploadBytes(cfg.MaxUploadBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, nil, nil)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serveUntilDone(ctx, srv, mgr, log, cfg)
}

func serveUntilDone(ctx context.Context, srv *http.Server, mgr *manager.Manager, log zerolog.Logger, cfg config.Config) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("base_dir", cfg.BaseDir).
			Int("workers", cfg.Workers).
			Int("queue_depth", cfg.QueueDepth).
			Bool("sync_predict", cfg.SyncPredict).
			Msg("segmentd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if cerr := mgr.Close(); err == nil {
			err = cerr
		}
		return err
	})
	return g.Wait()
}
