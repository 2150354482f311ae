// Package store persists upload and prediction records in sqlite via gorm.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"segmentd/pkg/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path and migrates it.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: coherent.
	sqlDB.SetMaxOpenConns(1)
	if err := Migrator(db).Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUpload inserts an upload record.
func (s *Store) CreateUpload(ctx context.Context, u Upload) error {
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return fmt.Errorf("create upload %s: %w", u.Id, err)
	}
	return nil
}

// GetUpload loads an upload record.
func (s *Store) GetUpload(ctx context.Context, id string) (Upload, error) {
	var u Upload
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return u, fmt.Errorf("upload %s: %w", id, ErrNotFound)
		}
		return u, fmt.Errorf("get upload %s: %w", id, err)
	}
	return u, nil
}

// CreatePrediction inserts a prediction record.
func (s *Store) CreatePrediction(ctx context.Context, p Prediction) error {
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return fmt.Errorf("create prediction %s: %w", p.Id, err)
	}
	return nil
}

// GetPrediction loads a prediction record.
func (s *Store) GetPrediction(ctx context.Context, id string) (Prediction, error) {
	var p Prediction
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, fmt.Errorf("prediction %s: %w", id, ErrNotFound)
		}
		return p, fmt.Errorf("get prediction %s: %w", id, err)
	}
	return p, nil
}

// MarkRunning moves a prediction to running.
func (s *Store) MarkRunning(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&Prediction{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(types.StatusRunning),
		"started_at": sql.NullTime{Time: at, Valid: true},
	})
	if res.Error != nil {
		return fmt.Errorf("mark running %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("prediction %s: %w", id, ErrNotFound)
	}
	return nil
}

// Outcome describes how a prediction ended.
type Outcome struct {
	Status     types.PredictionStatus
	ExitCode   *int
	Error      string
	StderrTail string
	FinishedAt time.Time
}

// MarkFinished records the terminal state of a prediction.
func (s *Store) MarkFinished(ctx context.Context, id string, o Outcome) error {
	if !o.Status.Done() {
		return fmt.Errorf("mark finished %s: status %q is not terminal", id, o.Status)
	}
	exit := sql.NullInt64{}
	if o.ExitCode != nil {
		exit = sql.NullInt64{Int64: int64(*o.ExitCode), Valid: true}
	}
	res := s.db.WithContext(ctx).Model(&Prediction{}).Where("id = ?", id).Updates(map[string]any{
		"status":      string(o.Status),
		"exit_code":   exit,
		"error":       o.Error,
		"stderr_tail": o.StderrTail,
		"finished_at": sql.NullTime{Time: o.FinishedAt, Valid: true},
	})
	if res.Error != nil {
		return fmt.Errorf("mark finished %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("prediction %s: %w", id, ErrNotFound)
	}
	return nil
}

// FailInterrupted marks predictions left pending or running by a previous
// process as failed and returns how many were updated.
func (s *Store) FailInterrupted(ctx context.Context, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Prediction{}).
		Where("status IN ?", []string{string(types.StatusPending), string(types.StatusRunning)}).
		Updates(map[string]any{
			"status":      string(types.StatusFailed),
			"error":       "interrupted by server restart",
			"finished_at": sql.NullTime{Time: at, Valid: true},
		})
	if res.Error != nil {
		return 0, fmt.Errorf("fail interrupted predictions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountPredictions returns the number of predictions per status.
func (s *Store) CountPredictions(ctx context.Context) (map[types.PredictionStatus]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := s.db.WithContext(ctx).Model(&Prediction{}).Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	out := make(map[types.PredictionStatus]int64, len(rows))
	for _, r := range rows {
		out[types.PredictionStatus(r.Status)] = r.N
	}
	return out, nil
}
