package store

import (
	"database/sql"
	"time"

	"segmentd/pkg/types"
)

// Upload records one staged input volume.
type Upload struct {
	Id        string `gorm:"primaryKey;size:36"`
	Filename  string `gorm:"not null"`
	SizeBytes int64
	CreatedAt time.Time
}

// Prediction records one run of the inference process.
type Prediction struct {
	Id         string `gorm:"primaryKey;size:36"`
	UploadId   string `gorm:"size:36;index"`
	Task       string `gorm:"not null"`
	IsCrop     bool
	Status     string `gorm:"size:20;not null;index"`
	ExitCode   sql.NullInt64
	Error      string
	StderrTail string
	CreatedAt  time.Time
	StartedAt  sql.NullTime
	FinishedAt sql.NullTime
}

// ToAPI converts the record to its wire form.
func (p Prediction) ToAPI() types.Prediction {
	out := types.Prediction{
		UUID:       p.Id,
		UploadUUID: p.UploadId,
		Task:       p.Task,
		IsCrop:     p.IsCrop,
		Status:     types.PredictionStatus(p.Status),
		Error:      p.Error,
		StderrTail: p.StderrTail,
		CreatedAt:  p.CreatedAt,
	}
	if p.ExitCode.Valid {
		code := int(p.ExitCode.Int64)
		out.ExitCode = &code
	}
	if p.StartedAt.Valid {
		t := p.StartedAt.Time
		out.StartedAt = &t
	}
	if p.FinishedAt.Valid {
		t := p.FinishedAt.Time
		out.FinishedAt = &t
	}
	return out
}
