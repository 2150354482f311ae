package types

import "time"

// UploadResponse is returned by POST /api/upload on success.
type UploadResponse struct {
	// example: Successfully uploaded
	Message string `json:"message" example:"Successfully uploaded"`
	// Upload identifier to pass as `data` to /api/predict.
	// example: 3f1c0f5e-4a0e-4d65-9a8b-2a3b8f6c1d2e
	UUID string `json:"uuid" example:"3f1c0f5e-4a0e-4d65-9a8b-2a3b8f6c1d2e"`
}

// PredictRequest holds the query parameters of POST /api/predict.
type PredictRequest struct {
	// Target task name.
	Task string `schema:"task"`
	// Upload identifier.
	Data string `schema:"data"`
	// Crop black borders before inference: On or Off.
	IsCrop string `schema:"is_crop"`
}

// PredictResponse is returned by POST /api/predict on success.
type PredictResponse struct {
	// example: Successfully predicted
	Message string `json:"message" example:"Successfully predicted"`
	// Prediction identifier to pass as `predict` to /api/export.
	// example: 9b2e4c1a-7d0f-4e3b-8a61-5c2d9e0f1a7b
	UUID string `json:"uuid" example:"9b2e4c1a-7d0f-4e3b-8a61-5c2d9e0f1a7b"`
	// Job status at the time of the response.
	// example: pending
	Status PredictionStatus `json:"status,omitempty" example:"pending"`
}

// ExportRequest holds the query parameters of POST /api/export.
type ExportRequest struct {
	Predict string `schema:"predict"`
}

// Prediction is the tracked state of one prediction job.
type Prediction struct {
	// example: 9b2e4c1a-7d0f-4e3b-8a61-5c2d9e0f1a7b
	UUID string `json:"uuid" example:"9b2e4c1a-7d0f-4e3b-8a61-5c2d9e0f1a7b"`
	// example: 3f1c0f5e-4a0e-4d65-9a8b-2a3b8f6c1d2e
	UploadUUID string `json:"upload_uuid" example:"3f1c0f5e-4a0e-4d65-9a8b-2a3b8f6c1d2e"`
	// example: 3D Segmentation lungs covid
	Task string `json:"task" example:"3D Segmentation lungs covid"`
	// example: true
	IsCrop bool `json:"is_crop" example:"true"`
	// example: succeeded
	Status PredictionStatus `json:"status" example:"succeeded"`
	// Exit code of the inference process, when it ran to completion.
	// example: 0
	ExitCode *int `json:"exit_code,omitempty" example:"0"`
	// Failure description, if any.
	Error string `json:"error,omitempty"`
	// Last bytes of the inference process stderr.
	StderrTail string     `json:"stderr_tail,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TaskInfo is one entry of GET /api/tasks.
type TaskInfo struct {
	Task
	// Whether the checkpoint file exists in the weights directory.
	// example: true
	WeightsPresent bool `json:"weights_present" example:"true"`
}

// TasksResponse wraps the task table returned by GET /api/tasks.
type TasksResponse struct {
	Tasks []TaskInfo `json:"tasks"`
}

// ErrorResponse is the JSON error envelope used by every endpoint.
type ErrorResponse struct {
	// example: Input payload validation failed
	Message string `json:"message" example:"Input payload validation failed"`
	// Per-parameter validation errors.
	Errors map[string]string `json:"errors,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// example: true
	Ready bool `json:"ready" example:"true"`
	// example: 1
	Workers int `json:"workers" example:"1"`
	// Jobs currently executing.
	// example: 1
	Running int `json:"running" example:"1"`
	// Jobs waiting for a worker.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Accepted upload suffixes.
	AllowedExtensions []string `json:"allowed_extensions" example:".nii.gz"`
	// Prediction counts by status.
	Predictions map[PredictionStatus]int64 `json:"predictions"`
	// example: 3600
	UptimeSeconds int64  `json:"uptime_seconds" example:"3600"`
	Error         string `json:"error,omitempty"`
}
