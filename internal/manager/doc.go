// Package manager coordinates uploads, prediction jobs and exports. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, worker lifecycle, getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - errors.go: error types and helpers (IsTooBusy, IsNotFound, ...).
//   - admission.go: bounded queue admission for prediction jobs.
//   - upload.go: upload validation and staging.
//   - predict.go: job creation, execution and status lookup.
//   - export.go: zipping a prediction directory.
//   - status_report.go: Status reporting.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: prometheus collectors for jobs and uploads.
//
// A prediction moves pending -> running -> succeeded | failed. Only a zero
// exit status of the inference process counts as success; the job record is
// the only place a failed run is visible, since the HTTP contract for
// /api/predict answers 201 once the job has been accepted.
package manager
