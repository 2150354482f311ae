package manager

import (
	"errors"
	"fmt"
)

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ queueDepth int }

func (e tooBusyError) Error() string {
	return fmt.Sprintf("too busy: prediction queue is full (depth %d)", e.queueDepth)
}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// notFoundError reports an unknown prediction identifier.
type notFoundError struct{ what, id string }

func (e notFoundError) Error() string { return e.what + " not found: " + e.id }

// IsNotFound reports whether err indicates a missing record (return 404).
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// predictionBusyError is returned when exporting a prediction that is still
// pending or running.
type predictionBusyError struct {
	id     string
	status string
}

func (e predictionBusyError) Error() string {
	return fmt.Sprintf("prediction %s is %s", e.id, e.status)
}

// IsPredictionBusy reports whether err indicates an unfinished prediction (return 409).
func IsPredictionBusy(err error) bool {
	var e predictionBusyError
	return errors.As(err, &e)
}

// invalidUploadError carries a client-facing rejection of an upload.
type invalidUploadError struct{ msg string }

func (e invalidUploadError) Error() string { return e.msg }

// IsInvalidUpload reports whether err rejects the uploaded file (return 400).
func IsInvalidUpload(err error) bool {
	var e invalidUploadError
	return errors.As(err, &e)
}

// errShuttingDown is returned for work submitted after Close.
var errShuttingDown = errors.New("server is shutting down")

// IsShuttingDown reports whether err was caused by Close (return 503).
func IsShuttingDown(err error) bool { return errors.Is(err, errShuttingDown) }

// NewInvalidUploadError builds an upload rejection recognized by IsInvalidUpload.
func NewInvalidUploadError(msg string) error { return invalidUploadError{msg: msg} }

// NewTooBusyError builds a queue-full rejection recognized by IsTooBusy.
func NewTooBusyError(queueDepth int) error { return tooBusyError{queueDepth: queueDepth} }

// NewNotFoundError builds a missing-record error recognized by IsNotFound.
func NewNotFoundError(what, id string) error { return notFoundError{what: what, id: id} }
