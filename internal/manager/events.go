package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + subject ID and optional fields via key/values.
type Event struct {
	Name   string
	ID     string
	Fields map[string]any
}

// Event names.
const (
	EventUploaded        = "upload_stored"
	EventPredictQueued   = "predict_queued"
	EventPredictRejected = "predict_rejected"
	EventPredictStart    = "predict_start"
	EventPredictEnd      = "predict_end"
	EventExported        = "export_built"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
