package manager

// Event names published by the manager.
const (
	EventEvalStart          = "eval_start"
	EventPrepareUnsupported = "prepare_unsupported"
	EventInvokeDone         = "invoke_done"
	EventUnloadError        = "unload_error"
	EventEvalDone           = "eval_done"
	EventDiscoveryFallback  = "discovery_fallback"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name, evaluation id, model and optional fields.
type Event struct {
	Name   string
	EvalID string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
