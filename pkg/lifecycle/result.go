package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// Status is a plugin's position in the lifecycle state machine.
type Status int

const (
	// StatusDiscovered is the entry state. Every record starts here before
	// moving to StatusValidating.
	StatusDiscovered Status = iota
	StatusValidating
	StatusLoading
	StatusRegistered
	StatusRunning
	StatusUnloading
	StatusUnloaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDiscovered:
		return "discovered"
	case StatusValidating:
		return "validating"
	case StatusLoading:
		return "loading"
	case StatusRegistered:
		return "registered"
	case StatusRunning:
		return "running"
	case StatusUnloading:
		return "unloading"
	case StatusUnloaded:
		return "unloaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OperationKind classifies a manager operation for results and events.
type OperationKind string

const (
	OpLoad   OperationKind = "load"
	OpUnload OperationKind = "unload"
	OpReload OperationKind = "reload"
)

// Result is the structured outcome of one manager operation. Every caller
// boundary (CLI, HTTP, hot reload) receives one of these instead of a raw
// error so failures stay scoped to the plugin they belong to.
type Result struct {
	OperationID      string        `json:"operation_id"`
	Kind             OperationKind `json:"kind"`
	PluginID         string        `json:"plugin_id,omitempty"`
	Success          bool          `json:"success"`
	Error            string        `json:"error,omitempty"`
	ValidationErrors []string      `json:"validation_errors,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
	Elapsed          time.Duration `json:"elapsed"`

	started time.Time
}

func newResult(kind OperationKind, pluginID string) *Result {
	return &Result{
		OperationID: uuid.NewString(),
		Kind:        kind,
		PluginID:    pluginID,
		started:     time.Now(),
	}
}

func (r *Result) succeed() *Result {
	r.Success = true
	r.Elapsed = time.Since(r.started)
	return r
}

func (r *Result) fail(err error) *Result {
	r.Success = false
	if err != nil {
		r.Error = err.Error()
	}
	r.Elapsed = time.Since(r.started)
	return r
}

// EventType identifies a lifecycle event.
type EventType string

const (
	EventLoaded       EventType = "loaded"
	EventLoadFailed   EventType = "load_failed"
	EventUnloaded     EventType = "unloaded"
	EventUnloadFailed EventType = "unload_failed"
	EventReloaded     EventType = "reloaded"
	EventQuarantined  EventType = "quarantined"
)

// Event is published to subscribed handlers after a lifecycle transition
// completes. Handlers run synchronously outside the per-plugin lock.
type Event struct {
	Type     EventType
	PluginID string
	Result   *Result
	Time     time.Time
}

// EventHandler receives lifecycle events. Handlers must not call back into
// the manager for the same plugin id.
type EventHandler func(Event)
