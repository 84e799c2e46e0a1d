package provider

import (
	"fmt"
	"reflect"
	"sync"
)

// NoSuitableProviderError is returned when no registered provider matches the
// caller's criteria. It signals a misconfiguration; the registry never retries.
type NoSuitableProviderError struct {
	Contract string
	Criteria *SelectionCriteria
}

func (e *NoSuitableProviderError) Error() string {
	return fmt.Sprintf("no suitable provider for contract %s (criteria: %s)", e.Contract, e.Criteria.String())
}

// ChangeType identifies what a ChangeEvent describes.
type ChangeType int

const (
	ProviderAdded ChangeType = iota
	ProviderReplaced
	ProviderRemoved
)

func (t ChangeType) String() string {
	switch t {
	case ProviderAdded:
		return "added"
	case ProviderReplaced:
		return "replaced"
	case ProviderRemoved:
		return "removed"
	}
	return "unknown"
}

// ChangeEvent is delivered to registered handlers after the registry mutates.
type ChangeEvent struct {
	Type     ChangeType
	Contract string
	Metadata Metadata
}

// ChangeHandler observes registry mutations. Handlers run on the mutating
// goroutine after the registry lock has been released.
type ChangeHandler func(ChangeEvent)

// Registered pairs a live provider instance with its metadata. The registry
// that holds it is its only writer.
type Registered[T any] struct {
	Instance T
	Metadata Metadata
}

// Registry is a priority-ordered collection of providers for one contract
// type. Registration takes an exclusive lock; selection takes a shared lock,
// so readers never observe a half-updated list.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries []Registered[T] // invariant: priority descending, name ascending within ties

	handlerMu sync.RWMutex
	handlers  []ChangeHandler

	contract string
}

// NewRegistry creates an empty registry for contract type T.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		contract: reflect.TypeOf((*T)(nil)).Elem().String(),
	}
}

// Contract returns the contract type name this registry serves.
func (r *Registry[T]) Contract() string {
	return r.contract
}

// Register inserts a provider, replacing any existing entry with the same
// metadata name. The insert walks to the first index whose priority is
// strictly lower (names break ties), so the list stays sorted without a
// re-sort.
func (r *Registry[T]) Register(instance T, meta Metadata) error {
	if meta.Name == "" {
		return fmt.Errorf("provider metadata requires a name")
	}

	meta = meta.clone()
	entry := Registered[T]{Instance: instance, Metadata: meta}

	r.mu.Lock()
	replaced := r.removeLocked(meta.Name)
	idx := len(r.entries)
	for i, existing := range r.entries {
		if existing.Metadata.Priority < meta.Priority ||
			(existing.Metadata.Priority == meta.Priority && existing.Metadata.Name > meta.Name) {
			idx = i
			break
		}
	}
	r.entries = append(r.entries, Registered[T]{})
	copy(r.entries[idx+1:], r.entries[idx:])
	r.entries[idx] = entry
	r.mu.Unlock()

	eventType := ProviderAdded
	if replaced {
		eventType = ProviderReplaced
	}
	r.emit(ChangeEvent{Type: eventType, Contract: r.contract, Metadata: meta})
	return nil
}

// Unregister removes the named provider. Returns an error if it is not
// registered.
func (r *Registry[T]) Unregister(name string) error {
	r.mu.Lock()
	var meta Metadata
	found := false
	for _, e := range r.entries {
		if e.Metadata.Name == name {
			meta = e.Metadata
			found = true
			break
		}
	}
	if found {
		r.removeLocked(name)
	}
	r.mu.Unlock()

	if !found {
		return fmt.Errorf("provider %q not registered for contract %s", name, r.contract)
	}
	r.emit(ChangeEvent{Type: ProviderRemoved, Contract: r.contract, Metadata: meta})
	return nil
}

// removeLocked removes the named entry if present. Caller holds the write lock.
func (r *Registry[T]) removeLocked(name string) bool {
	for i, e := range r.entries {
		if e.Metadata.Name == name {
			copy(r.entries[i:], r.entries[i+1:])
			// Zero the vacated tail slot so the backing array drops its
			// strong reference to the removed instance; a retained copy
			// would keep an unloaded plugin's boundary alive.
			r.entries[len(r.entries)-1] = Registered[T]{}
			r.entries = r.entries[:len(r.entries)-1]
			return true
		}
	}
	return false
}

// GetProvider returns the highest-priority provider matching criteria.
// A nil criteria returns the globally highest-priority provider.
func (r *Registry[T]) GetProvider(criteria *SelectionCriteria) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if matches(e.Metadata, criteria) {
			return e.Instance, nil
		}
	}

	var zero T
	return zero, &NoSuitableProviderError{Contract: r.contract, Criteria: criteria}
}

// GetProviders returns the full ordered matching subset, for fan-out callers.
func (r *Registry[T]) GetProviders(criteria *SelectionCriteria) []Registered[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Registered[T]
	for _, e := range r.entries {
		if matches(e.Metadata, criteria) {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the provider registered under the given name.
func (r *Registry[T]) Get(name string) (Registered[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Metadata.Name == name {
			return e, true
		}
	}
	return Registered[T]{}, false
}

// Len returns the number of registered providers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// AddChangeHandler registers a handler for subsequent registry mutations.
func (r *Registry[T]) AddChangeHandler(h ChangeHandler) {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()
	r.handlers = append(r.handlers, h)
}

func (r *Registry[T]) emit(event ChangeEvent) {
	r.handlerMu.RLock()
	handlers := make([]ChangeHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.handlerMu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// matches applies the selection rule: minimum priority, platform containment,
// and required-capability subset. Preferred capabilities never filter.
func matches(meta Metadata, criteria *SelectionCriteria) bool {
	if criteria == nil {
		return true
	}
	if criteria.MinimumPriority != nil && meta.Priority < *criteria.MinimumPriority {
		return false
	}
	if criteria.TargetPlatform != 0 && !meta.Platforms.Contains(criteria.TargetPlatform) {
		return false
	}
	for _, required := range criteria.RequiredCapabilities {
		if !meta.HasCapability(required) {
			return false
		}
	}
	return true
}
