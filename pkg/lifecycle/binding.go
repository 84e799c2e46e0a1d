package lifecycle

import (
	"fmt"

	"github.com/platinummonkey/hub/pkg/provider"
)

// Binding connects loaded plugin instances to one typed provider registry.
// The manager holds a set of bindings, one per contract it serves, and offers
// every instantiated plugin service to each of them; a service may satisfy
// more than one contract and be registered in several registries at once.
type Binding interface {
	// Contract names the registry's contract type.
	Contract() string

	// Bind registers the instance when it implements the binding's contract.
	// Returns false without error when the instance is some other contract's
	// business; an error here means the instance matched but registration
	// failed.
	Bind(instance interface{}, meta provider.Metadata) (bool, error)

	// Unbind removes a previously bound provider by name. Returns whether an
	// entry was removed.
	Unbind(name string) bool
}

type registryBinding[T any] struct {
	registry *provider.Registry[T]
}

// NewRegistryBinding adapts a typed registry into a Binding the manager can
// hold alongside bindings for other contract types.
func NewRegistryBinding[T any](r *provider.Registry[T]) Binding {
	return &registryBinding[T]{registry: r}
}

func (b *registryBinding[T]) Contract() string {
	return b.registry.Contract()
}

func (b *registryBinding[T]) Bind(instance interface{}, meta provider.Metadata) (bool, error) {
	typed, ok := instance.(T)
	if !ok {
		return false, nil
	}
	if err := b.registry.Register(typed, meta); err != nil {
		return false, fmt.Errorf("register %s into %s: %w", meta.Name, b.registry.Contract(), err)
	}
	return true, nil
}

func (b *registryBinding[T]) Unbind(name string) bool {
	return b.registry.Unregister(name) == nil
}
