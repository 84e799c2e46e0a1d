package contract

import (
	"context"

	"github.com/platinummonkey/hub/pkg/provider"
)

// Service is implemented by every instance a plugin exposes to the host.
// Start is called after the instance has been registered into its capability
// registries; Stop is called before the plugin's boundary is torn down.
// Both must be safe to call exactly once and must honor ctx cancellation.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Describable lets a service advertise the metadata it should be registered
// under. Services that do not implement it are registered with defaults
// derived from their plugin id.
type Describable interface {
	ProviderMetadata() provider.Metadata
}

// Greeter is a demonstration contract. Providers greet a named caller.
type Greeter interface {
	Greet(ctx context.Context, name string) (string, error)
}

// GreeterService is the loadable form of Greeter: the contract itself plus
// the lifecycle hooks and registration metadata the host needs. Plugin
// constructors declare a loadable interface like this one as their return
// type; the declared type is what crosses the plugin boundary.
type GreeterService interface {
	Service
	Describable
	Greeter
}
