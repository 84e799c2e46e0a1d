// Package provider implements the capability-based provider registry.
//
// # Overview
//
// A Registry[T] holds every registered implementation of one contract type T,
// ordered by descending priority. Callers obtain an implementation with
// GetProvider, optionally narrowed by SelectionCriteria (required capabilities,
// minimum priority, target platform). Selection never mutates the registry and
// runs under a shared read lock, so any number of callers can select
// concurrently while registrations stay atomic.
//
// # Selection
//
// A provider matches criteria when all of the following hold:
//
//   - its priority is at least the criteria's minimum priority, if given
//   - its platform flags fully contain the target platform, if given
//   - every required capability is present in its capability set
//
// GetProvider returns the highest-priority match; GetProviders returns the
// full ordered matching subset for fan-out. An empty matching subset is a
// caller-visible *NoSuitableProviderError carrying the contract type name and
// the criteria; it signals misconfiguration and is never retried here.
//
// # Usage Example
//
//	registry := provider.NewRegistry[contract.Greeter]()
//	registry.Register(impl, provider.Metadata{
//		Name:         "formal",
//		Priority:     50,
//		Capabilities: []string{"greeting", "formal"},
//		Platforms:    provider.PlatformAll,
//		Version:      "1.0.0",
//	})
//
//	g, err := registry.GetProvider(&provider.SelectionCriteria{
//		RequiredCapabilities: []string{"formal"},
//	})
//
// # Related Packages
//
//   - pkg/lifecycle: registers plugin services into per-contract registries
//   - pkg/contract: the contract interfaces providers implement
package provider
