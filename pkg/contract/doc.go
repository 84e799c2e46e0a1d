// Package contract defines the stable interfaces shared between the host and
// every plugin boundary.
//
// Types in this package (and in pkg/provider) are the only symbols resolved
// against the host's own copies when a plugin is loaded. A plugin that carried
// its own copy of these types would produce values the host cannot type-assert,
// so the loader injects this package into every boundary instead of letting the
// plugin resolve it privately.
//
// Service is the lifecycle hook every plugin-provided instance implements.
// Greeter is a small demonstration contract used by the example plugin and the
// test suite; real deployments define their own contract interfaces alongside
// it with a provider.Registry per contract.
package contract
