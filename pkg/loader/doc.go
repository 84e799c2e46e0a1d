// Package loader creates one isolated module-loading boundary per plugin.
//
// # Overview
//
// A Boundary wraps a dedicated Go interpreter (traefik/yaegi) holding exactly
// one plugin's code. Dropping the boundary makes that interpreter, and every
// value the plugin created, collectible, which is what makes unload possible
// without restarting the host.
//
// # Constructors
//
// A plugin exposes its services through exported niladic constructors in its
// main package. A constructor must declare a shared contract interface as its
// return type (for example contract.GreeterService): the declared type is
// what the interpreter converts the plugin value into at the boundary, so a
// concrete or private return type would be unusable on the host side.
//
// # Shared vs private dependencies
//
// Import paths matching the fixed shared allow-list (pkg/contract and
// pkg/provider) resolve to the host's own, already-loaded packages, injected
// into every boundary through the interpreter's symbol table. This is the
// subsystem's central correctness rule: if a plugin carried its own copy of a
// contract type, host-side type assertions against plugin values would fail
// even though both sides name the same type. Every other import a plugin
// makes is resolved inside its own interpreter and is invisible to the host
// and to other plugins.
//
// # Unload and reclamation
//
// RequestUnload drops the boundary's interpreter reference and returns a
// Tracker holding only a weak pointer to it. The runtime does not reclaim
// synchronously, so unload is a request, not a completion: callers release
// their own references into the boundary, then use AwaitReclamation to force
// bounded GC cycles and verify through the Tracker that the interpreter was
// actually collected. A tracker that never reports reclaimed means a live
// reference leaked somewhere; AwaitReclamation reports that instead of
// pretending the unload succeeded.
package loader
