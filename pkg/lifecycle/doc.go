// Package lifecycle orchestrates plugins from discovery to reclamation.
//
// The Manager owns the state machine
//
//	discovered -> validating -> loading -> registered -> running
//	           -> unloading  -> unloaded | failed
//
// and serializes operations per plugin id: a hot reload can never interleave
// with an explicit unload of the same plugin, while operations on different
// plugins run fully in parallel. Failures stay scoped to the plugin they
// belong to; nothing in this package ever takes the host process down.
//
// Loaded plugins form a dependency graph. An unload is refused while other
// loaded plugins depend on the id; reload replaces rather than removes, and
// Shutdown walks the graph dependents-first.
//
// A plugin whose boundary cannot be confirmed reclaimed after unload is
// quarantined: its id refuses further loads until an operator calls
// ClearQuarantine, so a leaked reference cannot silently compound across
// reload cycles.
//
// The Watcher layers hot reload on top: filesystem change events feed a
// per-plugin debounce timer, a stability poll confirms the module file is
// fully written, and then the manager runs a plain unload and load cycle.
package lifecycle
