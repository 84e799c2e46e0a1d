// Package dependencies tracks the dependency edges between loaded plugins.
//
// The lifecycle manager adds a node when a plugin reaches the running state
// and removes it when the plugin is unloaded or quarantined. The graph then
// answers the ordering questions the manager cares about:
//
//   - Dependents: who breaks if this plugin is unloaded right now
//   - UnloadOrder: a shutdown sequence where every plugin is unloaded
//     before the plugins it depends on
//   - ImpactOf: direct and transitive blast radius for one id
//
// Version ranges on the edges are declared constraints only; satisfaction is
// checked at validation time, not here.
package dependencies
