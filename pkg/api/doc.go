// Package api exposes the plugin lifecycle manager over HTTP.
//
// # Endpoints
//
//	POST   /plugins               load a plugin from {"path": "<dir>"}
//	GET    /plugins               list plugin records
//	GET    /plugins/{id}          one plugin record
//	DELETE /plugins/{id}          unload a plugin
//	POST   /plugins/{id}/reload   unload then load a plugin
//	GET    /plugins/{id}/dependents  impact report for a loaded plugin
//	GET    /discovery             scan roots for candidates (metadata only)
//	GET    /quarantine            quarantined plugin ids and reasons
//	DELETE /quarantine/{id}       lift a quarantine
//
// Lifecycle endpoints return the operation's structured result. The status
// code distinguishes failure classes: 422 when validation rejected the
// plugin, 500 when the operation itself failed.
package api
