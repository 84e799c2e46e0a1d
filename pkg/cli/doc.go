// Package cli implements the hub command-line interface.
//
// # Commands
//
// Lifecycle operations talk to a running hub daemon over its HTTP API:
//
//	hub load -path ./plugins/echo
//	hub unload -id echo
//	hub reload -id echo
//	hub list
//
// Discovery runs locally, since it only reads metadata:
//
//	hub discover -dir ./plugins
//
// # Exit codes
//
// Every lifecycle command prints the operation's structured result as JSON
// and exits 0 on success, 2 when validation rejected the plugin, 3 when the
// load or unload itself failed, and 1 on usage errors.
package cli
