// Package plugins provides metadata discovery and validation for hub plugins.
//
// # Overview
//
// This package covers the first half of the plugin pipeline: finding candidate
// plugins on disk and deciding whether they may be loaded. Loading itself is
// pkg/loader's job; orchestration is pkg/lifecycle's.
//
// # Discovery
//
// Discovery scans configured root directories for plugin candidates. A
// candidate is a directory containing a plugin.yaml manifest, a Go module
// file, or both. Inspection is metadata-only: the manifest is parsed as YAML
// and the module file is parsed with go/parser; plugin code is never
// executed during a scan. One corrupt candidate is logged and skipped;
// discovery always returns the candidates that did scan cleanly.
//
// # Validation
//
// Validator runs four independent checks over discovered metadata: required
// gates, declared dependencies (presence and version range), execution
// mode/platform compatibility, and a signature-verification stub. Every check
// appends to one ValidationResult instead of short-circuiting, so a single
// pass reports all problems at once. Validation is a pure function of the
// metadata and the supplied ValidationContext; it never mutates global state.
//
// # Usage Example
//
//	discovery := plugins.NewDiscovery([]string{"/etc/hub/plugins"}, logger)
//	metas, err := discovery.Scan(ctx)
//
//	validator := plugins.NewValidator(logger)
//	result := validator.Validate(metas[0], &plugins.ValidationContext{
//		AvailableGates: map[string]bool{"beta-plugins": true},
//		Mode:           "server",
//	})
//	if !result.Valid {
//		log.Printf("refused: %v", result.Errors)
//	}
//
// # Related Packages
//
//   - pkg/loader: loads validated plugins into isolated boundaries
//   - pkg/lifecycle: drives discovery, validation, and loading
package plugins
