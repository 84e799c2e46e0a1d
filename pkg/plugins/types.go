package plugins

import (
	"fmt"

	"github.com/platinummonkey/hub/pkg/provider"
)

// Dependency declares that a plugin requires another plugin to already be
// loaded, at a version satisfying Range.
type Dependency struct {
	ID string `yaml:"id"`
	// Range is a semver constraint, e.g. ">=1.0.0 <2.0.0" or "^1.2.0".
	// Empty means any version.
	Range string `yaml:"version"`
}

// Metadata is everything discovery learns about a plugin without executing
// it. It is produced once per candidate and treated as read-only afterwards.
type Metadata struct {
	// ID uniquely identifies the plugin. Derived from the directory name
	// unless the manifest overrides it.
	ID string `yaml:"id"`

	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`

	// ModulePath is the plugin's Go source file, loaded into an isolated
	// boundary at load time.
	ModulePath string `yaml:"-"`

	// Services names the exported constructor symbols providing plugin
	// services. Populated from the manifest, or from a metadata-only source
	// inspection when the manifest omits them.
	Services []string `yaml:"services"`

	// Dependencies on other plugins, by id and version range.
	Dependencies []Dependency `yaml:"dependencies"`

	// RequiredGates are feature flags that must be externally satisfied
	// before the plugin may load.
	RequiredGates []string `yaml:"required_gates"`

	// SupportedModes restricts which execution modes may load the plugin.
	// Empty means all modes.
	SupportedModes []string `yaml:"supported_modes"`

	// SupportedPlatforms restricts which platforms may load the plugin.
	// Empty means all platforms.
	SupportedPlatforms []string `yaml:"supported_platforms"`
}

// SupportsMode reports whether the plugin may run in the given mode.
func (m *Metadata) SupportsMode(mode string) bool {
	if len(m.SupportedModes) == 0 {
		return true
	}
	for _, s := range m.SupportedModes {
		if s == mode {
			return true
		}
	}
	return false
}

// SupportsPlatform reports whether the plugin may run on the given platform.
func (m *Metadata) SupportsPlatform(p provider.Platform) bool {
	if len(m.SupportedPlatforms) == 0 {
		return true
	}
	for _, s := range m.SupportedPlatforms {
		if provider.ParsePlatform(s).Contains(p) {
			return true
		}
	}
	return false
}

// ValidationResult collects everything a validation pass found. It is data,
// never an error value: callers decide whether a failure is fatal.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *ValidationResult) addErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *ValidationResult) addWarningf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidationContext carries the external state validation is judged against.
// Passing it explicitly keeps Validate a pure function of its inputs.
type ValidationContext struct {
	// AvailableGates is the externally-supplied set of satisfied feature
	// flags.
	AvailableGates map[string]bool

	// LoadedVersions maps already-loaded plugin ids to their versions, for
	// dependency resolution.
	LoadedVersions map[string]string

	// Mode is the host's current execution mode (e.g. "server", "cli").
	Mode string

	// Platform is the host's platform flag.
	Platform provider.Platform
}
