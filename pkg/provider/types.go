package provider

import (
	"strconv"
	"strings"
)

// Platform is a bit mask of operating systems a provider supports.
type Platform uint8

const (
	PlatformLinux Platform = 1 << iota
	PlatformDarwin
	PlatformWindows

	// PlatformAll marks a provider as platform-independent.
	PlatformAll = PlatformLinux | PlatformDarwin | PlatformWindows
)

// Contains reports whether p covers every platform in target.
func (p Platform) Contains(target Platform) bool {
	return p&target == target
}

func (p Platform) String() string {
	if p == PlatformAll {
		return "all"
	}
	var names []string
	if p&PlatformLinux != 0 {
		names = append(names, "linux")
	}
	if p&PlatformDarwin != 0 {
		names = append(names, "darwin")
	}
	if p&PlatformWindows != 0 {
		names = append(names, "windows")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParsePlatform maps a GOOS-style name to its Platform flag.
// Unknown names map to zero.
func ParsePlatform(name string) Platform {
	switch strings.ToLower(name) {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	case "all", "":
		return PlatformAll
	}
	return 0
}

// Metadata describes a provider registration. It is copied on Register and
// never mutated afterwards; re-registering the same Name replaces the entry
// atomically.
type Metadata struct {
	// Name is unique within one registry. Ties in priority are broken by
	// ascending name so selection order is deterministic.
	Name string

	// Priority orders selection; higher wins.
	Priority int

	// Capabilities this provider advertises.
	Capabilities []string

	// Platforms the provider supports.
	Platforms Platform

	// Version is the provider's semantic version. Informational.
	Version string
}

// HasCapability reports whether the provider advertises the named capability.
func (m Metadata) HasCapability(name string) bool {
	for _, c := range m.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// clone deep-copies the metadata so callers cannot mutate a registered entry.
func (m Metadata) clone() Metadata {
	out := m
	out.Capabilities = make([]string, len(m.Capabilities))
	copy(out.Capabilities, m.Capabilities)
	return out
}

// SelectionCriteria narrows provider selection. The zero value matches every
// registered provider.
type SelectionCriteria struct {
	// RequiredCapabilities must all be present on a matching provider.
	RequiredCapabilities []string

	// PreferredCapabilities participate in future ranking only; they never
	// filter the matching subset.
	PreferredCapabilities []string

	// MinimumPriority, when non-nil, excludes providers below it.
	MinimumPriority *int

	// TargetPlatform, when non-zero, must be fully contained in the
	// provider's platform flags.
	TargetPlatform Platform
}

// String renders criteria for error messages and logs.
func (c *SelectionCriteria) String() string {
	if c == nil {
		return "<none>"
	}
	var parts []string
	if len(c.RequiredCapabilities) > 0 {
		parts = append(parts, "required="+strings.Join(c.RequiredCapabilities, ","))
	}
	if c.MinimumPriority != nil {
		parts = append(parts, "minPriority="+strconv.Itoa(*c.MinimumPriority))
	}
	if c.TargetPlatform != 0 {
		parts = append(parts, "platform="+c.TargetPlatform.String())
	}
	if len(parts) == 0 {
		return "<none>"
	}
	return strings.Join(parts, " ")
}
