package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hub/pkg/provider"
)

func TestValidator_AllChecksPass(t *testing.T) {
	validator := NewValidator(quietLogger())

	meta := &Metadata{
		ID:      "clean",
		Version: "1.0.0",
		RequiredGates: []string{
			"beta-plugins",
		},
		Dependencies: []Dependency{
			{ID: "base", Range: ">=1.0.0 <2.0.0"},
		},
		SupportedModes: []string{"server"},
	}

	result := validator.Validate(meta, &ValidationContext{
		AvailableGates: map[string]bool{"beta-plugins": true},
		LoadedVersions: map[string]string{"base": "1.4.2"},
		Mode:           "server",
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	// Signature verification is stubbed; its absence must be explicit.
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "signature verification not implemented")
}

func TestValidator_MissingGate(t *testing.T) {
	validator := NewValidator(quietLogger())

	meta := &Metadata{ID: "gated", Version: "1.0.0", RequiredGates: []string{"secret-gate"}}
	result := validator.Validate(meta, &ValidationContext{})

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `gate "secret-gate"`)
}

func TestValidator_DependencyChecks(t *testing.T) {
	validator := NewValidator(quietLogger())

	tests := []struct {
		name      string
		dep       Dependency
		loaded    map[string]string
		wantError string
	}{
		{
			name:      "missing dependency named in error",
			dep:       Dependency{ID: "ghost"},
			loaded:    map[string]string{},
			wantError: `dependency "ghost" is not loaded`,
		},
		{
			name:      "version mismatch distinct from missing",
			dep:       Dependency{ID: "base", Range: ">=2.0.0"},
			loaded:    map[string]string{"base": "1.9.0"},
			wantError: "does not satisfy range",
		},
		{
			name:   "satisfied range",
			dep:    Dependency{ID: "base", Range: "^1.0.0"},
			loaded: map[string]string{"base": "1.9.0"},
		},
		{
			name:   "empty range accepts any loaded version",
			dep:    Dependency{ID: "base"},
			loaded: map[string]string{"base": "0.0.1"},
		},
		{
			name:      "non-semver loaded version reported",
			dep:       Dependency{ID: "base", Range: "^1.0.0"},
			loaded:    map[string]string{"base": "garbage"},
			wantError: "is not semver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := &Metadata{ID: "p", Version: "1.0.0", Dependencies: []Dependency{tt.dep}}
			result := validator.Validate(meta, &ValidationContext{LoadedVersions: tt.loaded})

			if tt.wantError == "" {
				assert.True(t, result.Valid)
				assert.Empty(t, result.Errors)
				return
			}
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.wantError)
		})
	}
}

func TestValidator_ModeAndPlatform(t *testing.T) {
	validator := NewValidator(quietLogger())

	t.Run("unsupported mode", func(t *testing.T) {
		meta := &Metadata{ID: "p", Version: "1.0.0", SupportedModes: []string{"cli"}}
		result := validator.Validate(meta, &ValidationContext{Mode: "server"})
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], `execution mode "server"`)
	})

	t.Run("empty modes means all", func(t *testing.T) {
		meta := &Metadata{ID: "p", Version: "1.0.0"}
		result := validator.Validate(meta, &ValidationContext{Mode: "anything"})
		assert.True(t, result.Valid)
	})

	t.Run("unsupported platform", func(t *testing.T) {
		meta := &Metadata{ID: "p", Version: "1.0.0", SupportedPlatforms: []string{"windows"}}
		result := validator.Validate(meta, &ValidationContext{Platform: provider.PlatformLinux})
		assert.False(t, result.Valid)
	})

	t.Run("platform within declared set", func(t *testing.T) {
		meta := &Metadata{ID: "p", Version: "1.0.0", SupportedPlatforms: []string{"linux", "darwin"}}
		result := validator.Validate(meta, &ValidationContext{Platform: provider.PlatformDarwin})
		assert.True(t, result.Valid)
	})
}

func TestValidator_ReportsAllProblemsAtOnce(t *testing.T) {
	validator := NewValidator(quietLogger())

	meta := &Metadata{
		ID:            "broken",
		Version:       "1.0.0",
		RequiredGates: []string{"gate-a", "gate-b"},
		Dependencies: []Dependency{
			{ID: "ghost"},
		},
		SupportedModes: []string{"cli"},
	}

	result := validator.Validate(meta, &ValidationContext{Mode: "server"})

	// Two gate errors + one dependency error + one mode error; no check
	// short-circuits the others.
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 4)
}

func TestValidator_NilContext(t *testing.T) {
	validator := NewValidator(nil)

	meta := &Metadata{ID: "p", Version: "1.0.0"}
	result := validator.Validate(meta, nil)
	assert.True(t, result.Valid)
}
