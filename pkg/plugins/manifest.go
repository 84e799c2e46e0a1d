package plugins

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// ManifestFileName is the manifest file looked for in every plugin directory.
const ManifestFileName = "plugin.yaml"

// LoadManifest loads and parses a plugin manifest from a file.
func LoadManifest(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &meta, nil
}

// LoadManifestFromDir loads a plugin manifest from a directory.
func LoadManifestFromDir(dir string) (*Metadata, error) {
	return LoadManifest(filepath.Join(dir, ManifestFileName))
}

// SaveManifest writes a plugin manifest to a file. Used by tooling and tests;
// discovery treats manifests as read-only inputs.
func SaveManifest(meta *Metadata, path string) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// CheckManifest performs structural validation of discovered metadata:
// identity fields, semver format, and dependency range syntax. Behavioral
// checks (gates, dependency presence, modes) belong to Validator.
func CheckManifest(meta *Metadata) []string {
	var problems []string

	if meta.ID == "" {
		problems = append(problems, "plugin id is required")
	}
	if meta.Version == "" {
		problems = append(problems, "version is required")
	} else if _, err := semver.NewVersion(meta.Version); err != nil {
		problems = append(problems, fmt.Sprintf("invalid semver %q: %v", meta.Version, err))
	}
	for _, dep := range meta.Dependencies {
		if dep.ID == "" {
			problems = append(problems, "dependency with empty id")
			continue
		}
		if dep.Range == "" {
			continue
		}
		if _, err := semver.NewConstraint(dep.Range); err != nil {
			problems = append(problems, fmt.Sprintf("dependency %s: invalid version range %q: %v", dep.ID, dep.Range, err))
		}
	}

	return problems
}
