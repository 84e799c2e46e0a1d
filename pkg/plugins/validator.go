package plugins

import (
	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
)

// Validator decides whether discovered metadata may be loaded. It runs four
// independent checks, each appending to one shared ValidationResult, so a
// single pass reports every problem at once. Validation never mutates the
// metadata or any global state.
type Validator struct {
	log *logrus.Logger
}

// NewValidator creates a plugin validator.
func NewValidator(log *logrus.Logger) *Validator {
	if log == nil {
		log = logrus.New()
	}
	return &Validator{log: log}
}

// Validate runs the full validation pipeline over one plugin's metadata.
func (v *Validator) Validate(meta *Metadata, vctx *ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}
	if vctx == nil {
		vctx = &ValidationContext{}
	}

	v.checkGates(meta, vctx, result)
	v.checkDependencies(meta, vctx, result)
	v.checkModeAndPlatform(meta, vctx, result)
	v.checkSignature(meta, result)

	if !result.Valid {
		v.log.WithFields(logrus.Fields{
			"plugin": meta.ID,
			"errors": len(result.Errors),
		}).Debug("Plugin failed validation")
	}
	return result
}

// checkGates requires every declared gate to be present and satisfied in the
// supplied available-gate set.
func (v *Validator) checkGates(meta *Metadata, vctx *ValidationContext, result *ValidationResult) {
	for _, gate := range meta.RequiredGates {
		if !vctx.AvailableGates[gate] {
			result.addErrorf("required gate %q is not satisfied", gate)
		}
	}
}

// checkDependencies requires every declared dependency to already be loaded
// at a version inside the declared range. Missing and mismatched dependencies
// are reported separately.
func (v *Validator) checkDependencies(meta *Metadata, vctx *ValidationContext, result *ValidationResult) {
	for _, dep := range meta.Dependencies {
		loadedVersion, loaded := vctx.LoadedVersions[dep.ID]
		if !loaded {
			result.addErrorf("dependency %q is not loaded", dep.ID)
			continue
		}
		if dep.Range == "" {
			continue
		}

		constraint, err := semver.NewConstraint(dep.Range)
		if err != nil {
			result.addErrorf("dependency %q: invalid version range %q: %v", dep.ID, dep.Range, err)
			continue
		}
		version, err := semver.NewVersion(loadedVersion)
		if err != nil {
			result.addErrorf("dependency %q: loaded version %q is not semver: %v", dep.ID, loadedVersion, err)
			continue
		}
		if !constraint.Check(version) {
			result.addErrorf("dependency %q: loaded version %s does not satisfy range %q", dep.ID, loadedVersion, dep.Range)
		}
	}
}

// checkModeAndPlatform requires the current execution context to be among the
// plugin's declared modes/platforms, when it declares any.
func (v *Validator) checkModeAndPlatform(meta *Metadata, vctx *ValidationContext, result *ValidationResult) {
	if vctx.Mode != "" && !meta.SupportsMode(vctx.Mode) {
		result.addErrorf("plugin does not support execution mode %q (supported: %v)", vctx.Mode, meta.SupportedModes)
	}
	if vctx.Platform != 0 && !meta.SupportsPlatform(vctx.Platform) {
		result.addErrorf("plugin does not support platform %s (supported: %v)", vctx.Platform, meta.SupportedPlatforms)
	}
}

// checkSignature is a placeholder for signature verification. Until it is
// implemented, the gap is recorded on the result so callers cannot mistake an
// unchecked plugin for a verified one.
func (v *Validator) checkSignature(meta *Metadata, result *ValidationResult) {
	result.addWarningf("signature verification not implemented; plugin %s is treated as unsigned", meta.ID)
}
