package plugin

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const archiveExtension = ".jar"

var suspiciousDescriptionKeywords = []string{
	"hack", "exploit", "bypass", "admin", "root", "system",
}

// Validator orchestrates the Bundle Inspector, Integrity & Signature
// Checker, and Static Analyzer under a Policy, returning an aggregated
// outcome. It never lets a panic escape — anything unexpected is
// recovered and funneled into a ValidationError/Critical violation; no
// public lifecycle method here ever lets an exception escape to the
// caller.
type Validator struct {
	fsys afero.Fs
	log  Logger
}

// NewValidator builds a Validator reading bundles through fsys and
// logging through log. A nil log defaults to NopLogger.
func NewValidator(fsys afero.Fs, log Logger) *Validator {
	if log == nil {
		log = NopLogger{}
	}
	return &Validator{fsys: fsys, log: log}
}

// Validate runs the seven ordered steps in §4.F against path under
// policy, optionally checking metadata already extracted for the bundle.
func (v *Validator) Validate(policy Policy, path string, metadata *PluginMetadata) (outcome ValidationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = ValidationOutcome{
				Secure: false,
				Violations: []Violation{newViolation(KindValidationError, SeverityCritical,
					fmt.Sprintf("unexpected error during validation: %v", r), nil)},
			}
		}
	}()

	var violations []Violation
	var warnings []Warning

	// Step 1: existence/size.
	info, err := v.fsys.Stat(path)
	if err != nil {
		return ValidationOutcome{
			Secure:     false,
			Violations: []Violation{newViolation(KindFileNotFound, SeverityCritical, "bundle not found: "+path, nil)},
		}
	}
	if info.Size() > policy.MaxFileSizeBytes() {
		violations = append(violations, newViolation(KindExcessiveFileSize, SeverityHigh,
			fmt.Sprintf("bundle %s is too large: %d bytes exceeds cap of %d", path, info.Size(), policy.MaxFileSizeBytes()), nil))
	}

	// Step 2: integrity.
	if policy.RequireIntegrity() {
		violations = append(violations, checkIntegrity(v.fsys, path)...)
	}

	isArchive := strings.EqualFold(filepath.Ext(path), archiveExtension)

	var insp *BundleInspector
	if isArchive {
		insp, err = OpenBundle(v.fsys, path)
		if err != nil {
			violations = append(violations, newViolation(KindArchiveStructureError, SeverityHigh,
				"failed to open archive: "+err.Error(), nil))
		} else {
			defer insp.Close()

			// Step 3: archive structure.
			if !insp.HasManifest() {
				warnings = append(warnings, newWarning(WarnMissingManifest, "bundle carries no META-INF/MANIFEST.MF", nil))
			}
			for _, e := range insp.Entries() {
				if e.HasPathTraversal() {
					violations = append(violations, newViolation(KindPathTraversalAttempt, SeverityHigh,
						"entry name contains a path-traversal sequence: "+e.Name,
						map[string]string{"entry": e.Name}))
				}
				if e.IsExecutableContent() {
					violations = append(violations, newViolation(KindExecutableContent, SeverityHigh,
						"entry is executable content: "+e.Name,
						map[string]string{"entry": e.Name}))
				}
				if e.IsNativeLibrary() {
					if policy.AllowNativeLibs() {
						warnings = append(warnings, newWarning(WarnNativeLibraryDetected,
							"native library entry: "+e.Name, map[string]string{"entry": e.Name}))
					} else {
						violations = append(violations, newViolation(KindNativeLibraryProhibited, SeverityHigh,
							"native library entries are prohibited: "+e.Name,
							map[string]string{"entry": e.Name}))
					}
				}
			}
			if perms, ok := insp.ManifestAttr("Permissions"); ok && perms == "all-permissions" {
				violations = append(violations, newViolation(KindExcessivePermissions, SeverityHigh,
					"manifest requests all-permissions", nil))
			}
			if codebase, ok := insp.ManifestAttr("Codebase"); ok && !strings.HasPrefix(codebase, "https://") {
				warnings = append(warnings, newWarning(WarnInsecureCodebase,
					"manifest Codebase attribute is not served over https", map[string]string{"codebase": codebase}))
			}

			// Step 4: signature.
			if policy.RequireSignature() {
				violations = append(violations, checkSignature(insp, true)...)
			}

			// Step 5: bytecode scan.
			if policy.BytecodeScan() {
				sv, sw := runStaticAnalysis(insp)
				violations = append(violations, sv...)
				warnings = append(warnings, sw...)
			}
		}
	}

	// Step 6: metadata checks.
	if metadata != nil {
		if metadata.HasPathTraversal() {
			violations = append(violations, newViolation(KindMaliciousMetadata, SeverityHigh,
				"plugin id contains a path-traversal sequence: "+metadata.ID, nil))
		}
		if metadata.Version != "" && !metadata.ConformsToVersionScheme() {
			warnings = append(warnings, newWarning(WarnInvalidVersionFormat,
				"version "+metadata.Version+" does not conform to MAJOR.MINOR.PATCH[-QUALIFIER]", nil))
		}
		if metadata.Author == "" {
			warnings = append(warnings, newWarning(WarnMissingAuthorInfo, "plugin declares no author", nil))
		}
		lowerDesc := strings.ToLower(metadata.Description)
		for _, kw := range suspiciousDescriptionKeywords {
			if strings.Contains(lowerDesc, kw) {
				warnings = append(warnings, newWarning(WarnSuspiciousDescription,
					"description contains suspicious keyword: "+kw, map[string]string{"keyword": kw}))
			}
		}
	}

	// Step 7: readability.
	if f, err := v.fsys.Open(path); err != nil {
		violations = append(violations, newViolation(KindInsufficientPermissions, SeverityMedium,
			"bundle is not readable by this process: "+err.Error(), nil))
	} else {
		f.Close()
	}

	return ValidationOutcome{
		Secure:     isSecure(violations),
		Violations: violations,
		Warnings:   warnings,
	}
}
