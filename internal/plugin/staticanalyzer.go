package plugin

import (
	"bytes"
	"regexp"
)

// dangerousTypeNames is the blocklist of slash-form JVM type names the
// Static Analyzer searches for as literal byte occurrences.
var dangerousTypeNames = []string{
	"java/lang/Runtime",
	"java/lang/ProcessBuilder",
	"java/lang/System",
	"java/io/FileOutputStream",
	"java/io/FileWriter",
	"java/net/Socket",
	"java/net/ServerSocket",
	"java/net/URL",
	"java/net/URLConnection",
	"java/security/AccessController",
	"sun/misc/Unsafe",
}

// dangerousMethodNames lists the dangerous method names in the fixed
// order their violations are reported.
var dangerousMethodNames = []string{
	"exec", "exit", "halt", "getRuntime", "doPrivileged",
	"setSecurityManager", "loadLibrary", "load",
}

// dangerousMethodPatterns precompiles word-boundary matches for the
// dangerous method names, avoiding a false match inside a longer
// identifier (mirrors the precompiled-regexp-bank idiom used elsewhere in
// this codebase for command validation).
var dangerousMethodPatterns = compileMethodPatterns(dangerousMethodNames)

const reflectionPackageSubstring = "java/lang/reflect/"

func compileMethodPatterns(names []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(names))
	for _, n := range names {
		out[n] = regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `\b`)
	}
	return out
}

// scanClassEntry performs the coarse textual scan §4.E describes: the
// entry's bytes are treated as an opaque byte sequence (no UTF-8
// decoding). Dangerous API/type names and the reflection package are
// searched for as literal substrings; dangerous method names match only
// at word boundaries, so a method name directly adjacent to letters,
// digits or underscores is not flagged. This is
// intentionally not a bytecode constant-pool parser; false positives are
// accepted, as documented in the design notes.
func scanClassEntry(entryName string, data []byte) ([]Violation, []Warning) {
	var violations []Violation
	var warnings []Warning

	for _, typeName := range dangerousTypeNames {
		if bytes.Contains(data, []byte(typeName)) {
			violations = append(violations, newViolation(KindDangerousApiUsage, SeverityHigh,
				"dangerous API "+typeName+" referenced in "+entryName,
				map[string]string{"entry": entryName, "type": typeName}))
		}
	}

	for _, name := range dangerousMethodNames {
		if dangerousMethodPatterns[name].Match(data) {
			violations = append(violations, newViolation(KindDangerousMethodCall, SeverityHigh,
				"dangerous method "+name+" referenced in "+entryName,
				map[string]string{"entry": entryName, "method": name}))
		}
	}

	if bytes.Contains(data, []byte(reflectionPackageSubstring)) {
		warnings = append(warnings, newWarning(WarnReflectionUsage,
			"reflection usage detected in "+entryName,
			map[string]string{"entry": entryName}))
	}

	return violations, warnings
}

// runStaticAnalysis scans every class entry of an opened bundle. I/O
// failure reading an entry is surfaced as BytecodeAnalysisError rather
// than aborting the remaining entries.
func runStaticAnalysis(insp *BundleInspector) ([]Violation, []Warning) {
	var violations []Violation
	var warnings []Warning

	for _, e := range insp.Entries() {
		if !e.IsClassEntry() {
			continue
		}
		data, err := insp.ReadEntry(e)
		if err != nil {
			violations = append(violations, newViolation(KindBytecodeAnalysisError, SeverityHigh,
				"failed to read class entry "+e.Name+": "+err.Error(),
				map[string]string{"entry": e.Name}))
			continue
		}
		v, w := scanClassEntry(e.Name, data)
		violations = append(violations, v...)
		warnings = append(warnings, w...)
	}
	return violations, warnings
}
