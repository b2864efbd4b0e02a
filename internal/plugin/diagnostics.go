package plugin

import "fmt"

// Severity ranks how serious a diagnostic finding is. Only High and
// Critical violations reject a bundle.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ViolationKind is a closed set of reasons a bundle can be rejected.
type ViolationKind string

const (
	KindFileNotFound             ViolationKind = "FileNotFound"
	KindExcessiveFileSize        ViolationKind = "ExcessiveFileSize"
	KindIntegrityCheckFailed     ViolationKind = "IntegrityCheckFailed"
	KindIntegrityCheckError      ViolationKind = "IntegrityCheckError"
	KindPathTraversalAttempt     ViolationKind = "PathTraversalAttempt"
	KindExecutableContent        ViolationKind = "ExecutableContent"
	KindNativeLibraryProhibited  ViolationKind = "NativeLibraryProhibited"
	KindArchiveStructureError    ViolationKind = "ArchiveStructureError"
	KindExcessivePermissions     ViolationKind = "ExcessivePermissions"
	KindMissingSignature         ViolationKind = "MissingSignature"
	KindInvalidSignature         ViolationKind = "InvalidSignature"
	KindSignatureVerificationErr ViolationKind = "SignatureVerificationError"
	KindDangerousApiUsage        ViolationKind = "DangerousApiUsage"
	KindDangerousMethodCall      ViolationKind = "DangerousMethodCall"
	KindMaliciousMetadata        ViolationKind = "MaliciousMetadata"
	KindInsufficientPermissions  ViolationKind = "InsufficientPermissions"
	KindBytecodeAnalysisError    ViolationKind = "BytecodeAnalysisError"
	KindValidationError          ViolationKind = "ValidationError"
)

// WarningKind is a closed set of advisory findings. Warnings never cause
// rejection.
type WarningKind string

const (
	WarnMissingManifest       WarningKind = "MissingManifest"
	WarnInsecureCodebase      WarningKind = "InsecureCodebase"
	WarnNativeLibraryDetected WarningKind = "NativeLibraryDetected"
	WarnReflectionUsage       WarningKind = "ReflectionUsage"
	WarnInvalidVersionFormat  WarningKind = "InvalidVersionFormat"
	WarnMissingAuthorInfo     WarningKind = "MissingAuthorInfo"
	WarnSuspiciousDescription WarningKind = "SuspiciousDescription"
)

// Violation is a validation finding serious enough to participate in the
// secure/insecure decision.
type Violation struct {
	Kind     ViolationKind
	Severity Severity
	Message  string
	Detail   map[string]string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s[%s]: %s", v.Kind, v.Severity, v.Message)
}

// Warning is an advisory finding that never rejects a bundle.
type Warning struct {
	Kind    WarningKind
	Message string
	Detail  map[string]string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

func newViolation(kind ViolationKind, severity Severity, msg string, detail map[string]string) Violation {
	return Violation{Kind: kind, Severity: severity, Message: msg, Detail: detail}
}

func newWarning(kind WarningKind, msg string, detail map[string]string) Warning {
	return Warning{Kind: kind, Message: msg, Detail: detail}
}

// isSecure implements the decision rule: no violation at High or Critical
// severity. Warnings never flip this.
func isSecure(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == SeverityHigh || v.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// ValidationOutcome is the aggregated result of running the Validator
// against a bundle.
type ValidationOutcome struct {
	Secure     bool
	Violations []Violation
	Warnings   []Warning
}

// JoinViolations concatenates violation messages with "; ", the separator
// the load algorithm uses to build a single failure message.
func JoinViolations(violations []Violation) string {
	s := ""
	for i, v := range violations {
		if i > 0 {
			s += "; "
		}
		s += v.Message
	}
	return s
}
