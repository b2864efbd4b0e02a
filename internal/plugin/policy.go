package plugin

const (
	defaultMaxFileSizeBytes    = 50 * 1024 * 1024
	strictMaxFileSizeBytes     = 10 * 1024 * 1024
	permissiveMaxFileSizeBytes = 100 * 1024 * 1024
)

// Policy is an immutable validator configuration. Construct it through
// DefaultPolicy, StrictPolicy, PermissivePolicy, or NewPolicy with
// PolicyOptions; there is no exported way to mutate one after
// construction.
type Policy struct {
	requireSignature bool
	requireIntegrity bool
	bytecodeScan     bool
	allowNativeLibs  bool
	maxFileSizeBytes int64
	trustedAuthors   map[string]struct{}
	allowedPackages  []string
}

// PolicyOption mutates a Policy under construction, the functional-options
// idiom used elsewhere in this codebase for configuration (compare
// NewCommandValidatorWithConfig).
type PolicyOption func(*Policy)

func RequireSignature(v bool) PolicyOption { return func(p *Policy) { p.requireSignature = v } }
func RequireIntegrity(v bool) PolicyOption { return func(p *Policy) { p.requireIntegrity = v } }
func BytecodeScan(v bool) PolicyOption     { return func(p *Policy) { p.bytecodeScan = v } }
func AllowNativeLibs(v bool) PolicyOption  { return func(p *Policy) { p.allowNativeLibs = v } }

func MaxFileSizeBytes(n int64) PolicyOption {
	return func(p *Policy) { p.maxFileSizeBytes = n }
}

func TrustedAuthors(authors ...string) PolicyOption {
	return func(p *Policy) {
		p.trustedAuthors = make(map[string]struct{}, len(authors))
		for _, a := range authors {
			p.trustedAuthors[a] = struct{}{}
		}
	}
}

func AllowedPackages(prefixes ...string) PolicyOption {
	return func(p *Policy) { p.allowedPackages = append([]string(nil), prefixes...) }
}

// NewPolicy builds a Policy from the default preset plus the supplied
// options.
func NewPolicy(opts ...PolicyOption) Policy {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// DefaultPolicy is the baseline preset: no signature requirement,
// integrity checked, bytecode scanned, native libs rejected, 50 MiB cap.
func DefaultPolicy() Policy {
	return Policy{
		requireSignature: false,
		requireIntegrity: true,
		bytecodeScan:     true,
		allowNativeLibs:  false,
		maxFileSizeBytes: defaultMaxFileSizeBytes,
		trustedAuthors:   map[string]struct{}{},
	}
}

// StrictPolicy additionally requires a signature and lowers the size cap.
func StrictPolicy() Policy {
	p := DefaultPolicy()
	p.requireSignature = true
	p.maxFileSizeBytes = strictMaxFileSizeBytes
	return p
}

// PermissivePolicy disables every gate except the (raised) size cap.
func PermissivePolicy() Policy {
	return Policy{
		requireSignature: false,
		requireIntegrity: false,
		bytecodeScan:     false,
		allowNativeLibs:  true,
		maxFileSizeBytes: permissiveMaxFileSizeBytes,
		trustedAuthors:   map[string]struct{}{},
	}
}

func (p Policy) RequireSignature() bool  { return p.requireSignature }
func (p Policy) RequireIntegrity() bool  { return p.requireIntegrity }
func (p Policy) BytecodeScan() bool      { return p.bytecodeScan }
func (p Policy) AllowNativeLibs() bool   { return p.allowNativeLibs }
func (p Policy) MaxFileSizeBytes() int64 { return p.maxFileSizeBytes }

func (p Policy) IsTrustedAuthor(author string) bool {
	_, ok := p.trustedAuthors[author]
	return ok
}

// DefaultAllowedPackages returns the allowlist Loader falls back to when
// metadata declares none.
func (p Policy) DefaultAllowedPackages() []string {
	if len(p.allowedPackages) > 0 {
		return append([]string(nil), p.allowedPackages...)
	}
	return append([]string(nil), defaultAllowedPackagePrefixes...)
}
