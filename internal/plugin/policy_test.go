package plugin_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forgeci/plugincore/internal/plugin"
)

var _ = Describe("Policy presets", func() {
	It("default requires integrity and bytecode scan but not signature", func() {
		p := plugin.DefaultPolicy()
		Expect(p.RequireSignature()).To(BeFalse())
		Expect(p.RequireIntegrity()).To(BeTrue())
		Expect(p.BytecodeScan()).To(BeTrue())
		Expect(p.AllowNativeLibs()).To(BeFalse())
		Expect(p.MaxFileSizeBytes()).To(Equal(int64(50 * 1024 * 1024)))
	})

	It("strict additionally requires a signature and lowers the cap", func() {
		p := plugin.StrictPolicy()
		Expect(p.RequireSignature()).To(BeTrue())
		Expect(p.MaxFileSizeBytes()).To(Equal(int64(10 * 1024 * 1024)))
	})

	It("permissive disables every gate but raises the cap", func() {
		p := plugin.PermissivePolicy()
		Expect(p.RequireSignature()).To(BeFalse())
		Expect(p.RequireIntegrity()).To(BeFalse())
		Expect(p.BytecodeScan()).To(BeFalse())
		Expect(p.AllowNativeLibs()).To(BeTrue())
		Expect(p.MaxFileSizeBytes()).To(Equal(int64(100 * 1024 * 1024)))
	})

	It("applies options supplied at construction", func() {
		p := plugin.NewPolicy(plugin.TrustedAuthors("alice", "bob"))
		Expect(p.IsTrustedAuthor("alice")).To(BeTrue())
		Expect(p.IsTrustedAuthor("mallory")).To(BeFalse())
	})

	It("falls back to the default allowed-package prefixes when none are configured", func() {
		p := plugin.DefaultPolicy()
		Expect(p.DefaultAllowedPackages()).To(ContainElement("java.lang"))
	})
})
