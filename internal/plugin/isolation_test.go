package plugin_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forgeci/plugincore/internal/plugin"
)

var _ = Describe("IsolationDomain", func() {
	It("resolves a name locally when it is not blocked", func() {
		d := plugin.NewIsolationDomain("p", nil, nil, nil, nil)
		Expect(d.Resolve("io.forgeci.pipeline.plugin.Step")).To(Equal(plugin.ResolvedLocal))
	})

	It("denies a blocked name the host does not allow", func() {
		d := plugin.NewIsolationDomain("p", nil, nil, []string{"sun.misc"}, nil)
		Expect(d.Resolve("sun.misc.Unsafe")).To(Equal(plugin.ResolvedDenied))
	})

	It("delegates a blocked-but-allowed name to the host when the host accepts it", func() {
		d := plugin.NewIsolationDomain("p", nil, []string{"sun.misc"}, []string{"sun.misc"}, func(string) bool { return true })
		Expect(d.Resolve("sun.misc.Unsafe")).To(Equal(plugin.ResolvedHost))
	})

	It("tracks the count of names it has resolved", func() {
		d := plugin.NewIsolationDomain("p", nil, nil, nil, nil)
		d.Resolve("java.util.List")
		d.Resolve("java.time.Instant")
		Expect(d.ResolvedCount()).To(Equal(int64(2)))
	})

	It("disposes exactly once even when called more than once", func() {
		d := plugin.NewIsolationDomain("p", nil, nil, nil, nil)
		Expect(d.Dispose()).To(Succeed())
		Expect(d.Dispose()).To(Succeed())
	})
})
