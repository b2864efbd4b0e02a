package plugin_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forgeci/plugincore/internal/plugin"
)

var _ = Describe("FactoryRegistry", func() {
	It("instantiates a registered factory by main class", func() {
		registry := plugin.NewFactoryRegistry()
		registerFakeFactory(registry, "io.forgeci.Step", newFakePlugin())

		instance, err := registry.Instantiate("io.forgeci.Step")
		Expect(err).NotTo(HaveOccurred())
		Expect(instance).NotTo(BeNil())
	})

	It("fails to instantiate an unregistered main class", func() {
		registry := plugin.NewFactoryRegistry()
		_, err := registry.Instantiate("does.not.Exist")
		Expect(err).To(HaveOccurred())
	})

	It("replaces an earlier registration for the same main class", func() {
		registry := plugin.NewFactoryRegistry()
		first := newFakePlugin()
		second := newFakePlugin()
		registerFakeFactory(registry, "io.forgeci.Step", first)
		registerFakeFactory(registry, "io.forgeci.Step", second)

		factory, ok := registry.Lookup("io.forgeci.Step")
		Expect(ok).To(BeTrue())
		instance, err := factory()
		Expect(err).NotTo(HaveOccurred())
		Expect(instance).To(Equal(second))
	})
})

var _ = Describe("CapabilitySet", func() {
	It("reports membership for declared tags only", func() {
		cs := plugin.NewCapabilitySet("step:shell", "step:docker")
		Expect(cs.Has("step:shell")).To(BeTrue())
		Expect(cs.Has("step:unknown")).To(BeFalse())
	})
})

var _ = Describe("Plugin contract", func() {
	It("is satisfied by a fake plugin across its full lifecycle", func() {
		p := newFakePlugin()
		ctx := context.Background()

		Expect(p.Initialize(ctx, plugin.InitContext{PluginID: "p"})).To(Succeed())
		Expect(p.initCalled).To(BeTrue())

		Expect(p.Cleanup(ctx)).To(Succeed())
		Expect(p.cleanCalled).To(BeTrue())
	})
})
