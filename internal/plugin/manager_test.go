package plugin_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/forgeci/plugincore/internal/plugin"
)

var _ = Describe("Manager", func() {
	var (
		fsys      afero.Fs
		registry  *plugin.FactoryRegistry
		pluginDir string
		ctx       context.Context
	)

	BeforeEach(func() {
		fsys = afero.NewMemMapFs()
		registry = plugin.NewFactoryRegistry()
		pluginDir = "/plugins"
		ctx = context.Background()
	})

	newManagerWithPolicy := func(policy plugin.Policy) *plugin.Manager {
		mgr, err := plugin.NewManager(fsys, pluginDir, policy, registry, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		return mgr
	}

	Describe("happy path", func() {
		It("loads a well-formed bundle and tracks it as Loaded", func() {
			registerFakeFactory(registry, "com.ex.Hello", newFakePlugin())
			Expect(writeBundle(fsys, pluginDir+"/hello-1.0.0.jar", bundleSpec{
				Properties: map[string]string{
					"plugin.id":         "hello",
					"plugin.version":    "1.0.0",
					"plugin.main-class": "com.ex.Hello",
					"plugin.author":     "alice",
				},
				ClassEntries: map[string][]byte{"com/ex/Hello.class": harmlessClassBody},
			})).To(Succeed())

			mgr := newManagerWithPolicy(plugin.DefaultPolicy())
			outcomes := mgr.LoadAll(ctx)
			Expect(outcomes).To(HaveLen(1))
			Expect(outcomes[0].Success).To(BeTrue())

			state, ok := mgr.State("hello")
			Expect(ok).To(BeTrue())
			Expect(state).To(Equal(plugin.StateLoaded))
			Expect(mgr.All()).To(HaveLen(1))
		})
	})

	Describe("oversize rejection", func() {
		It("fails with a message mentioning size when the bundle exceeds the policy cap", func() {
			registerFakeFactory(registry, "com.ex.Hello", newFakePlugin())
			big := make([]byte, 0)
			Expect(writeBundle(fsys, pluginDir+"/big-1.0.0.jar", bundleSpec{
				Properties: map[string]string{
					"plugin.id":         "big",
					"plugin.main-class": "com.ex.Hello",
				},
				ExtraEntries: map[string][]byte{"payload.bin": big},
			})).To(Succeed())

			// Lower the policy cap to 1 byte so the small bundle exceeds it,
			// rather than inflating the in-memory zip contents.
			policy := plugin.NewPolicy(plugin.MaxFileSizeBytes(1))
			mgr := newManagerWithPolicy(policy)
			result := mgr.Load(ctx, pluginDir+"/big-1.0.0.jar")
			Expect(result.Success).To(BeFalse())
			Expect(result.Err).To(HaveOccurred())
			Expect(result.Err.Error()).To(ContainSubstring("too large"))
		})
	})

	Describe("missing signature under a strict policy", func() {
		It("fails validation with MissingSignature", func() {
			registerFakeFactory(registry, "com.ex.Hello", newFakePlugin())
			Expect(writeBundle(fsys, pluginDir+"/unsigned-1.0.0.jar", bundleSpec{
				Properties: map[string]string{
					"plugin.id":         "unsigned",
					"plugin.main-class": "com.ex.Hello",
				},
				ClassEntries: map[string][]byte{"com/ex/Hello.class": harmlessClassBody},
			})).To(Succeed())

			mgr := newManagerWithPolicy(plugin.StrictPolicy())
			result := mgr.Load(ctx, pluginDir+"/unsigned-1.0.0.jar")
			Expect(result.Success).To(BeFalse())
			Expect(result.Err.Error()).To(ContainSubstring("certificates"))
		})
	})

	Describe("dangerous API usage", func() {
		It("rejects a class entry referencing a blocked JVM type", func() {
			registerFakeFactory(registry, "com.ex.Evil", newFakePlugin())
			Expect(writeBundle(fsys, pluginDir+"/evil-1.0.0.jar", bundleSpec{
				Properties: map[string]string{
					"plugin.id":         "evil",
					"plugin.main-class": "com.ex.Evil",
				},
				ClassEntries: map[string][]byte{"com/ex/Evil.class": dangerousClassBody},
			})).To(Succeed())

			mgr := newManagerWithPolicy(plugin.DefaultPolicy())
			result := mgr.Load(ctx, pluginDir+"/evil-1.0.0.jar")
			Expect(result.Success).To(BeFalse())
			Expect(result.Err.Error()).To(ContainSubstring("java/lang/Runtime"))
		})
	})

	Describe("duplicate id", func() {
		It("lets the first bundle load and fails the second", func() {
			registerFakeFactory(registry, "com.ex.A", newFakePlugin())
			registerFakeFactory(registry, "com.ex.B", newFakePlugin())
			for _, spec := range []struct {
				path      string
				mainClass string
			}{
				{pluginDir + "/dup-a.jar", "com.ex.A"},
				{pluginDir + "/dup-b.jar", "com.ex.B"},
			} {
				Expect(writeBundle(fsys, spec.path, bundleSpec{
					Properties: map[string]string{
						"plugin.id":         "dup",
						"plugin.main-class": spec.mainClass,
					},
					ClassEntries: map[string][]byte{"Main.class": harmlessClassBody},
				})).To(Succeed())
			}

			mgr := newManagerWithPolicy(plugin.DefaultPolicy())
			first := mgr.Load(ctx, pluginDir+"/dup-a.jar")
			Expect(first.Success).To(BeTrue())

			second := mgr.Load(ctx, pluginDir+"/dup-b.jar")
			Expect(second.Success).To(BeFalse())
			Expect(second.Err.Error()).To(Equal("Plugin with ID 'dup' is already loaded"))
		})
	})

	Describe("reload", func() {
		It("ends Loaded with the same id after a successful reload", func() {
			registerFakeFactory(registry, "com.ex.Hello", newFakePlugin())
			path := pluginDir + "/hello-1.0.0.jar"
			Expect(writeBundle(fsys, path, bundleSpec{
				Properties: map[string]string{
					"plugin.id":         "hello",
					"plugin.main-class": "com.ex.Hello",
				},
				ClassEntries: map[string][]byte{"com/ex/Hello.class": harmlessClassBody},
			})).To(Succeed())

			mgr := newManagerWithPolicy(plugin.DefaultPolicy())
			Expect(mgr.Load(ctx, path).Success).To(BeTrue())

			result := mgr.Reload(ctx, "hello")
			Expect(result.Success).To(BeTrue())
			state, _ := mgr.State("hello")
			Expect(state).To(Equal(plugin.StateLoaded))
		})
	})

	Describe("unload and shutdown", func() {
		It("empties the live set and marks every prior id Unloaded", func() {
			registerFakeFactory(registry, "com.ex.Hello", newFakePlugin())
			path := pluginDir + "/hello-1.0.0.jar"
			Expect(writeBundle(fsys, path, bundleSpec{
				Properties: map[string]string{
					"plugin.id":         "hello",
					"plugin.main-class": "com.ex.Hello",
				},
				ClassEntries: map[string][]byte{"com/ex/Hello.class": harmlessClassBody},
			})).To(Succeed())

			mgr := newManagerWithPolicy(plugin.DefaultPolicy())
			Expect(mgr.Load(ctx, path).Success).To(BeTrue())

			mgr.Shutdown(ctx)
			Expect(mgr.All()).To(BeEmpty())
			state, ok := mgr.State("hello")
			Expect(ok).To(BeTrue())
			Expect(state).To(Equal(plugin.StateUnloaded))
		})
	})

	Describe("get/state invariant", func() {
		It("only reports Loaded state for ids present in the live map", func() {
			registerFakeFactory(registry, "com.ex.Hello", newFakePlugin())
			path := pluginDir + "/hello-1.0.0.jar"
			Expect(writeBundle(fsys, path, bundleSpec{
				Properties: map[string]string{
					"plugin.id":         "hello",
					"plugin.main-class": "com.ex.Hello",
				},
				ClassEntries: map[string][]byte{"com/ex/Hello.class": harmlessClassBody},
			})).To(Succeed())

			mgr := newManagerWithPolicy(plugin.DefaultPolicy())
			Expect(mgr.Load(ctx, path).Success).To(BeTrue())

			_, ok := mgr.Get("hello")
			Expect(ok).To(BeTrue())
			state, _ := mgr.State("hello")
			Expect(state).To(Equal(plugin.StateLoaded))

			Expect(mgr.Unload(ctx, "hello")).To(BeTrue())
			_, ok = mgr.Get("hello")
			Expect(ok).To(BeFalse())
		})
	})
})
