package plugin

import (
	"context"
	"fmt"
	"sync"
)

// InitContext is the context passed to a plugin's Initialize exactly
// once per lifecycle: {plugin_id, logger, isolation_domain_handle}.
type InitContext struct {
	PluginID string
	Logger   Logger
	Domain   *IsolationDomain
}

// Info is the self-description a plugin returns from Info(): used by
// by_type filtering and diagnostics. Capabilities is a tag set, not a
// language type — the manager understands plugins by the capability set
// they declare rather than by type identity.
type Info struct {
	Name         string
	Description  string
	Version      string
	Capabilities CapabilitySet
}

// Plugin is the capability contract entry classes must satisfy (§6).
// Reflection-based instantiation is replaced by factory registration
// (see FactoryRegistry): the loader never constructs a Plugin by
// reflecting over the bundle, it looks up a registered constructor by
// main_class and calls it.
type Plugin interface {
	// Initialize is called exactly once per lifecycle; it may block.
	// An error aborts load.
	Initialize(ctx context.Context, ictx InitContext) error

	// Cleanup is called at unload. Errors are logged and demoted, never
	// propagated as a hard failure of unload.
	Cleanup(ctx context.Context) error

	// Info describes the plugin for by_type filtering and diagnostics.
	Info() Info
}

// CapabilitySet is the tag list a plugin declares. by_type filters on
// capability membership rather than Go type identity, so two otherwise
// unrelated Plugin implementations that both declare "step:shell" are
// both visible to a caller asking for that capability.
type CapabilitySet map[string]struct{}

// NewCapabilitySet builds a CapabilitySet from the given tags.
func NewCapabilitySet(tags ...string) CapabilitySet {
	cs := make(CapabilitySet, len(tags))
	for _, t := range tags {
		cs[t] = struct{}{}
	}
	return cs
}

// Has reports whether tag is present.
func (cs CapabilitySet) Has(tag string) bool {
	_, ok := cs[tag]
	return ok
}

// Factory constructs a fresh Plugin instance. Bundles advertise a
// constructor as part of their entry table keyed by main_class; the
// loader looks it up here instead of reflecting over the bundle's
// classes, eliminating the runtime-reflection footgun described in the
// design notes while preserving "unknown implementation, known
// capability."
type Factory func() (Plugin, error)

// FactoryRegistry maps a bundle's declared main_class to the
// constructor the host has registered for it. The host populates this
// registry ahead of time (e.g. one entry per first-party step plugin it
// ships, or a dynamic registration performed by a plugin-discovery
// mechanism outside this core's scope).
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewFactoryRegistry returns an empty registry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[string]Factory)}
}

// Register associates mainClass with factory. A later call for the same
// mainClass replaces the earlier registration.
func (r *FactoryRegistry) Register(mainClass string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[mainClass] = factory
}

// Lookup resolves mainClass to its factory.
func (r *FactoryRegistry) Lookup(mainClass string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[mainClass]
	return f, ok
}

// Instantiate resolves and invokes the factory for mainClass.
func (r *FactoryRegistry) Instantiate(mainClass string) (Plugin, error) {
	factory, ok := r.Lookup(mainClass)
	if !ok {
		return nil, fmt.Errorf("no factory registered for main class %q", mainClass)
	}
	return factory()
}
