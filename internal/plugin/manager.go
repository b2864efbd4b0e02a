package plugin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	pluginerrors "github.com/forgeci/plugincore/internal/errors"
)

// PluginState is the observable lifecycle state tracked per plugin id.
// It persists past unload, unlike the live plugin map entry. Transitions
// are monotonic within one lifecycle: Unknown -> Loaded -> (Unloaded |
// Error). Reload is Loaded -> Unloaded -> Loaded, or it terminates at
// Unloaded/Error.
type PluginState string

const (
	StateLoaded   PluginState = "Loaded"
	StateUnloaded PluginState = "Unloaded"
	StateError    PluginState = "Error"
)

// LoadedPlugin is the tuple (metadata, instance, isolation domain,
// source location) the Manager tracks for every live plugin.
type LoadedPlugin struct {
	Metadata PluginMetadata
	Instance Plugin
	Domain   *IsolationDomain
	Location string
}

// LoadOutcome is the result of a single load attempt: either a
// successfully loaded plugin, or a failure carrying the bundle's best
// available name and an error.
type LoadOutcome struct {
	Success bool
	Plugin  *LoadedPlugin
	Name    string
	Err     error
}

// Stats is the aggregated reporting the manager exposes via Stats().
type Stats struct {
	Live         int
	Loaded       int
	Unloaded     int
	Errored      int
	ResolvedSyms int64
}

// Manager is the Plugin Registry & Manager, the lifecycle engine of
// §4.H: a single-writer mutex serializes every mutating operation, while
// get/all/state/stats run lock-free against a concurrent-safe snapshot
// published through atomic.Pointer swaps.
type Manager struct {
	mu sync.Mutex

	live   atomic.Pointer[map[string]*LoadedPlugin]
	states atomic.Pointer[map[string]PluginState]

	fsys      afero.Fs
	pluginDir string
	policy    Policy
	validator *Validator
	factories *FactoryRegistry
	log       Logger
	host      HostResolver
	tracer    trace.Tracer
}

// NewManager constructs a Manager rooted at pluginDir, creating it if
// missing. factories resolves main_class to a plugin constructor; log
// may be nil (defaults to NopLogger); host resolves names an isolation
// domain delegates outward (may be nil, meaning no host delegation).
func NewManager(fsys afero.Fs, pluginDir string, policy Policy, factories *FactoryRegistry, log Logger, host HostResolver) (*Manager, error) {
	if log == nil {
		log = NopLogger{}
	}
	if factories == nil {
		factories = NewFactoryRegistry()
	}
	if err := fsys.MkdirAll(pluginDir, 0o755); err != nil {
		return nil, err
	}

	m := &Manager{
		fsys:      fsys,
		pluginDir: pluginDir,
		policy:    policy,
		validator: NewValidator(fsys, log),
		factories: factories,
		log:       log,
		host:      host,
		tracer:    otel.Tracer("plugincore/manager"),
	}
	emptyLive := map[string]*LoadedPlugin{}
	emptyStates := map[string]PluginState{}
	m.live.Store(&emptyLive)
	m.states.Store(&emptyStates)
	return m, nil
}

// snapshotLive returns the current live-plugin snapshot. Safe without
// the mutex: readers only ever observe a fully-built, immutable map.
func (m *Manager) snapshotLive() map[string]*LoadedPlugin {
	return *m.live.Load()
}

func (m *Manager) snapshotStates() map[string]PluginState {
	return *m.states.Load()
}

// publishLocked builds new snapshot maps from the mutation function and
// swaps them in. Callers must already hold m.mu.
func (m *Manager) publishLocked(mutate func(live map[string]*LoadedPlugin, states map[string]PluginState)) {
	oldLive := m.snapshotLive()
	oldStates := m.snapshotStates()

	newLive := make(map[string]*LoadedPlugin, len(oldLive))
	for k, v := range oldLive {
		newLive[k] = v
	}
	newStates := make(map[string]PluginState, len(oldStates))
	for k, v := range oldStates {
		newStates[k] = v
	}

	mutate(newLive, newStates)

	m.live.Store(&newLive)
	m.states.Store(&newStates)
}

// Get returns a live plugin by id without acquiring the writer lock.
func (m *Manager) Get(id string) (*LoadedPlugin, bool) {
	p, ok := m.snapshotLive()[id]
	return p, ok
}

// All returns a snapshot list of every live plugin, in no particular
// order.
func (m *Manager) All() []*LoadedPlugin {
	live := m.snapshotLive()
	out := make([]*LoadedPlugin, 0, len(live))
	for _, p := range live {
		out = append(out, p)
	}
	return out
}

// ByType returns live plugins that declare capability in their Info().
// Filtering is by capability tag, not by Go type identity.
func (m *Manager) ByType(capability string) []*LoadedPlugin {
	var out []*LoadedPlugin
	for _, p := range m.All() {
		if p.Instance.Info().Capabilities.Has(capability) {
			out = append(out, p)
		}
	}
	return out
}

// State returns the observable state for id, which persists past unload.
func (m *Manager) State(id string) (PluginState, bool) {
	s, ok := m.snapshotStates()[id]
	return s, ok
}

// Stats aggregates counts over the current state map and live map.
func (m *Manager) Stats() Stats {
	states := m.snapshotStates()
	var s Stats
	s.Live = len(m.snapshotLive())
	for _, st := range states {
		switch st {
		case StateLoaded:
			s.Loaded++
		case StateUnloaded:
			s.Unloaded++
		case StateError:
			s.Errored++
		}
	}
	for _, p := range m.snapshotLive() {
		s.ResolvedSyms += p.Domain.ResolvedCount()
	}
	return s
}

// LoadAll enumerates the plugin directory non-recursively, filters by
// archive extension, and loads each in directory-listing order. A single
// failure never stops the remaining iteration.
func (m *Manager) LoadAll(ctx context.Context) []LoadOutcome {
	ctx, span := m.tracer.Start(ctx, "plugin.load_all")
	defer span.End()

	entries, err := afero.ReadDir(m.fsys, m.pluginDir)
	if err != nil {
		m.log.Warn("plugin directory scan failed", "dir", m.pluginDir, "error", err)
		return nil
	}

	var outcomes []LoadOutcome
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), archiveExtension) {
			continue
		}
		outcomes = append(outcomes, m.Load(ctx, filepath.Join(m.pluginDir, entry.Name())))
	}
	return outcomes
}

// Load runs the nine-step load algorithm of §4.H under the manager's
// mutex.
func (m *Manager) Load(ctx context.Context, path string) LoadOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := filepath.Base(path)
	ctx, span := m.tracer.Start(ctx, "plugin.load", trace.WithAttributes(attribute.String("bundle", name)))
	defer span.End()

	return m.loadLocked(ctx, path)
}

func (m *Manager) fail(name string, err error) LoadOutcome {
	m.log.Error("plugin load failed", "bundle", name, "error", err)
	return LoadOutcome{Success: false, Name: name, Err: err}
}

// extractMetadata implements step 2's precedence: plugin.properties at
// the archive root, else manifest Plugin-* attributes, else failure.
func (m *Manager) extractMetadata(path, fileName string) (PluginMetadata, error) {
	insp, err := OpenBundle(m.fsys, path)
	if err != nil {
		return PluginMetadata{}, pluginerrors.Wrap(err, "failed to open bundle")
	}
	defer insp.Close()

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	if propsEntry, ok := insp.PluginPropertiesFile(); ok {
		data, err := insp.ReadEntry(propsEntry)
		if err != nil {
			return PluginMetadata{}, pluginerrors.Wrap(err, "failed to read plugin.properties")
		}
		if md, ok := parsePluginProperties(data); ok {
			return applyMetadataDefaults(md, stem), nil
		}
	}

	if insp.HasManifest() {
		if md, ok := parseManifestMetadata(manifestAttrsOf(insp)); ok {
			return applyMetadataDefaults(md, stem), nil
		}
	}

	return PluginMetadata{}, pluginerrors.ErrMetadataMissing
}

func manifestAttrsOf(insp *BundleInspector) manifestAttrs {
	if insp.attrs == nil {
		return manifestAttrs{}
	}
	return insp.attrs
}

// Unload calls the plugin's cleanup, disposes its isolation domain, and
// removes it from the live map. Cleanup is always attempted; any error
// from cleanup or disposal demotes the state to Error rather than
// propagating.
func (m *Manager) Unload(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.tracer.Start(ctx, "plugin.unload", trace.WithAttributes(attribute.String("plugin_id", id)))
	defer span.End()

	return m.unloadLocked(ctx, id)
}

// unloadLocked performs the unload algorithm; callers must hold m.mu.
func (m *Manager) unloadLocked(ctx context.Context, id string) bool {
	loaded, exists := m.snapshotLive()[id]
	if !exists {
		return false
	}

	failed := false
	if err := loaded.Instance.Cleanup(ctx); err != nil {
		m.log.Error("plugin cleanup failed", "id", id, "error", err)
		failed = true
	}
	if err := loaded.Domain.Dispose(); err != nil {
		m.log.Error("plugin isolation domain disposal failed", "id", id, "error", err)
		failed = true
	}

	m.publishLocked(func(live map[string]*LoadedPlugin, states map[string]PluginState) {
		delete(live, id)
		if failed {
			states[id] = StateError
		} else {
			states[id] = StateUnloaded
		}
	})

	if failed {
		m.log.Error("plugin unloaded with errors", "id", id)
		return false
	}
	m.log.Info("plugin unloaded", "id", id)
	return true
}

// Reload is atomic at the API level (the mutex is held across both
// steps) but sequential state-wise: unload must succeed before load is
// attempted. If load then fails, the plugin remains unloaded.
func (m *Manager) Reload(ctx context.Context, id string) LoadOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.tracer.Start(ctx, "plugin.reload", trace.WithAttributes(attribute.String("plugin_id", id)))
	defer span.End()

	loaded, exists := m.snapshotLive()[id]
	if !exists {
		return m.fail(id, pluginerrors.ErrPluginNotFound)
	}
	location := loaded.Location

	if !m.unloadLocked(ctx, id) {
		return m.fail(id, fmt.Errorf("reload of %q aborted: unload failed", id))
	}

	return m.loadLocked(ctx, location)
}

// loadLocked implements the nine-step load algorithm. Callers (Load,
// Reload) must already hold m.mu; sync.Mutex is not reentrant, so this
// is factored out as the one body both entry points share.
func (m *Manager) loadLocked(ctx context.Context, path string) LoadOutcome {
	name := filepath.Base(path)

	// Step 1: validate file.
	info, err := m.fsys.Stat(path)
	if err != nil {
		return m.fail(name, pluginerrors.Wrap(err, "bundle file not found"))
	}
	if info.IsDir() {
		return m.fail(name, pluginerrors.ErrNotRegularFile)
	}
	if !strings.EqualFold(filepath.Ext(path), archiveExtension) {
		return m.fail(name, fmt.Errorf("%s: not an archive bundle", name))
	}

	metadata, err := m.extractMetadata(path, name)
	if err != nil {
		return m.fail(name, err)
	}

	outcome := m.validator.Validate(m.policy, path, &metadata)
	for _, w := range outcome.Warnings {
		m.log.Warn("plugin validation warning", "bundle", name, "warning", w.String())
	}
	if !outcome.Secure {
		return m.fail(name, fmt.Errorf("%s", JoinViolations(outcome.Violations)))
	}

	if _, exists := m.snapshotLive()[metadata.ID]; exists {
		return m.fail(name, fmt.Errorf("Plugin with ID '%s' is already loaded", metadata.ID))
	}

	insp, err := OpenBundle(m.fsys, path)
	if err != nil {
		return m.fail(name, pluginerrors.Wrap(err, "failed to open bundle for loading"))
	}
	allowed := metadata.AllowedPackages
	if len(allowed) == 0 {
		allowed = m.policy.DefaultAllowedPackages()
	}
	domain := NewIsolationDomain(metadata.ID, insp, allowed, metadata.BlockedPackages, m.host)

	instance, err := m.factories.Instantiate(metadata.MainClass)
	if err != nil {
		domain.Dispose()
		return m.fail(name, err)
	}

	ictx := InitContext{PluginID: metadata.ID, Logger: m.log, Domain: domain}
	if err := instance.Initialize(ctx, ictx); err != nil {
		domain.Dispose()
		return m.fail(name, pluginerrors.Wrap(err, "plugin initialization failed"))
	}

	loaded := &LoadedPlugin{Metadata: metadata, Instance: instance, Domain: domain, Location: path}
	m.publishLocked(func(live map[string]*LoadedPlugin, states map[string]PluginState) {
		live[metadata.ID] = loaded
		states[metadata.ID] = StateLoaded
	})
	m.log.Info("plugin loaded", "id", metadata.ID, "version", metadata.Version)

	return LoadOutcome{Success: true, Plugin: loaded, Name: metadata.ID}
}

// Shutdown unloads every live plugin in the current id set, best-effort:
// individual failures are logged but never stop the remaining
// iteration.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.tracer.Start(ctx, "plugin.shutdown")
	defer span.End()

	for id := range m.snapshotLive() {
		if !m.unloadLocked(ctx, id) {
			m.log.Error("shutdown: plugin unload failed", "id", id)
		}
	}
}
