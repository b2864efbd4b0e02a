package plugin

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// versionPattern is the canonical conformance check:
// MAJOR.MINOR.PATCH[-QUALIFIER].
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-\w+)?$`)

// PluginMetadata is extracted once per bundle, either from plugin.properties
// or from manifest Plugin-* attributes.
type PluginMetadata struct {
	ID              string
	Version         string
	Name            string
	Description     string
	Author          string
	MainClass       string
	AllowedPackages []string
	BlockedPackages []string
}

// ConformsToVersionScheme reports whether Version matches the canonical
// MAJOR.MINOR.PATCH[-QUALIFIER] form.
func (m PluginMetadata) ConformsToVersionScheme() bool {
	return versionPattern.MatchString(m.Version)
}

// SemverVersion parses Version with Masterminds/semver as a secondary,
// structured enrichment over ConformsToVersionScheme's regex check; a
// parse failure here is not itself a diagnostic, it only means the
// richer comparison operations (constraints, ordering) are unavailable.
func (m PluginMetadata) SemverVersion() (*semver.Version, error) {
	return semver.NewVersion(m.Version)
}

// HasPathTraversal reports whether id contains path-traversal sequences,
// the MaliciousMetadata trigger.
func (m PluginMetadata) HasPathTraversal() bool {
	return strings.Contains(m.ID, "..") || strings.Contains(m.ID, "/") || strings.Contains(m.ID, "\\")
}

const propertiesFileName = "plugin.properties"

// parsePluginProperties parses a plugin.properties key=value text file as
// found at the archive root.
func parsePluginProperties(data []byte) (PluginMetadata, bool) {
	props := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		props[key] = val
	}

	mainClass, ok := props["plugin.main-class"]
	if !ok || mainClass == "" {
		return PluginMetadata{}, false
	}

	return PluginMetadata{
		ID:              props["plugin.id"],
		Version:         props["plugin.version"],
		Name:            props["plugin.name"],
		Description:     props["plugin.description"],
		Author:          props["plugin.author"],
		MainClass:       mainClass,
		AllowedPackages: splitCommaList(props["plugin.allowed-packages"]),
		BlockedPackages: splitCommaList(props["plugin.blocked-packages"]),
	}, true
}

// manifestAttrs is a minimal key-value view over a JAR manifest's main
// section, sufficient for the Plugin-* attributes this core consumes.
type manifestAttrs map[string]string

func parseManifestAttrs(data []byte) manifestAttrs {
	attrs := make(manifestAttrs)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var lastKey string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && lastKey != "" {
			attrs[lastKey] += strings.TrimPrefix(strings.TrimPrefix(line, " "), "\t")
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		attrs[key] = val
		lastKey = key
	}
	return attrs
}

// parseManifestMetadata builds a PluginMetadata from manifest Plugin-*
// attributes. Plugin-Main-Class is required.
func parseManifestMetadata(attrs manifestAttrs) (PluginMetadata, bool) {
	mainClass := attrs["Plugin-Main-Class"]
	if mainClass == "" {
		return PluginMetadata{}, false
	}
	return PluginMetadata{
		ID:          attrs["Plugin-Id"],
		Version:     attrs["Plugin-Version"],
		Name:        attrs["Plugin-Name"],
		Description: attrs["Plugin-Description"],
		Author:      attrs["Plugin-Author"],
		MainClass:   mainClass,
	}, true
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyMetadataDefaults fills in the defaults the load algorithm specifies:
// id falls back to the file stem, version to 1.0.0, author to "Unknown".
// main_class has no default.
func applyMetadataDefaults(m PluginMetadata, fileStem string) PluginMetadata {
	if m.ID == "" {
		m.ID = fileStem
	}
	if m.Version == "" {
		m.Version = "1.0.0"
	}
	if m.Author == "" {
		m.Author = "Unknown"
	}
	return m
}
