package plugin

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/spf13/afero"
)

const classFileExtension = ".class"

// BundleEntry describes one entry of an inspected archive without
// materializing its contents.
type BundleEntry struct {
	Name        string
	IsDirectory bool
	Size        int64
	zipFile     *zip.File
}

// Open returns a streaming reader over the entry's bytes. Callers must
// close it; the Inspector never buffers a whole entry itself.
func (e BundleEntry) Open() (io.ReadCloser, error) {
	return e.zipFile.Open()
}

// IsClassEntry reports whether the entry uses the platform bytecode
// extension.
func (e BundleEntry) IsClassEntry() bool {
	return !e.IsDirectory && strings.HasSuffix(e.Name, classFileExtension)
}

// IsNativeLibrary reports whether the entry is a native-library payload.
func (e BundleEntry) IsNativeLibrary() bool {
	for _, ext := range []string{".dll", ".so", ".dylib"} {
		if strings.HasSuffix(e.Name, ext) {
			return true
		}
	}
	return false
}

// IsExecutableContent reports whether the entry is a disallowed
// executable script/binary payload.
func (e BundleEntry) IsExecutableContent() bool {
	for _, ext := range []string{".exe", ".bat", ".sh"} {
		if strings.HasSuffix(e.Name, ext) {
			return true
		}
	}
	return false
}

// HasPathTraversal reports whether the entry name contains a traversal
// sequence or an absolute root, by plain substring match
// ("evil/../ok.class" also triggers, not just a leading "../").
func (e BundleEntry) HasPathTraversal() bool {
	return strings.Contains(e.Name, "..") || strings.HasPrefix(e.Name, "/")
}

// BundleInspector opens an archive and exposes its structure without
// loading the whole file into memory: manifest lookup, streamed entry
// iteration, and per-entry byte readers.
type BundleInspector struct {
	closer      afero.File
	zr          *zip.Reader
	entries     []BundleEntry
	attrs       manifestAttrs
	hasManifest bool
}

// OpenBundle opens path (through fsys, so callers can substitute
// afero.MemMapFs in tests) as a zip/JAR-style archive. The underlying
// file handle is kept open for the inspector's lifetime so entries can be
// streamed lazily; callers must call Close.
func OpenBundle(fsys afero.Fs, path string) (*BundleInspector, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	insp := &BundleInspector{closer: f, zr: zr}

	entries := make([]BundleEntry, 0, len(zr.File))
	for _, zf := range zr.File {
		entries = append(entries, BundleEntry{
			Name:        zf.Name,
			IsDirectory: zf.FileInfo().IsDir(),
			Size:        int64(zf.UncompressedSize64),
			zipFile:     zf,
		})
		if zf.Name == "META-INF/MANIFEST.MF" {
			rc, err := zf.Open()
			if err == nil {
				data, _ := io.ReadAll(rc)
				rc.Close()
				insp.attrs = parseManifestAttrs(data)
				insp.hasManifest = true
			}
		}
	}
	insp.entries = entries
	return insp, nil
}

// Close releases the bundle's underlying file handle.
func (b *BundleInspector) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

// Entries returns the archive's entries in archive order.
func (b *BundleInspector) Entries() []BundleEntry { return b.entries }

// HasManifest reports whether META-INF/MANIFEST.MF was present.
func (b *BundleInspector) HasManifest() bool { return b.hasManifest }

// ManifestAttr looks up a manifest attribute by its exact name.
func (b *BundleInspector) ManifestAttr(name string) (string, bool) {
	if b.attrs == nil {
		return "", false
	}
	v, ok := b.attrs[name]
	return v, ok
}

// PluginPropertiesFile returns the plugin.properties entry, if any, at
// the archive root.
func (b *BundleInspector) PluginPropertiesFile() (BundleEntry, bool) {
	for _, e := range b.entries {
		if e.Name == propertiesFileName {
			return e, true
		}
	}
	return BundleEntry{}, false
}

// ReadEntry streams and fully reads a single entry; used by callers
// (integrity, static analysis) that need the whole entry's bytes in
// memory to scan it, while the inspector itself never reads more than
// one entry at a time.
func (b *BundleInspector) ReadEntry(e BundleEntry) ([]byte, error) {
	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
