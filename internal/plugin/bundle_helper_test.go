package plugin_test

import (
	"archive/zip"
	"bytes"

	"github.com/spf13/afero"
)

// bundleSpec describes the contents of an in-memory jar-style bundle
// built by writeBundle for tests.
type bundleSpec struct {
	Properties   map[string]string
	ManifestAttrs map[string]string
	ClassEntries map[string][]byte
	ExtraEntries map[string][]byte
}

func writeBundle(fsys afero.Fs, path string, spec bundleSpec) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if len(spec.Properties) > 0 {
		w, err := zw.Create("plugin.properties")
		if err != nil {
			return err
		}
		for k, v := range spec.Properties {
			if _, err := w.Write([]byte(k + "=" + v + "\n")); err != nil {
				return err
			}
		}
	}

	if len(spec.ManifestAttrs) > 0 {
		w, err := zw.Create("META-INF/MANIFEST.MF")
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("Manifest-Version: 1.0\n")); err != nil {
			return err
		}
		for k, v := range spec.ManifestAttrs {
			if _, err := w.Write([]byte(k + ": " + v + "\n")); err != nil {
				return err
			}
		}
	}

	for name, data := range spec.ClassEntries {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}

	for name, data := range spec.ExtraEntries {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return err
	}

	return afero.WriteFile(fsys, path, buf.Bytes(), 0o644)
}

// harmlessClassBody is a class entry that trips no Static Analyzer rule.
var harmlessClassBody = []byte("this is a harmless compiled class body with no dangerous references")

// dangerousClassBody embeds a blocked JVM type name literally, as the
// Static Analyzer scans for.
var dangerousClassBody = []byte("...java/lang/Runtime...getRuntime()...")
