// Package manifesttest builds package archives for tests.
package manifesttest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// Spec describes a package to build.
type Spec struct {
	ID          string
	Version     string
	Title       string
	Description string
	Authors     string
	// Files maps archive entry paths (e.g. "content/index.html") to contents.
	Files map[string]string
}

// Nuspec renders the .nuspec XML for s.
func Nuspec(s Spec) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata>
    <id>%s</id>
    <version>%s</version>
    <title>%s</title>
    <authors>%s</authors>
    <description>%s</description>
    <projectUrl>https://example.com/%s</projectUrl>
    <tags>siteextension test</tags>
  </metadata>
</package>
`, s.ID, s.Version, s.Title, s.Authors, s.Description, s.ID)
}

// Build returns .nupkg bytes for s. Entries are written in sorted order so
// archives are deterministic.
func Build(t testing.TB, s Spec) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}

	write(s.ID+".nuspec", Nuspec(s))

	names := make([]string, 0, len(s.Files))
	for name := range s.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, s.Files[name])
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFile builds the archive for s and writes it to dir/name.
func WriteFile(t testing.TB, dir, name string, s Spec) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, Build(t, s), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
