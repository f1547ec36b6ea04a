//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siteext-labs/siteext/internal/extension"
	"github.com/siteext-labs/siteext/internal/feed"
	"github.com/siteext-labs/siteext/internal/feed/feedtest"
	"github.com/siteext-labs/siteext/internal/installer"
	"github.com/siteext-labs/siteext/internal/manifest/manifesttest"
	"github.com/siteext-labs/siteext/internal/store"
)

// testEnv holds an isolated siteext home and a fake feed.
type testEnv struct {
	HomeDir string // SITEEXT_HOME
	Root    string // extensions root
	Index   string // store index file
	Feed    *feedtest.Server
}

// setupTestEnv creates isolated temp directories and sets environment variables
// so all siteext operations are sandboxed. The env vars are restored after the test.
func setupTestEnv(t *testing.T, pkgs ...feedtest.Published) *testEnv {
	t.Helper()

	home := t.TempDir()
	env := &testEnv{
		HomeDir: home,
		Root:    filepath.Join(home, "extensions"),
		Index:   filepath.Join(home, "store-index.json"),
		Feed:    feedtest.New(t, pkgs...),
	}
	t.Setenv("SITEEXT_HOME", home)
	return env
}

// manager wires the real components against the test feed.
func (e *testEnv) manager() *extension.Manager {
	client := feed.New(e.Feed.URL,
		feed.WithHTTPClient(e.Feed.Client()),
		feed.WithRetry(1, time.Millisecond),
	)
	st := store.New(e.Root, store.WithIndexPath(e.Index))
	in := installer.New(installer.WithRetry(2, time.Millisecond))
	return extension.NewManager(client, st, in, extension.WithConcurrency(2))
}

// published builds a feed package with the given content files.
func published(id, version string, files map[string]string) feedtest.Published {
	return feedtest.Published{
		Spec: manifesttest.Spec{
			ID:          id,
			Version:     version,
			Title:       id + " extension",
			Description: "Integration test package " + id,
			Authors:     "siteext tests",
			Files:       files,
		},
		Downloads: 1,
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertDirExists fails the test if the directory does not exist.
func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory to exist: %s (error: %v)", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory, but it is a file", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
