package extension

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteext-labs/siteext/internal/feed"
	"github.com/siteext-labs/siteext/internal/feed/feedtest"
	"github.com/siteext-labs/siteext/internal/installer"
	"github.com/siteext-labs/siteext/internal/manifest"
	"github.com/siteext-labs/siteext/internal/manifest/manifesttest"
	"github.com/siteext-labs/siteext/internal/store"
)

// fakeCatalog serves fixed latest versions and counts calls.
type fakeCatalog struct {
	mu       sync.Mutex
	latest   map[string]string // id -> latest stable version
	failFor  map[string]bool
	err      error
	calls    map[string]int
	packages []*feed.Package
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		latest:  map[string]string{},
		failFor: map[string]bool{},
		calls:   map[string]int{},
	}
}

func (c *fakeCatalog) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
}

func (c *fakeCatalog) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *fakeCatalog) ListLatest(ctx context.Context) ([]*feed.Package, error) {
	c.record("list")
	return c.packages, c.err
}

func (c *fakeCatalog) Search(ctx context.Context, filter string, allowPrerelease bool) ([]*feed.Package, error) {
	c.record("search")
	return c.packages, c.err
}

func (c *fakeCatalog) Find(ctx context.Context, id, version string) (*feed.Package, error) {
	c.record("find")
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.latest[id]
	if !ok {
		return nil, nil
	}
	return &feed.Package{ID: id, Version: v, IsLatestVersion: true}, nil
}

func (c *fakeCatalog) LatestVersion(ctx context.Context, id string) (string, error) {
	c.record("latest")
	if c.err != nil || c.failFor[id] {
		return "", feed.ErrCatalogUnavailable
	}
	return c.latest[id], nil
}

// fakeInstaller records calls and returns a fixed result.
type fakeInstaller struct {
	result    installer.Result
	installs  []string
	uninstall []string
}

func (f *fakeInstaller) Install(ctx context.Context, pkg installer.Package, targetDir string) installer.Result {
	f.installs = append(f.installs, targetDir)
	return f.result
}

func (f *fakeInstaller) Uninstall(targetDir string) bool {
	f.uninstall = append(f.uninstall, targetDir)
	return true
}

func installLocal(t *testing.T, root, id, version string) {
	t.Helper()
	manifesttest.WriteFile(t, filepath.Join(root, id), manifest.FileName(id, version), manifesttest.Spec{
		ID:      id,
		Version: version,
		Title:   id,
	})
}

func TestEmptyIDIsNoOp(t *testing.T) {
	root := t.TempDir()
	cat := newFakeCatalog()
	inst := &fakeInstaller{}
	m := NewManager(cat, store.New(root), inst)
	ctx := context.Background()

	if info, err := m.GetRemoteExtension(ctx, "", ""); info != nil || err != nil {
		t.Errorf("GetRemoteExtension(\"\") = %v, %v", info, err)
	}
	if info, err := m.GetLocalExtension(ctx, "", true); info != nil || err != nil {
		t.Errorf("GetLocalExtension(\"\") = %v, %v", info, err)
	}
	if info, err := m.InstallExtension(ctx, ""); info != nil || err != nil {
		t.Errorf("InstallExtension(\"\") = %v, %v", info, err)
	}
	if ok, err := m.UninstallExtension(""); !ok || err != nil {
		t.Errorf("UninstallExtension(\"\") = %v, %v", ok, err)
	}

	if n := cat.total(); n != 0 {
		t.Errorf("catalog called %d times", n)
	}
	if len(inst.installs)+len(inst.uninstall) != 0 {
		t.Errorf("installer called: %v %v", inst.installs, inst.uninstall)
	}
	entries, err := os.ReadDir(root)
	if err != nil || len(entries) != 0 {
		t.Errorf("root touched: %v, %v", entries, err)
	}
}

func TestInvalidIDRejected(t *testing.T) {
	root := filepath.Join(t.TempDir(), "extensions")
	cat := newFakeCatalog()
	inst := &fakeInstaller{}
	m := NewManager(cat, store.New(root), inst)
	ctx := context.Background()

	for _, id := range []string{"..", "../outside", "a/b", "a\\b", "/etc", "trailing.", ".hidden"} {
		t.Run(id, func(t *testing.T) {
			if _, err := m.InstallationDirectory(id); !errors.Is(err, ErrInvalidID) {
				t.Errorf("InstallationDirectory error = %v", err)
			}
			if _, err := m.GetRemoteExtension(ctx, id, ""); !errors.Is(err, ErrInvalidID) {
				t.Errorf("GetRemoteExtension error = %v", err)
			}
			if _, err := m.GetLocalExtension(ctx, id, true); !errors.Is(err, ErrInvalidID) {
				t.Errorf("GetLocalExtension error = %v", err)
			}
			if _, err := m.InstallExtension(ctx, id); !errors.Is(err, ErrInvalidID) {
				t.Errorf("InstallExtension error = %v", err)
			}
			if ok, err := m.UninstallExtension(id); ok || !errors.Is(err, ErrInvalidID) {
				t.Errorf("UninstallExtension = %v, %v", ok, err)
			}
		})
	}

	if n := cat.total(); n != 0 {
		t.Errorf("catalog called %d times", n)
	}
	if len(inst.installs)+len(inst.uninstall) != 0 {
		t.Errorf("installer called: %v %v", inst.installs, inst.uninstall)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("extensions root was created: %v", err)
	}
}

func TestInstallationDirectory(t *testing.T) {
	root := t.TempDir()
	m := NewManager(newFakeCatalog(), store.New(root), &fakeInstaller{})

	got, err := m.InstallationDirectory("Demo.Ext")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "Demo.Ext"); got != want {
		t.Errorf("InstallationDirectory() = %q, want %q", got, want)
	}
}

func TestLatestVersionReconciliation(t *testing.T) {
	tests := []struct {
		name        string
		local       string
		remote      string
		checkLatest bool
		want        bool
		wantCalls   int
	}{
		{"older local", "1.0.0", "1.2.0", true, false, 1},
		{"equal", "1.2.0", "1.2.0", true, true, 1},
		{"local ahead of feed", "2.0.0", "1.2.0", true, true, 1},
		{"withdrawn from feed", "1.0.0", "", true, false, 1},
		{"no check", "1.2.0", "1.2.0", false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			installLocal(t, root, "demo", tt.local)
			cat := newFakeCatalog()
			if tt.remote != "" {
				cat.latest["demo"] = tt.remote
			}
			m := NewManager(cat, store.New(root), &fakeInstaller{})

			info, err := m.GetLocalExtension(context.Background(), "demo", tt.checkLatest)
			if err != nil {
				t.Fatalf("GetLocalExtension() error: %v", err)
			}
			if info == nil {
				t.Fatal("GetLocalExtension() = nil")
			}
			if info.IsLatestVersion != tt.want {
				t.Errorf("IsLatestVersion = %v, want %v", info.IsLatestVersion, tt.want)
			}
			if n := cat.total(); n != tt.wantCalls {
				t.Errorf("catalog calls = %d, want %d", n, tt.wantCalls)
			}
			if info.LocalPath != filepath.Join(root, "demo") || info.InstalledAt == nil {
				t.Errorf("local fields = %q, %v", info.LocalPath, info.InstalledAt)
			}
		})
	}
}

func TestGetLocalExtensionsDegradesOnFeedFailure(t *testing.T) {
	root := t.TempDir()
	installLocal(t, root, "alpha", "1.0.0")
	installLocal(t, root, "beta", "2.0.0")
	installLocal(t, root, "gamma", "3.0.0")

	cat := newFakeCatalog()
	cat.latest["alpha"] = "1.0.0"
	cat.latest["beta"] = "2.0.0"
	cat.failFor["beta"] = true
	cat.latest["gamma"] = "3.1.0"

	m := NewManager(cat, store.New(root), &fakeInstaller{}, WithConcurrency(2))
	infos, err := m.GetLocalExtensions(context.Background(), "", true)
	if err != nil {
		t.Fatalf("GetLocalExtensions() error: %v", err)
	}
	got := map[string]bool{}
	for _, info := range infos {
		got[info.ID] = info.IsLatestVersion
	}
	want := map[string]bool{"alpha": true, "beta": false, "gamma": false}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("%s: IsLatestVersion = %v, want %v", id, got[id], w)
		}
	}
	if len(infos) != 3 {
		t.Errorf("GetLocalExtensions() = %d entries, want 3", len(infos))
	}

	cat.err = errors.New("network down")
	infos, err = m.GetLocalExtensions(context.Background(), "", true)
	if err != nil {
		t.Fatalf("GetLocalExtensions() with feed down: %v", err)
	}
	for _, info := range infos {
		if info.IsLatestVersion {
			t.Errorf("%s: IsLatestVersion = true with feed down", info.ID)
		}
	}
}

func TestGetRemoteExtensions(t *testing.T) {
	root := t.TempDir()
	installLocal(t, root, "alpha", "1.0.0")

	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cat := newFakeCatalog()
	cat.packages = []*feed.Package{
		{ID: "alpha", Version: "1.1.0", DownloadCount: 7, IsLatestVersion: true, Published: published},
		{ID: "beta", Version: "1.0.0", IsLatestVersion: true},
	}
	m := NewManager(cat, store.New(root), &fakeInstaller{})
	ctx := context.Background()

	infos, err := m.GetRemoteExtensions(ctx, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if cat.calls["list"] != 1 || cat.calls["search"] != 0 {
		t.Errorf("empty filter calls = %v, want one ListLatest", cat.calls)
	}
	if len(infos) != 2 {
		t.Fatalf("GetRemoteExtensions() = %d entries", len(infos))
	}
	alpha := infos[0]
	if !alpha.IsInstalled() || alpha.LocalPath != filepath.Join(root, "alpha") || alpha.InstalledAt == nil {
		t.Errorf("alpha local fields = %q, %v", alpha.LocalPath, alpha.InstalledAt)
	}
	if alpha.PublishedAt == nil || !alpha.PublishedAt.Equal(published) {
		t.Errorf("alpha PublishedAt = %v", alpha.PublishedAt)
	}
	if infos[1].IsInstalled() || infos[1].InstalledAt != nil {
		t.Errorf("beta should not be installed: %+v", infos[1])
	}
	if infos[1].PublishedAt != nil {
		t.Errorf("beta PublishedAt = %v, want nil", infos[1].PublishedAt)
	}

	if _, err := m.GetRemoteExtensions(ctx, "alp", false); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetRemoteExtensions(ctx, "", true); err != nil {
		t.Fatal(err)
	}
	if cat.calls["search"] != 2 {
		t.Errorf("search calls = %d, want 2", cat.calls["search"])
	}

	cat.err = feed.ErrCatalogUnavailable
	if _, err := m.GetRemoteExtensions(ctx, "", false); !errors.Is(err, feed.ErrCatalogUnavailable) {
		t.Errorf("GetRemoteExtensions() with feed down error = %v", err)
	}
}

func TestInstallExtensionFailure(t *testing.T) {
	root := t.TempDir()
	cat := newFakeCatalog()
	cat.latest["demo"] = "1.0.0"
	inst := &fakeInstaller{result: installer.Result{Err: errors.New("disk full")}}
	m := NewManager(cat, store.New(root), inst)

	info, err := m.InstallExtension(context.Background(), "demo")
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("InstallExtension() error = %v, want ErrInstallFailed", err)
	}
	if info != nil {
		t.Errorf("InstallExtension() = %+v, want nil", info)
	}
	if len(inst.installs) != 1 || inst.installs[0] != filepath.Join(root, "demo") {
		t.Errorf("installs = %v", inst.installs)
	}
}

func TestInstallExtensionIncompleteRollback(t *testing.T) {
	cat := newFakeCatalog()
	cat.latest["demo"] = "1.0.0"
	inst := &fakeInstaller{result: installer.Result{
		Err:        errors.New("disk full"),
		CleanupErr: errors.New("directory in use"),
	}}
	var logs bytes.Buffer
	m := NewManager(cat, store.New(t.TempDir()), inst, WithLogger(zerolog.New(&logs)))

	info, err := m.InstallExtension(context.Background(), "demo")
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("InstallExtension() error = %v, want ErrInstallFailed", err)
	}
	if info != nil {
		t.Errorf("InstallExtension() = %+v, want nil", info)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error %q does not carry the install cause", err)
	}
	for _, want := range []string{"installation directory could not be removed", "directory in use"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q:\n%s", want, logs.String())
		}
	}
}

func TestInstallExtensionCatalogFailure(t *testing.T) {
	cat := newFakeCatalog()
	cat.err = feed.ErrCatalogUnavailable
	inst := &fakeInstaller{}
	m := NewManager(cat, store.New(t.TempDir()), inst)

	if _, err := m.InstallExtension(context.Background(), "demo"); !errors.Is(err, feed.ErrCatalogUnavailable) {
		t.Fatalf("InstallExtension() error = %v, want ErrCatalogUnavailable", err)
	}
	if len(inst.installs) != 0 {
		t.Errorf("installer called despite catalog failure")
	}
}

func TestInstallExtensionNotOnFeed(t *testing.T) {
	inst := &fakeInstaller{}
	m := NewManager(newFakeCatalog(), store.New(t.TempDir()), inst)

	info, err := m.InstallExtension(context.Background(), "missing")
	if info != nil || err != nil {
		t.Errorf("InstallExtension(missing) = %v, %v", info, err)
	}
	if len(inst.installs) != 0 {
		t.Errorf("installer called for missing package")
	}
}

func TestInstallLifecycle(t *testing.T) {
	root := t.TempDir()
	srv := feedtest.New(t, feedtest.Published{Spec: manifesttest.Spec{
		ID:      "Demo.Ext",
		Version: "1.0.0",
		Title:   "Demo",
		Files:   map[string]string{"content/index.html": "v1"},
	}})
	client := feed.New(srv.URL, feed.WithHTTPClient(srv.Client()), feed.WithRetry(0, time.Millisecond))
	m := NewManager(client, store.New(root), installer.New(installer.WithRetry(1, 0)))
	ctx := context.Background()

	info, err := m.InstallExtension(ctx, "demo.ext")
	if err != nil {
		t.Fatalf("InstallExtension() error: %v", err)
	}
	if info == nil || info.Version != "1.0.0" || info.LocalPath != filepath.Join(root, "demo.ext") || info.InstalledAt == nil {
		t.Fatalf("InstallExtension() = %+v", info)
	}

	local, err := m.GetLocalExtension(ctx, "DEMO.EXT", true)
	if err != nil || local == nil {
		t.Fatalf("GetLocalExtension() = %v, %v", local, err)
	}
	if !local.IsLatestVersion {
		t.Error("fresh install is not latest")
	}

	srv.Add(feedtest.Published{Spec: manifesttest.Spec{
		ID:      "Demo.Ext",
		Version: "1.1.0",
		Files:   map[string]string{"content/index.html": "v2"},
	}})
	local, err = m.GetLocalExtension(ctx, "demo.ext", true)
	if err != nil || local == nil {
		t.Fatalf("GetLocalExtension() = %v, %v", local, err)
	}
	if local.IsLatestVersion {
		t.Error("IsLatestVersion = true after a newer version was published")
	}

	remote, err := m.GetRemoteExtension(ctx, "demo.ext", "")
	if err != nil || remote == nil {
		t.Fatalf("GetRemoteExtension() = %v, %v", remote, err)
	}
	if remote.Version != "1.1.0" || !remote.IsInstalled() {
		t.Errorf("GetRemoteExtension() = %s installed=%v", remote.Version, remote.IsInstalled())
	}

	info, err = m.InstallExtension(ctx, "Demo.Ext")
	if err != nil {
		t.Fatalf("upgrade error: %v", err)
	}
	if info.LocalPath != filepath.Join(root, "demo.ext") {
		t.Errorf("upgrade went to %q, want existing directory", info.LocalPath)
	}
	data, err := os.ReadFile(filepath.Join(root, "demo.ext", "index.html"))
	if err != nil || string(data) != "v2" {
		t.Errorf("index.html after upgrade = %q, %v", data, err)
	}

	for i := 0; i < 2; i++ {
		ok, err := m.UninstallExtension("demo.ext")
		if err != nil || !ok {
			t.Fatalf("UninstallExtension() #%d = %v, %v", i+1, ok, err)
		}
	}
	if local, _ := m.GetLocalExtension(ctx, "demo.ext", false); local != nil {
		t.Errorf("GetLocalExtension() after uninstall = %+v", local)
	}
}

func TestInstallExtensionFeedDown(t *testing.T) {
	root := t.TempDir()
	srv := feedtest.New(t)
	srv.FailWith(http.StatusServiceUnavailable)
	client := feed.New(srv.URL, feed.WithHTTPClient(srv.Client()), feed.WithRetry(0, time.Millisecond))
	m := NewManager(client, store.New(root), installer.New())

	if _, err := m.InstallExtension(context.Background(), "demo"); !errors.Is(err, feed.ErrCatalogUnavailable) {
		t.Fatalf("InstallExtension() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "demo")); !os.IsNotExist(err) {
		t.Errorf("installation directory exists after failed resolve")
	}
}
