package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// setup isolates viper and the siteext home for one test.
func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("SITEEXT_HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestDirEnvOverride(t *testing.T) {
	home := setup(t)
	if got := Dir(); got != home {
		t.Errorf("Dir() = %q, want %q", got, home)
	}
	if got := FilePath(); got != filepath.Join(home, "config.yaml") {
		t.Errorf("FilePath() = %q", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	home := setup(t)
	if err := Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	s := Current()
	if s.FeedURL == "" {
		t.Error("FeedURL default is empty")
	}
	if s.FeedTimeout != 30*time.Second {
		t.Errorf("FeedTimeout = %v", s.FeedTimeout)
	}
	if s.FeedPageSize != 100 || s.FeedMaxResults != 1000 || s.FeedRetryAttempts != 3 {
		t.Errorf("feed paging defaults = %d/%d/%d", s.FeedPageSize, s.FeedMaxResults, s.FeedRetryAttempts)
	}
	if s.ExtensionsRoot != filepath.Join(home, "extensions") {
		t.Errorf("ExtensionsRoot = %q", s.ExtensionsRoot)
	}
	if s.StoreIndexPath != filepath.Join(home, "store-index.json") {
		t.Errorf("StoreIndexPath = %q", s.StoreIndexPath)
	}
	if s.InstallRetryAttempts != 5 || s.InstallRetryDelay != 250*time.Millisecond {
		t.Errorf("install retry = %d/%v", s.InstallRetryAttempts, s.InstallRetryDelay)
	}
	if s.CheckLatestConcurrency != 4 {
		t.Errorf("CheckLatestConcurrency = %d", s.CheckLatestConcurrency)
	}
	if s.LogLevel != "info" || s.LogFormat != "console" {
		t.Errorf("log = %s/%s", s.LogLevel, s.LogFormat)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	home := setup(t)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("feed:\n  url: https://file.example/api\n  page_size: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SITEEXT_FEED_URL", "https://env.example/api")

	if err := Load(); err != nil {
		t.Fatal(err)
	}
	s := Current()
	if s.FeedURL != "https://env.example/api" {
		t.Errorf("FeedURL = %q, want env value", s.FeedURL)
	}
	if s.FeedPageSize != 50 {
		t.Errorf("FeedPageSize = %d, want file value", s.FeedPageSize)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	home := setup(t)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("feed: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Load(); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
}

func TestSetPersistsOnlyExplicitKeys(t *testing.T) {
	home := setup(t)
	if err := Load(); err != nil {
		t.Fatal(err)
	}

	if err := Set(KeyFeedURL, "https://mirror.example/api"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := Set(KeyLogLevel, "debug"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := Get(KeyFeedURL); got != "https://mirror.example/api" {
		t.Errorf("Get() = %q", got)
	}

	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"mirror.example", "debug"} {
		if !strings.Contains(content, want) {
			t.Errorf("config file missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "page_size") {
		t.Errorf("config file pinned a default:\n%s", content)
	}

	viper.Reset()
	if err := Load(); err != nil {
		t.Fatal(err)
	}
	if got := Current().LogLevel; got != "debug" {
		t.Errorf("LogLevel after reload = %q", got)
	}
}

func TestSetUnknownKey(t *testing.T) {
	setup(t)
	if err := Set("feed.nope", "x"); err == nil {
		t.Error("Set() accepted unknown key")
	}
}

func TestAllAndKeys(t *testing.T) {
	setup(t)
	if err := Load(); err != nil {
		t.Fatal(err)
	}
	keys := Keys()
	all := All()
	if len(keys) != len(all) {
		t.Fatalf("Keys() = %d, All() = %d", len(keys), len(all))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("Keys() not sorted at %d", i)
		}
	}
	if all[KeyLogFormat] != "console" {
		t.Errorf("All()[log.format] = %q", all[KeyLogFormat])
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/exts"); got != filepath.Join(home, "exts") {
		t.Errorf("expandHome(~/exts) = %q", got)
	}
	if got := expandHome("/abs/exts"); got != "/abs/exts" {
		t.Errorf("expandHome(/abs/exts) = %q", got)
	}
}
