package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/siteext-labs/siteext/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeyFeedURL                = "feed.url"
	KeyFeedAPIKey             = "feed.api_key"
	KeyFeedTimeout            = "feed.timeout"
	KeyFeedPageSize           = "feed.page_size"
	KeyFeedMaxResults         = "feed.max_results"
	KeyFeedRetryAttempts      = "feed.retry_attempts"
	KeyExtensionsRoot         = "extensions.root"
	KeyStoreIndexPath         = "store.index_path"
	KeyInstallRetryAttempts   = "install.retry_attempts"
	KeyInstallRetryDelay      = "install.retry_delay"
	KeyCheckLatestConcurrency = "check_latest_concurrency"
	KeyLogLevel               = "log.level"
	KeyLogFormat              = "log.format"
)

// Settings is a typed snapshot of the configuration.
type Settings struct {
	FeedURL                string
	FeedAPIKey             string
	FeedTimeout            time.Duration
	FeedPageSize           int
	FeedMaxResults         int
	FeedRetryAttempts      int
	ExtensionsRoot         string
	StoreIndexPath         string
	InstallRetryAttempts   int
	InstallRetryDelay      time.Duration
	CheckLatestConcurrency int
	LogLevel               string
	LogFormat              string
}

// Dir returns the siteext home directory: $SITEEXT_HOME, else ~/.siteext.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.siteext/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func defaults() map[string]any {
	dir := Dir()
	return map[string]any{
		KeyFeedURL:                branding.FeedURL(),
		KeyFeedAPIKey:             "",
		KeyFeedTimeout:            30 * time.Second,
		KeyFeedPageSize:           100,
		KeyFeedMaxResults:         1000,
		KeyFeedRetryAttempts:      3,
		KeyExtensionsRoot:         filepath.Join(dir, "extensions"),
		KeyStoreIndexPath:         filepath.Join(dir, "store-index.json"),
		KeyInstallRetryAttempts:   5,
		KeyInstallRetryDelay:      250 * time.Millisecond,
		KeyCheckLatestConcurrency: 4,
		KeyLogLevel:               "info",
		KeyLogFormat:              "console",
	}
}

// Keys returns every known config key, sorted.
func Keys() []string {
	d := defaults()
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a recognized setting.
func IsKnownKey(key string) bool {
	_, ok := defaults()[key]
	return ok
}

// Load initializes Viper to read from the config file and environment.
// A missing config file is not an error.
func Load() error {
	for k, v := range defaults() {
		viper.SetDefault(k, v)
	}
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// All returns every known key with its effective value.
func All() map[string]string {
	out := make(map[string]string)
	for _, k := range Keys() {
		out[k] = viper.GetString(k)
	}
	return out
}

// Set writes a config key-value pair and saves the config file. Only keys
// already in the file plus key are written, so defaults stay unpinned.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q (see '%s config list')", key, branding.CLIName())
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	configFile := FilePath()
	file := viper.New()
	file.SetConfigFile(configFile)
	file.SetConfigType(fileType)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading config file %s: %w", configFile, err)
	}
	file.Set(key, value)

	if err := file.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	viper.Set(key, value)
	return nil
}

// Current returns the effective settings.
func Current() Settings {
	return Settings{
		FeedURL:                viper.GetString(KeyFeedURL),
		FeedAPIKey:             viper.GetString(KeyFeedAPIKey),
		FeedTimeout:            viper.GetDuration(KeyFeedTimeout),
		FeedPageSize:           viper.GetInt(KeyFeedPageSize),
		FeedMaxResults:         viper.GetInt(KeyFeedMaxResults),
		FeedRetryAttempts:      viper.GetInt(KeyFeedRetryAttempts),
		ExtensionsRoot:         expandHome(viper.GetString(KeyExtensionsRoot)),
		StoreIndexPath:         expandHome(viper.GetString(KeyStoreIndexPath)),
		InstallRetryAttempts:   viper.GetInt(KeyInstallRetryAttempts),
		InstallRetryDelay:      viper.GetDuration(KeyInstallRetryDelay),
		CheckLatestConcurrency: viper.GetInt(KeyCheckLatestConcurrency),
		LogLevel:               viper.GetString(KeyLogLevel),
		LogFormat:              viper.GetString(KeyLogFormat),
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
