package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteext-labs/siteext/internal/branding"
	"github.com/siteext-labs/siteext/internal/config"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// Global flags. Empty values fall back to config.
var (
	flagFeed      string
	flagRoot      string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers, installs, and removes site extensions published on a
package feed. Installed extensions live under the extensions root, one
directory per extension, each with an applicationHost.xdt transform.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Load()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagFeed, "feed", "", "Feed URL (overrides "+config.KeyFeedURL+")")
	pf.StringVar(&flagRoot, "root", "", "Extensions root directory (overrides "+config.KeyExtensionsRoot+")")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: console or json")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// settings returns the loaded config with global flag overrides applied.
func settings() config.Settings {
	s := config.Current()
	if flagFeed != "" {
		s.FeedURL = flagFeed
	}
	if flagRoot != "" {
		s.ExtensionsRoot = flagRoot
	}
	if flagLogLevel != "" {
		s.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		s.LogFormat = flagLogFormat
	}
	return s
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
