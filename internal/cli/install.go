package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siteext-labs/siteext/internal/extension"
)

var installTimeout time.Duration

var installCmd = &cobra.Command{
	Use:   "install <id>",
	Short: "Install or update an extension",
	Long: `Install the latest stable version of an extension from the feed, replacing any
installed version. A failed install leaves no directory behind.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().DurationVar(&installTimeout, "timeout", 0, "Abort the install after this long (0 = no limit)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := extension.ValidateID(id); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if installTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, installTimeout)
		defer cancel()
	}

	var info *extension.Info
	err = withExtensionLock(ctx, a.settings.ExtensionsRoot, id, func() error {
		var err error
		info, err = a.manager.InstallExtension(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("extension %q not found on %s", id, a.settings.FeedURL)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\u2713 Installed %s %s to %s\n", info.ID, info.Version, info.LocalPath)
	return nil
}
