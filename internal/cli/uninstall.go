package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siteext-labs/siteext/internal/extension"
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <id>",
	Aliases: []string{"remove"},
	Short:   "Remove an installed extension",
	Args:    cobra.ExactArgs(1),
	RunE:    runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := extension.ValidateID(id); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var removed bool
	err = withExtensionLock(commandContext(cmd), a.settings.ExtensionsRoot, id, func() error {
		var err error
		removed, err = a.manager.UninstallExtension(id)
		return err
	})
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("could not remove %s, see the log for details", id)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\u2713 Removed %s\n", id)
	return nil
}
