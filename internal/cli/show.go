package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siteext-labs/siteext/internal/extension"
)

var (
	showVersion     string
	showLocal       bool
	showCheckLatest bool
	showOutput      string
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one extension",
	Long: `Show an extension from the feed, or with --local the installed copy.
--check-latest compares an installed extension against the feed.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showVersion, "version", "", "Feed version to show (default: latest stable)")
	showCmd.Flags().BoolVar(&showLocal, "local", false, "Show the installed extension")
	showCmd.Flags().BoolVar(&showCheckLatest, "check-latest", true, "With --local, check the feed for a newer version")
	showCmd.Flags().StringVarP(&showOutput, "output", "o", outputTable, "Output format: table, json, yaml")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := checkOutput(showOutput); err != nil {
		return err
	}
	id := args[0]

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var info *extension.Info
	if showLocal {
		info, err = a.manager.GetLocalExtension(commandContext(cmd), id, showCheckLatest)
	} else {
		info, err = a.manager.GetRemoteExtension(commandContext(cmd), id, showVersion)
	}
	if err != nil {
		return err
	}
	if info == nil {
		if showLocal {
			return fmt.Errorf("extension %q is not installed", id)
		}
		return fmt.Errorf("extension %q not found on %s", id, a.settings.FeedURL)
	}

	if showOutput != outputTable {
		return printStructured(cmd.OutOrStdout(), showOutput, info)
	}
	return printDetail(cmd.OutOrStdout(), info)
}
