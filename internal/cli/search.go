package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchPrerelease bool
	searchOutput     string
)

var searchCmd = &cobra.Command{
	Use:   "search [filter]",
	Short: "Search the feed for extensions",
	Long: `Search the package feed. Without a filter, list the latest stable version of
every published extension, most downloaded first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchPrerelease, "prerelease", false, "Include prerelease versions")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", outputTable, "Output format: table, json, yaml")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := checkOutput(searchOutput); err != nil {
		return err
	}
	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	infos, err := a.manager.GetRemoteExtensions(commandContext(cmd), filter, searchPrerelease)
	if err != nil {
		return err
	}

	if searchOutput != outputTable {
		return printStructured(cmd.OutOrStdout(), searchOutput, infos)
	}
	if len(infos) == 0 {
		msg := "No extensions found"
		if filter != "" {
			msg += fmt.Sprintf(" matching %q", filter)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}
	return printRemoteTable(cmd.OutOrStdout(), infos)
}
