package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listCheckLatest bool
	listOutput      string
)

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List installed extensions",
	Long: `List extensions installed under the extensions root. The filter matches id,
title, or description (case-insensitive). By default each extension is checked
against the feed; a feed that cannot be reached marks them as not latest.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listCheckLatest, "check-latest", true, "Check the feed for newer versions")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", outputTable, "Output format: table, json, yaml")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := checkOutput(listOutput); err != nil {
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
	infos, err := a.manager.GetLocalExtensions(commandContext(cmd), filter, listCheckLatest)
	if err != nil {
		return err
	}

	if listOutput != outputTable {
		return printStructured(cmd.OutOrStdout(), listOutput, infos)
	}
	if len(infos) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No extensions installed in %s\n", a.settings.ExtensionsRoot)
		return nil
	}
	return printLocalTable(cmd.OutOrStdout(), infos, listCheckLatest)
}
