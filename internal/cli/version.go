package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/siteext-labs/siteext/internal/branding"
)

var (
	versionShort  bool
	versionJSON   bool
	versionOutput string
)

// buildInfo is what `version` reports. Fields are filled from ldflags.
type buildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:   buildVersion,
		Commit:    buildCommit,
		Date:      buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Shorthand for --output json")
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", outputTable, "Output format: table, json or yaml")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the build version, commit and date of this binary along with the Go
toolchain and platform it was built for. Use --short in scripts that only
need the version number.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := versionOutput
		if versionJSON {
			format = outputJSON
		}
		if err := checkOutput(format); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		info := currentBuild()
		switch {
		case versionShort:
			fmt.Fprintln(out, info.Version)
			return nil
		case format != outputTable:
			return printStructured(out, format, info)
		}

		fmt.Fprintf(out, "%s version %s (commit: %s, built: %s, %s %s)\n",
			branding.CLIName(), info.Version, info.Commit, info.Date, info.GoVersion, info.Platform)
		return nil
	},
}
