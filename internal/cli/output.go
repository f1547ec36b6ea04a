package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/siteext-labs/siteext/internal/extension"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func checkOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// printStructured writes v as JSON or YAML.
func printStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

func printRemoteTable(w io.Writer, infos []*extension.Info) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tDOWNLOADS\tINSTALLED\tTITLE")
	for _, info := range infos {
		installed := "-"
		if info.IsInstalled() {
			installed = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", info.ID, info.Version, info.DownloadCount, installed, truncate(title(info), 50))
	}
	return tw.Flush()
}

func printLocalTable(w io.Writer, infos []*extension.Info, checked bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tLATEST\tINSTALLED\tPATH")
	for _, info := range infos {
		latest := "-"
		if checked {
			latest = "no"
			if info.IsLatestVersion {
				latest = "yes"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.ID, info.Version, latest, formatTime(info.InstalledAt), info.LocalPath)
	}
	return tw.Flush()
}

func printDetail(w io.Writer, info *extension.Info) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("ID", info.ID)
	row("Title", info.Title)
	row("Version", info.Version)
	row("Latest", fmt.Sprintf("%t", info.IsLatestVersion))
	row("Authors", info.Authors)
	row("Description", info.Description)
	row("Project", info.ProjectURL)
	row("License", info.LicenseURL)
	if info.DownloadCount > 0 {
		row("Downloads", fmt.Sprintf("%d", info.DownloadCount))
	}
	if info.PublishedAt != nil {
		row("Published", formatTime(info.PublishedAt))
	}
	row("Path", info.LocalPath)
	if info.InstalledAt != nil {
		row("Installed", formatTime(info.InstalledAt))
	}
	return tw.Flush()
}

func title(info *extension.Info) string {
	if info.Title != "" {
		return info.Title
	}
	return info.Description
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
