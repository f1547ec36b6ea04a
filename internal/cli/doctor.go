package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siteext-labs/siteext/internal/config"
	"github.com/siteext-labs/siteext/internal/ident"
	"github.com/siteext-labs/siteext/internal/manifest"
	"github.com/siteext-labs/siteext/internal/xdt"
)

var (
	doctorFix     bool
	doctorArchive string
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Create missing directories and regenerate missing transforms")
	doctorCmd.Flags().StringVar(&doctorArchive, "check-archive", "", "Validate a package archive at the given path")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local installation and feed connectivity",
	Long: `Run diagnostic checks on the home directory, the extensions root, every
installed extension, and the configured feed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		d := &doctor{w: cmd.OutOrStdout(), fix: doctorFix}

		if doctorArchive != "" {
			d.checkArchive(doctorArchive)
			return d.result()
		}

		d.checkHome()
		d.checkRoot(a.store.Root())
		d.checkExtensions(a)
		d.checkFeed(cmd, a)
		return d.result()
	},
}

// doctor prints check results and counts failures.
type doctor struct {
	w        io.Writer
	fix      bool
	failures int
}

func (d *doctor) ok(format string, args ...any) {
	fmt.Fprintf(d.w, "  [ OK ] "+format+"\n", args...)
}

func (d *doctor) warn(format string, args ...any) {
	fmt.Fprintf(d.w, "  [WARN] "+format+"\n", args...)
}

func (d *doctor) fail(format string, args ...any) {
	d.failures++
	fmt.Fprintf(d.w, "  [FAIL] "+format+"\n", args...)
}

func (d *doctor) fixed(format string, args ...any) {
	fmt.Fprintf(d.w, "  [FIX ] "+format+"\n", args...)
}

func (d *doctor) result() error {
	if d.failures > 0 {
		return fmt.Errorf("doctor found %d problem(s)", d.failures)
	}
	return nil
}

func (d *doctor) checkHome() {
	fmt.Fprintln(d.w, "Home check:")
	home := config.Dir()
	if _, err := os.Stat(home); errors.Is(err, os.ErrNotExist) {
		if !d.fix {
			d.warn("%s does not exist (run with --fix to create)", home)
			return
		}
		if err := config.EnsureDir(); err != nil {
			d.fail("could not create %s: %v", home, err)
			return
		}
		d.fixed("created %s", home)
		return
	}
	d.ok("%s exists", home)

	if _, err := os.Stat(config.FilePath()); err == nil {
		d.ok("%s loaded", config.FilePath())
	} else {
		fmt.Fprintf(d.w, "  [INFO] no config file, using defaults\n")
	}
}

func (d *doctor) checkRoot(root string) {
	fmt.Fprintln(d.w, "Extensions root check:")
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !d.fix {
			d.warn("%s does not exist (created on first install)", root)
			return
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			d.fail("could not create %s: %v", root, err)
			return
		}
		d.fixed("created %s", root)
	case err != nil:
		d.fail("%s: %v", root, err)
		return
	case !info.IsDir():
		d.fail("%s exists but is not a directory", root)
		return
	default:
		d.ok("%s exists", root)
	}

	probe, err := os.CreateTemp(root, ".doctor-*")
	if err != nil {
		d.fail("%s is not writable: %v", root, err)
		return
	}
	probe.Close()
	os.Remove(probe.Name())
	d.ok("%s is writable", root)
}

func (d *doctor) checkExtensions(a *app) {
	fmt.Fprintln(d.w, "Installed extensions check:")
	entries, err := a.store.List("")
	if err != nil {
		d.fail("listing %s: %v", a.store.Root(), err)
		return
	}

	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[filepath.Base(e.Dir)] = true
		transform := filepath.Join(e.Dir, xdt.FileName)
		if _, err := os.Stat(transform); err == nil {
			d.ok("%s %s", e.ID, e.Version)
			continue
		}
		if !d.fix {
			d.fail("%s: %s is missing", e.ID, xdt.FileName)
			continue
		}
		if err := os.WriteFile(transform, xdt.Generate(e.ID), 0o644); err != nil {
			d.fail("%s: writing %s: %v", e.ID, xdt.FileName, err)
			continue
		}
		d.fixed("%s: regenerated %s", e.ID, xdt.FileName)
	}

	dirs, err := os.ReadDir(a.store.Root())
	if err != nil {
		if len(entries) == 0 {
			fmt.Fprintf(d.w, "  [INFO] no extensions installed\n")
		}
		return
	}
	for _, de := range dirs {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") || known[de.Name()] {
			continue
		}
		d.warn("%s has no readable package manifest and is ignored", de.Name())
	}
	if len(entries) == 0 {
		fmt.Fprintf(d.w, "  [INFO] no extensions installed\n")
	}
}

func (d *doctor) checkFeed(cmd *cobra.Command, a *app) {
	fmt.Fprintln(d.w, "Feed check:")
	n, err := a.feed.Ping(commandContext(cmd))
	if err != nil {
		d.fail("%s: %v", a.feed.BaseURL(), err)
		return
	}
	d.ok("%s reachable (%d packages)", a.feed.BaseURL(), n)
}

func (d *doctor) checkArchive(path string) {
	fmt.Fprintf(d.w, "Archive validation: %s\n", path)
	md, err := manifest.Read(path)
	if err != nil {
		d.fail("%v", err)
		return
	}
	if err := ident.Validate(md.ID); err != nil {
		d.fail("%v", err)
		return
	}
	d.ok("%s %s", md.ID, md.Version)

	want := manifest.FileName(md.ID, md.Version)
	if !strings.EqualFold(filepath.Base(path), want) {
		d.warn("file name %s does not match %s", filepath.Base(path), want)
	}
}
