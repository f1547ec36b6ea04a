package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siteext-labs/siteext/internal/manifest"
	"github.com/siteext-labs/siteext/internal/xdt"
)

const (
	defaultRetryAttempts = 5
	defaultRetryDelay    = 250 * time.Millisecond
)

// Package is an extension package ready to install.
type Package interface {
	PackageID() string
	PackageVersion() string
	// Files lists every archive entry. Only entries under content/ are installed.
	Files() []manifest.File
	// OpenArchive returns the raw archive, persisted as <id>.<version>.nupkg.
	OpenArchive() (io.ReadCloser, error)
}

// Result is the outcome of an install. When Err is set the target was
// rolled back; CleanupErr records a rollback that did not complete.
type Result struct {
	Err        error
	CleanupErr error
}

// OK reports whether the install succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Installer installs and removes extension directories.
type Installer struct {
	logger        zerolog.Logger
	retryAttempts int
	retryDelay    time.Duration

	// writeFile and removeDir are replaced in tests to inject failures.
	writeFile func(path string, r io.Reader) error
	removeDir func(dir string) error
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the installer logger.
func WithLogger(l zerolog.Logger) Option {
	return func(in *Installer) { in.logger = l }
}

// WithRetry sets how often a failed file write or delete is retried and
// the constant delay between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(in *Installer) {
		if attempts >= 0 {
			in.retryAttempts = attempts
		}
		if delay >= 0 {
			in.retryDelay = delay
		}
	}
}

// New creates an Installer.
func New(opts ...Option) *Installer {
	in := &Installer{
		logger:        zerolog.Nop(),
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
		writeFile:     writeFile,
		removeDir:     os.RemoveAll,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Install writes pkg into targetDir, replacing whatever was there. On
// failure targetDir is removed and the returned Result carries the cause.
func (in *Installer) Install(ctx context.Context, pkg Package, targetDir string) Result {
	log := in.logger.With().
		Str("op", "install").
		Str("install_id", uuid.NewString()).
		Str("id", pkg.PackageID()).
		Str("version", pkg.PackageVersion()).
		Str("target", targetDir).
		Logger()

	guard := acquireDir(targetDir, in.removeAll)
	written, err := in.install(ctx, pkg, targetDir)
	if err != nil {
		log.Error().Err(err).Msg("install failed, rolling back")
		res := Result{Err: err}
		if cerr := guard.Release(); cerr != nil {
			log.Error().Err(cerr).Msg("rollback incomplete, remove the directory manually")
			res.CleanupErr = cerr
		}
		return res
	}
	guard.Commit()

	log.Info().Int("files", written).Msg("extension installed")
	return Result{}
}

// install runs the install steps and returns how many content files it wrote.
func (in *Installer) install(ctx context.Context, pkg Package, targetDir string) (int, error) {
	if err := in.removeAll(ctx, targetDir); err != nil {
		return 0, fmt.Errorf("removing previous installation: %w", err)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", targetDir, err)
	}

	written := 0
	for _, f := range pkg.Files() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		rel, ok := contentPath(f.Path())
		if !ok {
			continue
		}
		dst, err := resolveWithin(targetDir, rel)
		if err != nil {
			return written, fmt.Errorf("entry %s: %w", f.Path(), err)
		}
		if err := in.write(ctx, dst, f.Open); err != nil {
			return written, fmt.Errorf("writing %s: %w", rel, err)
		}
		written++
	}

	packaged, err := hasTransform(targetDir)
	if err != nil {
		return written, fmt.Errorf("checking %s: %w", xdt.FileName, err)
	}
	if !packaged {
		data := xdt.Generate(pkg.PackageID())
		if err := in.write(ctx, filepath.Join(targetDir, xdt.FileName), bytesOpener(data)); err != nil {
			return written, fmt.Errorf("writing %s: %w", xdt.FileName, err)
		}
	}

	archivePath := filepath.Join(targetDir, manifest.FileName(pkg.PackageID(), pkg.PackageVersion()))
	if err := in.write(ctx, archivePath, pkg.OpenArchive); err != nil {
		return written, fmt.Errorf("persisting package archive: %w", err)
	}
	return written, nil
}

// hasTransform reports whether dir already holds a transform under any
// letter case.
func hasTransform(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), xdt.FileName) {
			return true, nil
		}
	}
	return false, nil
}

// Uninstall removes targetDir. It reports whether the directory is gone
// afterwards, so removing a missing directory succeeds.
func (in *Installer) Uninstall(targetDir string) bool {
	log := in.logger.With().Str("op", "uninstall").Str("target", targetDir).Logger()

	if err := in.removeAll(context.Background(), targetDir); err != nil {
		log.Error().Err(err).Msg("uninstall failed")
	}
	_, err := os.Lstat(targetDir)
	gone := errors.Is(err, fs.ErrNotExist)
	if gone {
		log.Info().Msg("extension removed")
	}
	return gone
}

// write copies the stream returned by open to path, retrying the whole
// open and write on failure.
func (in *Installer) write(ctx context.Context, path string, open func() (io.ReadCloser, error)) error {
	return in.retry(ctx, func() error {
		rc, err := open()
		if err != nil {
			return err
		}
		defer rc.Close()
		return in.writeFile(path, rc)
	})
}

// removeAll deletes dir with retry. A missing dir is not an error.
func (in *Installer) removeAll(ctx context.Context, dir string) error {
	return in.retry(ctx, func() error {
		return in.removeDir(dir)
	})
}

func (in *Installer) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(in.retryDelay), uint64(in.retryAttempts)),
		ctx,
	)
	return backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return op()
	}, policy, func(err error, wait time.Duration) {
		in.logger.Debug().Err(err).Dur("wait", wait).Msg("retrying file operation")
	})
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
