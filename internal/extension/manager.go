package extension

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/siteext-labs/siteext/internal/feed"
	"github.com/siteext-labs/siteext/internal/ident"
	"github.com/siteext-labs/siteext/internal/installer"
	"github.com/siteext-labs/siteext/internal/store"
	"github.com/siteext-labs/siteext/internal/version"
)

var (
	// ErrInvalidID is returned for ids that cannot name an installation directory.
	ErrInvalidID = ident.ErrInvalid
	// ErrInstallFailed is returned when an install was rolled back.
	ErrInstallFailed = errors.New("extension install failed")
)

const defaultConcurrency = 4

// Catalog is the remote feed.
type Catalog interface {
	ListLatest(ctx context.Context) ([]*feed.Package, error)
	Search(ctx context.Context, filter string, allowPrerelease bool) ([]*feed.Package, error)
	Find(ctx context.Context, id, version string) (*feed.Package, error)
	LatestVersion(ctx context.Context, id string) (string, error)
}

// LocalStore reads installed extensions.
type LocalStore interface {
	Root() string
	List(filter string) ([]*store.Entry, error)
	Find(id string) (*store.Entry, error)
	InstalledAt(dir string) (time.Time, error)
}

// Installer writes and removes installation directories.
type Installer interface {
	Install(ctx context.Context, pkg installer.Package, targetDir string) installer.Result
	Uninstall(targetDir string) bool
}

// Manager answers extension queries and runs installs.
type Manager struct {
	catalog     Catalog
	store       LocalStore
	installer   Installer
	logger      zerolog.Logger
	concurrency int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithConcurrency bounds the parallel feed lookups made when checking
// installed extensions for updates.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// NewManager creates a Manager.
func NewManager(catalog Catalog, st LocalStore, in Installer, opts ...Option) *Manager {
	m := &Manager{
		catalog:     catalog,
		store:       st,
		installer:   in,
		logger:      zerolog.Nop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidateID checks that id can be used as a directory name under the
// extensions root.
func ValidateID(id string) error {
	return ident.Validate(id)
}

// InstallationDirectory returns where id is, or would be, installed.
func (m *Manager) InstallationDirectory(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(m.store.Root(), id), nil
}

// GetRemoteExtensions lists the feed. An empty filter lists the latest
// stable version of everything, most downloaded first; otherwise the feed
// is searched.
func (m *Manager) GetRemoteExtensions(ctx context.Context, filter string, allowPrerelease bool) ([]*Info, error) {
	filter = strings.TrimSpace(filter)

	var (
		pkgs []*feed.Package
		err  error
	)
	if filter == "" && !allowPrerelease {
		pkgs, err = m.catalog.ListLatest(ctx)
	} else {
		pkgs, err = m.catalog.Search(ctx, filter, allowPrerelease)
	}
	if err != nil {
		return nil, fmt.Errorf("listing remote extensions: %w", err)
	}

	installed := m.installedByID()
	infos := make([]*Info, 0, len(pkgs))
	for _, p := range pkgs {
		info := fromPackage(p)
		if e, ok := installed[ident.Fold(p.ID)]; ok {
			info.setLocal(e.Dir, e.InstalledAt)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetRemoteExtension looks up one package on the feed. An empty version
// selects the latest stable one. A nil Info means the feed does not have it.
func (m *Manager) GetRemoteExtension(ctx context.Context, id, ver string) (*Info, error) {
	if id == "" {
		return nil, nil
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	pkg, err := m.catalog.Find(ctx, id, strings.TrimSpace(ver))
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", id, err)
	}
	if pkg == nil {
		return nil, nil
	}

	info := fromPackage(pkg)
	if e := m.findLocal(id); e != nil {
		info.setLocal(e.Dir, e.InstalledAt)
	}
	return info, nil
}

// GetLocalExtensions lists installed extensions matching filter. With
// checkLatest each one is compared against the feed; feed failures leave
// IsLatestVersion false.
func (m *Manager) GetLocalExtensions(ctx context.Context, filter string, checkLatest bool) ([]*Info, error) {
	entries, err := m.store.List(filter)
	if err != nil {
		return nil, fmt.Errorf("listing local extensions: %w", err)
	}

	infos := make([]*Info, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, fromEntry(e))
	}
	if checkLatest {
		m.checkLatest(ctx, infos)
	}
	return infos, nil
}

// GetLocalExtension returns one installed extension, or nil when id is not
// installed.
func (m *Manager) GetLocalExtension(ctx context.Context, id string, checkLatest bool) (*Info, error) {
	if id == "" {
		return nil, nil
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	e, err := m.store.Find(id)
	if err != nil {
		return nil, fmt.Errorf("reading local extension %s: %w", id, err)
	}
	if e == nil {
		return nil, nil
	}

	info := fromEntry(e)
	if checkLatest {
		m.checkLatest(ctx, []*Info{info})
	}
	return info, nil
}

// InstallExtension installs the latest stable version of id, replacing any
// installed version. It returns nil when the feed has no such extension.
func (m *Manager) InstallExtension(ctx context.Context, id string) (*Info, error) {
	if id == "" {
		return nil, nil
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	pkg, err := m.catalog.Find(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", id, err)
	}
	if pkg == nil {
		return nil, nil
	}

	dir, err := m.InstallationDirectory(id)
	if err != nil {
		return nil, err
	}
	if e := m.findLocal(id); e != nil {
		dir = e.Dir
	}

	res := m.installer.Install(ctx, pkg, dir)
	if !res.OK() {
		if res.CleanupErr != nil {
			m.logger.Error().Str("op", "install").Str("id", id).Str("dir", dir).Err(res.CleanupErr).
				Msg("installation directory could not be removed")
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrInstallFailed, pkg.ID, pkg.Version, res.Err)
	}

	info := fromPackage(pkg)
	installedAt, err := m.store.InstalledAt(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstallFailed, id, err)
	}
	info.setLocal(dir, installedAt)
	return info, nil
}

// UninstallExtension removes id. It reports true when nothing is installed
// under id afterwards, including when nothing was installed before.
func (m *Manager) UninstallExtension(id string) (bool, error) {
	if id == "" {
		return true, nil
	}
	if err := ValidateID(id); err != nil {
		return false, err
	}

	dir, err := m.InstallationDirectory(id)
	if err != nil {
		return false, err
	}
	if e := m.findLocal(id); e != nil {
		dir = e.Dir
	}
	return m.installer.Uninstall(dir), nil
}

// checkLatest sets IsLatestVersion on each info from the feed. It never
// fails; lookups that error count as not latest.
func (m *Manager) checkLatest(ctx context.Context, infos []*Info) {
	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for _, info := range infos {
		info := info
		g.Go(func() error {
			info.IsLatestVersion = false
			latest, err := m.catalog.LatestVersion(ctx, info.ID)
			if err != nil {
				m.logger.Debug().Str("op", "check_latest").Str("id", info.ID).Err(err).Msg("latest version lookup failed")
				return nil
			}
			if latest == "" {
				return nil
			}
			// A local build ahead of the feed counts as latest.
			info.IsLatestVersion = !version.IsNewer(info.Version, latest)
			return nil
		})
	}
	g.Wait()
}

// installedByID indexes the local store by folded directory name. Store
// failures yield an empty index.
func (m *Manager) installedByID() map[string]*store.Entry {
	entries, err := m.store.List("")
	if err != nil {
		m.logger.Debug().Err(err).Msg("local store unreadable")
		return nil
	}
	out := make(map[string]*store.Entry, len(entries))
	for _, e := range entries {
		out[ident.Fold(filepath.Base(e.Dir))] = e
	}
	return out
}

func (m *Manager) findLocal(id string) *store.Entry {
	e, err := m.store.Find(id)
	if err != nil {
		m.logger.Debug().Str("id", id).Err(err).Msg("local store unreadable")
		return nil
	}
	return e
}
