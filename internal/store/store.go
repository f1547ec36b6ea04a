package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteext-labs/siteext/internal/ident"
	"github.com/siteext-labs/siteext/internal/manifest"
)

// Entry is one installed extension.
type Entry struct {
	manifest.Metadata

	// Dir is the extension's installation directory.
	Dir string
	// ManifestPath is the package archive the metadata was read from.
	ManifestPath string
	// InstalledAt is the installation directory's modification time.
	InstalledAt time.Time
}

// Store enumerates extensions installed under a root directory.
type Store struct {
	root      string
	indexPath string
	logger    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIndexPath enables the metadata index at path. An empty path disables it.
func WithIndexPath(path string) Option {
	return func(s *Store) { s.indexPath = path }
}

// WithLogger sets the logger used for skipped directories and index errors.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store over root.
func New(root string, opts ...Option) *Store {
	s := &Store{
		root:   root,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the extensions root directory.
func (s *Store) Root() string {
	return s.root
}

// InstalledAt reports when dir was last (re)installed, taken from the
// directory's modification time.
func (s *Store) InstalledAt(dir string) (time.Time, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", dir, err)
	}
	return fi.ModTime(), nil
}

// List returns the installed extensions whose id, title or description
// contains filter (case-insensitive), sorted by id. A missing root yields
// an empty list.
func (s *Store) List(filter string) ([]*Entry, error) {
	dirs, err := s.extensionDirs()
	if err != nil {
		return nil, err
	}

	idx := s.loadIndex()
	idx.retain(dirs)
	var entries []*Entry
	for _, name := range dirs {
		entry, err := s.load(name, idx)
		if err != nil {
			s.logger.Warn().Str("op", "list").Str("dir", name).Err(err).Msg("skipping extension directory")
			continue
		}
		if !ident.Matches(filter, entry.ID, entry.Title, entry.Description) {
			continue
		}
		entries = append(entries, entry)
	}
	s.saveIndex(idx)

	sort.Slice(entries, func(i, j int) bool {
		return ident.Fold(entries[i].ID) < ident.Fold(entries[j].ID)
	})
	return entries, nil
}

// Find returns the installed extension whose directory name equals id
// ignoring case, or nil when it is not installed.
func (s *Store) Find(id string) (*Entry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	dirs, err := s.extensionDirs()
	if err != nil {
		return nil, err
	}

	idx := s.loadIndex()
	for _, name := range dirs {
		if !ident.Equal(name, id) {
			continue
		}
		entry, err := s.load(name, idx)
		if err != nil {
			s.logger.Warn().Str("op", "find").Str("dir", name).Err(err).Msg("extension directory is unreadable")
			return nil, nil
		}
		s.saveIndex(idx)
		return entry, nil
	}
	return nil, nil
}

// extensionDirs lists the names of candidate extension directories.
func (s *Store) extensionDirs() ([]string, error) {
	des, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read extensions root: %w", err)
	}
	var names []string
	for _, de := range des {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		names = append(names, de.Name())
	}
	return names, nil
}

// load builds the entry for one directory, consulting idx first.
func (s *Store) load(name string, idx *index) (*Entry, error) {
	dir := filepath.Join(s.root, name)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	mtime := info.ModTime()

	if cached, ok := idx.lookup(name, mtime); ok {
		return &Entry{
			Metadata:     cached.Metadata,
			Dir:          dir,
			ManifestPath: filepath.Join(dir, cached.Manifest),
			InstalledAt:  mtime,
		}, nil
	}

	archive, err := findArchive(dir, name)
	if err != nil {
		return nil, err
	}
	meta, err := manifest.Read(filepath.Join(dir, archive))
	if err != nil {
		return nil, err
	}
	idx.put(name, mtime, archive, *meta)

	return &Entry{
		Metadata:     *meta,
		Dir:          dir,
		ManifestPath: filepath.Join(dir, archive),
		InstalledAt:  mtime,
	}, nil
}

// findArchive picks the package archive inside dir. An archive named after
// the directory wins over any other.
func findArchive(dir, name string) (string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found []string
	for _, de := range des {
		if de.Type().IsRegular() && manifest.IsManifestName(de.Name()) {
			found = append(found, de.Name())
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no %s archive in %s", manifest.Extension, dir)
	}
	sort.Strings(found)
	prefix := ident.Fold(name + ".")
	for _, f := range found {
		if strings.HasPrefix(ident.Fold(f), prefix) {
			return f, nil
		}
	}
	return found[0], nil
}
