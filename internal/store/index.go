package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/siteext-labs/siteext/internal/manifest"
)

// index caches archive metadata per extension directory.
type index struct {
	Root     string                `json:"root"`
	Entries  map[string]indexEntry `json:"entries"` // dir name -> entry
	CachedAt time.Time             `json:"cached_at"`

	dirty bool
}

type indexEntry struct {
	ModTime  int64             `json:"mod_time"` // unix nanoseconds
	Manifest string            `json:"manifest"`
	Metadata manifest.Metadata `json:"metadata"`
}

func (idx *index) lookup(name string, mtime time.Time) (indexEntry, bool) {
	e, ok := idx.Entries[name]
	if !ok || e.ModTime != mtime.UnixNano() {
		return indexEntry{}, false
	}
	return e, true
}

func (idx *index) put(name string, mtime time.Time, archive string, meta manifest.Metadata) {
	idx.Entries[name] = indexEntry{
		ModTime:  mtime.UnixNano(),
		Manifest: archive,
		Metadata: meta,
	}
	idx.dirty = true
}

// retain drops entries for directories that no longer exist.
func (idx *index) retain(names []string) {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for name := range idx.Entries {
		if !keep[name] {
			delete(idx.Entries, name)
			idx.dirty = true
		}
	}
}

// loadIndex reads the index file. Any failure yields an empty index.
func (s *Store) loadIndex() *index {
	empty := &index{Root: s.root, Entries: map[string]indexEntry{}}
	if s.indexPath == "" {
		return empty
	}
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		return empty
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		s.logger.Debug().Str("path", s.indexPath).Err(err).Msg("ignoring corrupt store index")
		return empty
	}
	if idx.Root != s.root || idx.Entries == nil {
		return empty
	}
	return &idx
}

// saveIndex writes idx back when it changed. Failures are logged only;
// listing works without the index.
func (s *Store) saveIndex(idx *index) {
	if s.indexPath == "" || !idx.dirty {
		return
	}
	idx.CachedAt = time.Now()
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.indexPath), 0o755); err != nil {
		s.logger.Debug().Str("path", s.indexPath).Err(err).Msg("store index not written")
		return
	}
	if err := os.WriteFile(s.indexPath, data, 0o644); err != nil {
		s.logger.Debug().Str("path", s.indexPath).Err(err).Msg("store index not written")
		return
	}
	idx.dirty = false
}
