package manifest

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/mholt/archiver"
)

// Read extracts Metadata from a .nupkg on disk without loading the rest of
// the archive.
func Read(path string) (*Metadata, error) {
	var (
		meta     *Metadata
		parseErr error
	)

	err := archiver.NewZip().Walk(path, func(f archiver.File) error {
		if f.IsDir() || !isNuspecEntry(decodeEntryName(entryName(f))) {
			return nil
		}
		raw, err := io.ReadAll(f)
		if err != nil {
			parseErr = fmt.Errorf("reading nuspec in %s: %w", path, err)
			return archiver.ErrStopWalk
		}
		meta, parseErr = ParseNuspec(raw)
		return archiver.ErrStopWalk
	})
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if meta == nil {
		return nil, fmt.Errorf("manifest %s has no .nuspec", path)
	}
	return meta, nil
}

// entryName returns the full in-archive path; FileInfo.Name() is only the base.
func entryName(f archiver.File) string {
	switch h := f.Header.(type) {
	case zip.FileHeader:
		return h.Name
	case *zip.FileHeader:
		return h.Name
	}
	return f.Name()
}
