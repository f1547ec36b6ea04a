package manifest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Archive is an in-memory package archive.
type Archive struct {
	Metadata Metadata

	data  []byte
	files []File
}

// File is a single entry of an archive.
type File struct {
	zf   *zip.File
	path string
}

// Path returns the decoded, slash-separated entry path.
func (f File) Path() string { return f.path }

// Open returns a reader over the entry's content.
func (f File) Open() (io.ReadCloser, error) { return f.zf.Open() }

// Open parses raw .nupkg bytes.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	// Insecure entry names are rejected by the installer, not here.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("opening package archive: %w", err)
	}

	a := &Archive{data: data}
	var meta *Metadata
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := decodeEntryName(zf.Name)
		if meta == nil && isNuspecEntry(name) {
			raw, err := readEntry(zf)
			if err != nil {
				return nil, err
			}
			meta, err = ParseNuspec(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		a.files = append(a.files, File{zf: zf, path: name})
	}
	if meta == nil {
		return nil, fmt.Errorf("package archive has no .nuspec")
	}
	a.Metadata = *meta
	return a, nil
}

// Files returns every file entry of the archive in archive order.
func (a *Archive) Files() []File {
	return a.files
}

// Size returns the archive length in bytes.
func (a *Archive) Size() int64 {
	return int64(len(a.data))
}

// OpenRaw returns a reader over the original archive bytes.
func (a *Archive) OpenRaw() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(a.data))
}

func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", zf.Name, err)
	}
	return data, nil
}

// decodeEntryName normalizes separators and undoes the percent-encoding the
// packaging tools apply to entry names.
func decodeEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
