package installer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/siteext-labs/siteext/internal/manifest"
)

// contentPath strips the content/ prefix (any case) from an archive entry
// path. Entries outside content/ and the bare folder itself return false.
func contentPath(entry string) (string, bool) {
	prefix := manifest.ContentPrefix
	if len(entry) <= len(prefix) || !strings.EqualFold(entry[:len(prefix)], prefix) {
		return "", false
	}
	return entry[len(prefix):], true
}

// resolveWithin joins the slash-separated rel onto root and rejects results
// that would land outside root.
func resolveWithin(root, rel string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	if cleaned == "." || strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes the installation directory", rel)
	}
	if filepath.VolumeName(filepath.FromSlash(cleaned)) != "" {
		return "", fmt.Errorf("path %q escapes the installation directory", rel)
	}
	target := filepath.Join(root, filepath.FromSlash(cleaned))
	if err := ensureWithin(root, target); err != nil {
		return "", fmt.Errorf("path %q: %w", rel, err)
	}
	return target, nil
}

func ensureWithin(root, target string) error {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("escapes the installation directory")
	}
	return nil
}

func bytesOpener(data []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}
