package manifest

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// ParseNuspec decodes .nuspec XML into Metadata. A package without an id
// or version is rejected.
func ParseNuspec(data []byte) (*Metadata, error) {
	var spec nuspec
	if err := xml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing nuspec: %w", err)
	}

	m := spec.Metadata
	meta := &Metadata{
		ID:          strings.TrimSpace(m.ID),
		Version:     strings.TrimSpace(m.Version),
		Title:       strings.TrimSpace(m.Title),
		Description: strings.TrimSpace(m.Description),
		Authors:     strings.TrimSpace(m.Authors),
		ProjectURL:  strings.TrimSpace(m.ProjectURL),
		IconURL:     strings.TrimSpace(m.IconURL),
		LicenseURL:  strings.TrimSpace(m.LicenseURL),
		Tags:        strings.Fields(m.Tags),
	}
	if meta.Description == "" {
		meta.Description = strings.TrimSpace(m.Summary)
	}

	if meta.ID == "" {
		return nil, fmt.Errorf("nuspec missing required 'id' element")
	}
	if meta.Version == "" {
		return nil, fmt.Errorf("nuspec missing required 'version' element")
	}
	return meta, nil
}

// isNuspecEntry reports whether an archive entry is the root-level nuspec.
func isNuspecEntry(name string) bool {
	return !strings.Contains(name, "/") && strings.HasSuffix(strings.ToLower(name), ".nuspec")
}
