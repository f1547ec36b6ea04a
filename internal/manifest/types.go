package manifest

import "strings"

// Extension is the archive file extension of a package manifest.
const Extension = ".nupkg"

// ContentPrefix is the archive folder whose files are installed.
const ContentPrefix = "content/"

// Metadata holds the descriptive fields of a package.
type Metadata struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Authors     string   `json:"authors,omitempty"`
	ProjectURL  string   `json:"project_url,omitempty"`
	IconURL     string   `json:"icon_url,omitempty"`
	LicenseURL  string   `json:"license_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// nuspec is the XML shape of a .nuspec file. Field tags carry no namespace
// so every nuspec schema revision matches.
type nuspec struct {
	Metadata struct {
		ID          string `xml:"id"`
		Version     string `xml:"version"`
		Title       string `xml:"title"`
		Authors     string `xml:"authors"`
		Description string `xml:"description"`
		Summary     string `xml:"summary"`
		ProjectURL  string `xml:"projectUrl"`
		IconURL     string `xml:"iconUrl"`
		LicenseURL  string `xml:"licenseUrl"`
		Tags        string `xml:"tags"`
	} `xml:"metadata"`
}

// FileName returns the manifest file name for an installed package,
// e.g. "demo.1.2.0.nupkg".
func FileName(id, version string) string {
	return id + "." + version + Extension
}

// IsManifestName reports whether name looks like a persisted manifest.
func IsManifestName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension)
}
