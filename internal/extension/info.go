package extension

import (
	"time"

	"github.com/siteext-labs/siteext/internal/feed"
	"github.com/siteext-labs/siteext/internal/store"
)

// Info describes an extension as seen by callers. LocalPath and
// InstalledAt are set together, only for installed extensions.
type Info struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title,omitempty" yaml:"title,omitempty"`
	Description     string     `json:"description,omitempty" yaml:"description,omitempty"`
	Authors         string     `json:"authors,omitempty" yaml:"authors,omitempty"`
	Version         string     `json:"version" yaml:"version"`
	ProjectURL      string     `json:"project_url,omitempty" yaml:"project_url,omitempty"`
	IconURL         string     `json:"icon_url,omitempty" yaml:"icon_url,omitempty"`
	LicenseURL      string     `json:"license_url,omitempty" yaml:"license_url,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	IsLatestVersion bool       `json:"is_latest_version" yaml:"is_latest_version"`
	DownloadCount   int64      `json:"download_count" yaml:"download_count"`
	LocalPath       string     `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	InstalledAt     *time.Time `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
}

// IsInstalled reports whether the extension has an installation directory.
func (i *Info) IsInstalled() bool {
	return i.LocalPath != ""
}

func (i *Info) setLocal(dir string, installedAt time.Time) {
	i.LocalPath = dir
	t := installedAt
	i.InstalledAt = &t
}

func fromPackage(p *feed.Package) *Info {
	info := &Info{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Authors:         p.Authors,
		Version:         p.Version,
		ProjectURL:      p.ProjectURL,
		IconURL:         p.IconURL,
		LicenseURL:      p.LicenseURL,
		IsLatestVersion: p.IsLatestVersion,
		DownloadCount:   p.DownloadCount,
	}
	if !p.Published.IsZero() {
		t := p.Published
		info.PublishedAt = &t
	}
	return info
}

func fromEntry(e *store.Entry) *Info {
	info := &Info{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Authors:     e.Authors,
		Version:     e.Version,
		ProjectURL:  e.ProjectURL,
		IconURL:     e.IconURL,
		LicenseURL:  e.LicenseURL,
	}
	info.setLocal(e.Dir, e.InstalledAt)
	return info
}
