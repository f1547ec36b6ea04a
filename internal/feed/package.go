package feed

import (
	"fmt"
	"io"
	"time"

	"github.com/siteext-labs/siteext/internal/manifest"
)

// Package is one version of an extension as published on the feed.
// Packages returned by Find carry their archive; search results do not.
type Package struct {
	ID            string
	Version       string
	Title         string
	Description   string
	Authors       string
	ProjectURL    string
	IconURL       string
	LicenseURL    string
	Tags          []string
	DownloadCount int64
	// Published is zero when the feed does not report it.
	Published time.Time
	// IsLatestVersion is true when no newer stable version is published.
	IsLatestVersion bool

	archive *manifest.Archive
}

// PackageID returns the package id.
func (p *Package) PackageID() string { return p.ID }

// PackageVersion returns the package version.
func (p *Package) PackageVersion() string { return p.Version }

// HasContent reports whether the archive was downloaded.
func (p *Package) HasContent() bool { return p.archive != nil }

// Files returns the archive entries, or nil for search results.
func (p *Package) Files() []manifest.File {
	if p.archive == nil {
		return nil
	}
	return p.archive.Files()
}

// OpenArchive returns the raw archive bytes.
func (p *Package) OpenArchive() (io.ReadCloser, error) {
	if p.archive == nil {
		return nil, fmt.Errorf("package %s %s has no archive", p.ID, p.Version)
	}
	return p.archive.OpenRaw(), nil
}

// fromArchive builds a Package from downloaded archive metadata.
func fromArchive(a *manifest.Archive) *Package {
	m := a.Metadata
	return &Package{
		ID:          m.ID,
		Version:     m.Version,
		Title:       m.Title,
		Description: m.Description,
		Authors:     m.Authors,
		ProjectURL:  m.ProjectURL,
		IconURL:     m.IconURL,
		LicenseURL:  m.LicenseURL,
		Tags:        m.Tags,
		archive:     a,
	}
}
