package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/siteext-labs/siteext/internal/ident"
	"github.com/siteext-labs/siteext/internal/manifest"
	"github.com/siteext-labs/siteext/internal/version"
)

// Versions returns every published version of id, or nil when the feed
// does not know the id.
func (c *Client) Versions(ctx context.Context, id string) ([]string, error) {
	resp, err := c.get(ctx, c.packageURL(id, "index.json"))
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.body) {
		return nil, fmt.Errorf("%w: malformed version index for %s", ErrCatalogUnavailable, id)
	}

	var versions []string
	for _, v := range gjson.GetBytes(resp.body, "versions").Array() {
		if s := v.String(); s != "" {
			versions = append(versions, s)
		}
	}
	return versions, nil
}

// LatestVersion returns the latest stable version of id, or "" when none
// is published.
func (c *Client) LatestVersion(ctx context.Context, id string) (string, error) {
	versions, err := c.Versions(ctx, id)
	if err != nil {
		return "", err
	}
	latest, _ := version.Latest(versions, true)
	return latest, nil
}

// Find downloads one package. An empty ver selects the latest stable
// version. A nil package with a nil error means the id or version is not
// published.
func (c *Client) Find(ctx context.Context, id, ver string) (*Package, error) {
	log := c.logger.With().Str("op", "find").Str("id", id).Logger()

	versions, err := c.Versions(ctx, id)
	if err != nil || len(versions) == 0 {
		return nil, err
	}
	latest, hasStable := version.Latest(versions, true)

	resolved := ""
	if ver == "" {
		if !hasStable {
			log.Debug().Msg("no stable version published")
			return nil, nil
		}
		resolved = latest
	} else {
		for _, v := range versions {
			if version.Equal(v, ver) {
				resolved = v
				break
			}
		}
		if resolved == "" {
			return nil, nil
		}
	}

	resp, err := c.get(ctx, c.packageURL(id, resolved, id+"."+resolved+manifest.Extension))
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	archive, err := manifest.Open(resp.body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrInvalidPackage, id, resolved, err)
	}
	if !ident.Equal(archive.Metadata.ID, id) {
		return nil, fmt.Errorf("%w: requested %s, archive declares %s", ErrInvalidPackage, id, archive.Metadata.ID)
	}

	pkg := fromArchive(archive)
	pkg.IsLatestVersion = !hasStable || !version.IsNewer(pkg.Version, latest)
	if lm := resp.header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			pkg.Published = t
		}
	}

	log.Debug().Str("version", pkg.Version).Int64("bytes", archive.Size()).Msg("package downloaded")
	return pkg, nil
}
