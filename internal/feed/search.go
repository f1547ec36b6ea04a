package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/siteext-labs/siteext/internal/ident"
	"github.com/siteext-labs/siteext/internal/version"
)

// ListLatest returns the latest stable version of every extension on the
// feed, most downloaded first.
func (c *Client) ListLatest(ctx context.Context) ([]*Package, error) {
	pkgs, err := c.query(ctx, "", false)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pkgs, func(i, j int) bool {
		return pkgs[i].DownloadCount > pkgs[j].DownloadCount
	})
	return pkgs, nil
}

// Search runs a text search on the feed. Results keep the feed's ranking
// and hold one entry per id, the highest version seen.
func (c *Client) Search(ctx context.Context, filter string, allowPrerelease bool) ([]*Package, error) {
	return c.query(ctx, strings.TrimSpace(filter), allowPrerelease)
}

// query pages through the search endpoint.
func (c *Client) query(ctx context.Context, q string, prerelease bool) ([]*Package, error) {
	log := c.logger.With().Str("op", "search").Str("query", q).Logger()

	var out []*Package
	seen := make(map[string]int) // folded id -> index into out
	for skip := 0; skip < c.maxResults; {
		take := min(c.pageSize, c.maxResults-skip)
		params := url.Values{}
		params.Set("q", q)
		params.Set("prerelease", strconv.FormatBool(prerelease))
		params.Set("skip", strconv.Itoa(skip))
		params.Set("take", strconv.Itoa(take))

		resp, err := c.get(ctx, c.baseURL+"/query?"+params.Encode())
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: no search endpoint at %s", ErrCatalogUnavailable, c.baseURL)
		}
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(resp.body) {
			return nil, fmt.Errorf("%w: malformed search response", ErrCatalogUnavailable)
		}

		page := gjson.ParseBytes(resp.body)
		data := page.Get("data").Array()
		for _, item := range data {
			pkg, err := parseEntry(item)
			if err != nil {
				log.Warn().Str("entry", item.Get("id").String()).Err(err).Msg("skipping malformed feed entry")
				continue
			}
			if !prerelease && version.IsPrerelease(pkg.Version) {
				continue
			}
			key := ident.Fold(pkg.ID)
			if at, ok := seen[key]; ok {
				if version.IsNewer(out[at].Version, pkg.Version) {
					out[at] = pkg
				}
				continue
			}
			seen[key] = len(out)
			out = append(out, pkg)
		}

		skip += len(data)
		total := page.Get("totalHits")
		if len(data) == 0 || (total.Exists() && int64(skip) >= total.Int()) {
			break
		}
	}

	log.Debug().Int("results", len(out)).Msg("feed search complete")
	return out, nil
}

// parseEntry validates and converts one search entry.
func parseEntry(item gjson.Result) (*Package, error) {
	if !item.IsObject() {
		return nil, fmt.Errorf("entry is not an object")
	}
	issues, err := validateEntry(item.Raw)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, issue := range issues {
			msgs[i] = issue.String()
		}
		return nil, fmt.Errorf("invalid entry: %s", strings.Join(msgs, "; "))
	}

	pkg := &Package{
		ID:              strings.TrimSpace(item.Get("id").String()),
		Version:         strings.TrimSpace(item.Get("version").String()),
		Title:           item.Get("title").String(),
		Description:     item.Get("description").String(),
		ProjectURL:      item.Get("projectUrl").String(),
		IconURL:         item.Get("iconUrl").String(),
		LicenseURL:      item.Get("licenseUrl").String(),
		DownloadCount:   item.Get("totalDownloads").Int(),
		IsLatestVersion: true,
	}
	if pkg.Description == "" {
		pkg.Description = item.Get("summary").String()
	}

	authors := item.Get("authors")
	if authors.IsArray() {
		var names []string
		for _, a := range authors.Array() {
			if s := strings.TrimSpace(a.String()); s != "" {
				names = append(names, s)
			}
		}
		pkg.Authors = strings.Join(names, ", ")
	} else {
		pkg.Authors = authors.String()
	}

	for _, tag := range item.Get("tags").Array() {
		pkg.Tags = append(pkg.Tags, tag.String())
	}

	if published := item.Get("published").String(); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			pkg.Published = t
		}
	}
	return pkg, nil
}
