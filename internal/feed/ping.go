package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Ping asks the feed for a single search result and reports the total number
// of packages it advertises.
func (c *Client) Ping(ctx context.Context) (int64, error) {
	resp, err := c.get(ctx, c.baseURL+"/query?take=1")
	if errors.Is(err, errNotFound) {
		return 0, fmt.Errorf("%w: no search endpoint at %s", ErrCatalogUnavailable, c.baseURL)
	}
	if err != nil {
		return 0, err
	}
	if !gjson.ValidBytes(resp.body) {
		return 0, fmt.Errorf("%w: malformed search response", ErrCatalogUnavailable)
	}
	return gjson.GetBytes(resp.body, "totalHits").Int(), nil
}
