package aqs

import (
	"context"
	"fmt"
	"sort"
)

// Discover enumerates every monitoring site in the jurisdiction via the
// two-level county → site listing traversal, deduplicated by composite
// identity. A county whose site listing fails is skipped with a warning:
// partial coverage beats a total failure for a multi-county backfill. A
// failed top-level county enumeration, by contrast, means the whole run has
// nothing to work with and is returned as an error.
func (c *Client) Discover(ctx context.Context, stateCode string) ([]Site, error) {
	counties, err := c.listCounties(ctx, stateCode)
	if err != nil {
		return nil, fmt.Errorf("list counties for state %s: %w", stateCode, err)
	}
	c.log.Info("discovered counties", "state", stateCode, "count", len(counties))

	unique := make(map[string]Site)
	for _, county := range counties {
		sites, err := c.listSites(ctx, stateCode, county.Code)
		if err != nil {
			c.log.Warn("skipping county: site listing failed", "county", county.Code, "error", err)
			continue
		}

		for _, item := range sites {
			name := item.ValueRepresented
			if name == "" {
				name = fmt.Sprintf("Site_%s", item.Code)
			}
			site := Site{
				StateCode:  stateCode,
				CountyCode: county.Code,
				SiteCode:   item.Code,
				Name:       name,
				CountyName: county.ValueRepresented,
			}
			unique[site.Key()] = site
		}
	}

	out := make([]Site, 0, len(unique))
	for _, s := range unique {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })

	return out, nil
}
