package aqs

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/airshed/airseries/internal/httpx"
)

// DefaultBaseURL is the production endpoint of the primary network.
const DefaultBaseURL = "https://aqs.epa.gov/data/api"

// Client issues authenticated calls against the primary network through the
// shared resilient HTTP client.
type Client struct {
	httpc   *httpx.Client
	baseURL string
	email   string
	key     string
	log     *slog.Logger

	// now is injectable for tests; it bounds capability checks and the
	// final retrieval window.
	now func() time.Time
}

// NewClient creates a Client. baseURL may be empty to use the production
// endpoint.
func NewClient(httpc *httpx.Client, baseURL, email, key string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpc:   httpc,
		baseURL: baseURL,
		email:   email,
		key:     key,
		log:     logger.With("component", "aqs"),
		now:     time.Now,
	}
}

func (c *Client) baseParams() url.Values {
	v := url.Values{}
	v.Set("email", c.email)
	v.Set("key", c.key)
	return v
}

// listItem is one entry of the network's listing endpoints.
type listItem struct {
	Code             string `json:"code"`
	ValueRepresented string `json:"value_represented"`
}

type listResponse struct {
	Data []listItem `json:"Data"`
}

func (c *Client) list(ctx context.Context, path string, params url.Values) ([]listItem, error) {
	var payload listResponse
	if err := c.httpc.GetJSON(ctx, c.baseURL+path, params, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// listCounties enumerates the sub-regions of the jurisdiction.
func (c *Client) listCounties(ctx context.Context, stateCode string) ([]listItem, error) {
	params := c.baseParams()
	params.Set("state", stateCode)
	return c.list(ctx, "/list/countiesByState", params)
}

// listSites enumerates the sites within one sub-region.
func (c *Client) listSites(ctx context.Context, stateCode, countyCode string) ([]listItem, error) {
	params := c.baseParams()
	params.Set("state", stateCode)
	params.Set("county", countyCode)
	return c.list(ctx, "/list/sitesByCounty", params)
}

// monitorParameterCodes returns every parameter code the site's
// instrumentation registry reports between bdate and edate (YYYYMMDD).
func (c *Client) monitorParameterCodes(ctx context.Context, site Site, bdate, edate string) ([]string, error) {
	params := c.baseParams()
	params.Set("state", site.StateCode)
	params.Set("county", site.CountyCode)
	params.Set("site", site.SiteCode)
	params.Set("bdate", bdate)
	params.Set("edate", edate)

	var payload struct {
		Data []struct {
			ParameterCode string `json:"parameter_code"`
		} `json:"Data"`
	}
	if err := c.httpc.GetJSON(ctx, c.baseURL+"/monitors/bySite", params, &payload); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(payload.Data))
	for _, m := range payload.Data {
		codes = append(codes, m.ParameterCode)
	}
	return codes, nil
}

// sampleData fetches raw sample records for all required channels between
// bdate and edate (YYYYMMDD). Records are kept as generic maps so the
// reshaper can capture every descriptive attribute the source attaches.
func (c *Client) sampleData(ctx context.Context, site Site, bdate, edate string) ([]map[string]any, error) {
	params := c.baseParams()
	params.Set("param", requiredCodesParam())
	params.Set("bdate", bdate)
	params.Set("edate", edate)
	params.Set("state", site.StateCode)
	params.Set("county", site.CountyCode)
	params.Set("site", site.SiteCode)

	var payload struct {
		Data []map[string]any `json:"Data"`
	}
	if err := c.httpc.GetJSON(ctx, c.baseURL+"/sampleData/bySite", params, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// today renders the client's current date in the network's date format.
func (c *Client) today() string {
	return c.now().Format(dateLayout)
}

const dateLayout = "20060102"
