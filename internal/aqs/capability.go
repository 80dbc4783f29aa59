package aqs

import (
	"context"
)

// capabilityEpoch is the start of the widest plausible instrumentation
// history. Channel availability is deliberately not time-scoped: a site
// qualifies if its entire recorded history covers the required set, even if
// the channels were never monitored simultaneously.
const capabilityEpoch = "19800101"

// HasRequiredChannels queries the site's full historical instrumentation
// registry and reports whether it covers every required channel, along with
// the subset of required codes that were observed.
func (c *Client) HasRequiredChannels(ctx context.Context, site Site) (bool, []string, error) {
	codes, err := c.monitorParameterCodes(ctx, site, capabilityEpoch, c.today())
	if err != nil {
		return false, nil, err
	}

	observed := make(map[string]bool)
	for _, code := range codes {
		if _, required := channelName(code); required {
			observed[code] = true
		}
	}

	found := make([]string, 0, len(observed))
	hasAll := true
	for _, ch := range RequiredChannels {
		if observed[ch.Code] {
			found = append(found, ch.Code)
		} else {
			hasAll = false
		}
	}

	return hasAll, found, nil
}
