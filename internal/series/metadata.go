package series

import (
	"encoding/json"
	"fmt"
)

// ChannelDetail maps an attribute name to its collapsed value: the scalar
// itself when every sample agrees, the list of distinct values when they do
// not (an attribute that varies over time, e.g. a recalibration), or nil
// when the channel never carried the attribute. A nil ChannelDetail marks a
// channel with no data at all; every required channel still gets an entry.
type ChannelDetail map[string]any

// collapseAttributes builds the metadata summary for one channel's samples.
// Distinct values are compared after normalization and kept in first-seen
// order.
func collapseAttributes(samples []RawSample) ChannelDetail {
	if len(samples) == 0 {
		return nil
	}

	keys := make([]string, 0)
	seen := make(map[string]bool)
	distinct := make(map[string][]any)

	for _, s := range samples {
		for k, v := range s.Attributes {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
			nv := NormalizeAttr(v)
			if nv == nil {
				continue
			}
			found := false
			for _, existing := range distinct[k] {
				if existing == nv {
					found = true
					break
				}
			}
			if !found {
				distinct[k] = append(distinct[k], nv)
			}
		}
	}

	detail := make(ChannelDetail, len(keys))
	for _, k := range keys {
		vals := distinct[k]
		switch len(vals) {
		case 0:
			detail[k] = nil
		case 1:
			detail[k] = vals[0]
		default:
			detail[k] = vals
		}
	}
	return detail
}

// NormalizeAttr coerces an attribute value into a canonical comparable
// scalar before distinct-value collapsing: every numeric form becomes
// float64, strings and bools pass through, anything else is stringified.
func NormalizeAttr(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string:
		return x
	case bool:
		return x
	default:
		return fmt.Sprint(x)
	}
}
