// Package aqs talks to the primary air-quality monitoring network: site
// discovery, monitor-history capability checks, and time-windowed sample
// retrieval.
package aqs

import (
	"fmt"
	"strings"
)

// Channel maps a network parameter code to its canonical column name.
type Channel struct {
	Code string
	Name string
}

// RequiredChannels is the closed set of channels an eligible site must have
// monitored at some point in its history. Order fixes the canonical column
// order of every produced table.
var RequiredChannels = []Channel{
	{Code: "44201", Name: "O3"},
	{Code: "42601", Name: "NO"},
	{Code: "42602", Name: "NO2"},
	{Code: "63301", Name: "SR"},
	{Code: "62101", Name: "Temp"},
}

// ChannelNames returns the canonical column names in required order.
func ChannelNames() []string {
	names := make([]string, len(RequiredChannels))
	for i, ch := range RequiredChannels {
		names[i] = ch.Name
	}
	return names
}

// channelName resolves a parameter code to its canonical name.
func channelName(code string) (string, bool) {
	for _, ch := range RequiredChannels {
		if ch.Code == code {
			return ch.Name, true
		}
	}
	return "", false
}

// requiredCodesParam joins the required parameter codes for the sample
// retrieval endpoint.
func requiredCodesParam() string {
	codes := make([]string, len(RequiredChannels))
	for i, ch := range RequiredChannels {
		codes[i] = ch.Code
	}
	return strings.Join(codes, ",")
}

// Site is a fixed physical monitoring location, identified by the composite
// (state, county, site) key. Discovered once per run; immutable thereafter.
type Site struct {
	StateCode  string
	CountyCode string
	SiteCode   string
	Name       string
	CountyName string
}

// Key returns the composite identity used to deduplicate sites that appear
// under more than one listing path.
func (s Site) Key() string {
	return fmt.Sprintf("%s-%s-%s", s.StateCode, s.CountyCode, s.SiteCode)
}
