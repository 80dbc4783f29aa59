package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airshed/airseries/internal/aqs"
	"github.com/airshed/airseries/internal/artifact"
	"github.com/airshed/airseries/internal/config"
	"github.com/airshed/airseries/internal/httpx"
)

const aqsBaseURL = "https://aqs.test/api"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AQSEmail:       "tester@example.test",
		AQSKey:         "test-key",
		StateCode:      "49",
		StartYear:      time.Now().Year(), // single current-year window
		DataDir:        t.TempDir(),
		RequestTimeout: 5 * time.Second,
		MaxRetries:     0,
		Concurrency:    1,
		RadiusMiles:    25,
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()

	httpc := httpx.New("aqs-test", httpx.Config{
		Timeout: cfg.RequestTimeout,
		Backoff: httpx.BackoffConfig{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		},
	}, discardLogger())

	client := aqs.NewClient(httpc, aqsBaseURL, cfg.AQSEmail, cfg.AQSKey, discardLogger())

	store, err := artifact.NewStore(cfg.DataDir, discardLogger())
	require.NoError(t, err)

	return New(cfg, client, store, discardLogger())
}

func registerDiscovery(t *testing.T) {
	t.Helper()

	httpmock.RegisterResponder(http.MethodGet, aqsBaseURL+"/list/countiesByState",
		httpmock.NewStringResponder(http.StatusOK, `{"Data":[{"code":"035","value_represented":"Salt Lake"}]}`))
	httpmock.RegisterResponder(http.MethodGet, aqsBaseURL+"/list/sitesByCounty",
		httpmock.NewStringResponder(http.StatusOK, `{"Data":[{"code":"3006","value_represented":"Hawthorne"}]}`))
}

func registerMonitors(t *testing.T, codes string) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodGet, aqsBaseURL+"/monitors/bySite",
		httpmock.NewStringResponder(http.StatusOK, codes))
}

const allMonitors = `{"Data":[
	{"parameter_code":"44201"},{"parameter_code":"42601"},{"parameter_code":"42602"},
	{"parameter_code":"63301"},{"parameter_code":"62101"}
]}`

// Full coverage for two timestamps across all five channels.
const fullSampleData = `{"Data":[
	{"date_local":"2024-01-10","time_local":"00:00","parameter_code":"44201","sample_measurement":0.041,"units_of_measure":"Parts per million","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"00:00","parameter_code":"42601","sample_measurement":0.001,"units_of_measure":"Parts per billion","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"00:00","parameter_code":"42602","sample_measurement":0.018,"units_of_measure":"Parts per billion","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"00:00","parameter_code":"63301","sample_measurement":0.02,"units_of_measure":"Langleys per minute","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"00:00","parameter_code":"62101","sample_measurement":28,"units_of_measure":"Degrees Fahrenheit","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"01:00","parameter_code":"44201","sample_measurement":0.043,"units_of_measure":"Parts per million","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"01:00","parameter_code":"42601","sample_measurement":0.002,"units_of_measure":"Parts per billion","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"01:00","parameter_code":"42602","sample_measurement":0.02,"units_of_measure":"Parts per billion","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"01:00","parameter_code":"63301","sample_measurement":0.0,"units_of_measure":"Langleys per minute","latitude":40.73,"longitude":-111.87},
	{"date_local":"2024-01-10","time_local":"01:00","parameter_code":"62101","sample_measurement":27,"units_of_measure":"Degrees Fahrenheit","latitude":40.73,"longitude":-111.87}
]}`

func TestRun_AcceptedSiteProducesCompleteDataset(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerDiscovery(t)
	registerMonitors(t, allMonitors)
	httpmock.RegisterResponder(http.MethodGet, aqsBaseURL+"/sampleData/bySite",
		httpmock.NewStringResponder(http.StatusOK, fullSampleData))

	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))

	paths := p.store.Paths("Hawthorne", "3006")
	table, meta, err := artifact.LoadPair(paths.Raw, paths.Meta)
	require.NoError(t, err)

	assert.Equal(t, aqs.ChannelNames(), table.Columns)
	require.Len(t, table.Rows, 2)

	// Fully monitored site: the cleaned view keeps every row.
	cleaned, _, err := artifact.LoadPair(paths.Cleaned, paths.Meta)
	require.NoError(t, err)
	assert.Len(t, cleaned.Rows, len(table.Rows))
	for _, row := range cleaned.Rows {
		for _, v := range row.Values {
			assert.NotNil(t, v)
		}
	}

	// No channel may be marked "no data".
	require.Len(t, meta.Details, len(aqs.ChannelNames()))
	for _, ch := range aqs.ChannelNames() {
		assert.NotNil(t, meta.Details[ch], "channel %s unexpectedly empty", ch)
	}

	lat, lon, ok := meta.Coordinate()
	require.True(t, ok)
	assert.InDelta(t, 40.73, lat, 1e-9)
	assert.InDelta(t, -111.87, lon, 1e-9)
}

func TestRun_IneligibleSiteNeverRetrieves(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerDiscovery(t)
	// History missing the SR channel (63301).
	registerMonitors(t, `{"Data":[
		{"parameter_code":"44201"},{"parameter_code":"42601"},
		{"parameter_code":"42602"},{"parameter_code":"62101"}
	]}`)
	httpmock.RegisterResponder(http.MethodGet, aqsBaseURL+"/sampleData/bySite",
		httpmock.NewStringResponder(http.StatusOK, fullSampleData))

	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))

	info := httpmock.GetCallCountInfo()
	assert.Zero(t, info["GET "+aqsBaseURL+"/sampleData/bySite"],
		"excluded site must not trigger any retrieval call")
}

func TestRun_SiteWithNoSamplesWritesNoArtifacts(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerDiscovery(t)
	registerMonitors(t, allMonitors)
	httpmock.RegisterResponder(http.MethodGet, aqsBaseURL+"/sampleData/bySite",
		httpmock.NewStringResponder(http.StatusOK, `{"Data":[]}`))

	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))

	paths := p.store.Paths("Hawthorne", "3006")
	_, _, err := artifact.LoadPair(paths.Raw, paths.Meta)
	assert.Error(t, err)
}

func TestRun_DiscoveryFailureAborts(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, aqsBaseURL+"/list/countiesByState",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	require.Error(t, p.Run(context.Background()))
}
