package aqs

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/airshed/airseries/internal/httpx"
)

const testBaseURL = "https://aqs.test/api"

// fixedNow keeps window math and capability bounds deterministic.
var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	httpc := httpx.New("aqs-test", httpx.Config{
		Timeout: 5 * time.Second,
		Backoff: httpx.BackoffConfig{
			MaxRetries:      0,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		},
	}, discardLogger())

	c := NewClient(httpc, testBaseURL, "tester@example.test", "test-key", discardLogger())
	c.now = func() time.Time { return fixedNow }
	return c
}
