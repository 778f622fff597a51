package ingest

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/config"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testIngestConfig() config.IngestConfig {
	return config.IngestConfig{
		UserAgent:          "specdoc-test",
		MaxRetries:         2,
		InitialRetryDelay:  time.Millisecond,
		MaxRetryDelay:      5 * time.Millisecond,
		MaxRequestsPerHost: 2,
	}
}

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	cfg := config.Default()
	client := NewClient(cfg.Ingest.HTTPClientSettings, testLogger())
	require.NotNil(t, client)
	return NewFetcher(client, testIngestConfig(), testLogger())
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, body)
}
