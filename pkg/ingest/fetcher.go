package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/specdoc/pkg/config"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// Fetcher performs GET requests with retry, a per-host concurrency limit and
// a minimum delay between requests to the same host
type Fetcher struct {
	client  *http.Client
	cfg     config.IngestConfig
	hosts   *HostLimiter
	limiter *RateLimiter
	log     *logrus.Entry
}

// NewFetcher creates a Fetcher. cfg should already have defaults applied.
func NewFetcher(client *http.Client, cfg config.IngestConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		hosts:   NewHostLimiter(cfg.MaxRequestsPerHost, log),
		limiter: NewRateLimiter(cfg.RequestDelay, log),
		log:     log,
	}
}

// Fetch GETs rawURL. Transport errors, 5xx and 429 are retried with exponential
// backoff and jitter; other non-2xx statuses fail immediately.
// On success the caller must close the response body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL '%s': %w", utils.ErrUnsupportedSource, rawURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/markdown, text/html;q=0.9, text/plain;q=0.8, */*;q=0.5")

	host := req.URL.Host
	if err := f.hosts.Acquire(ctx, host); err != nil {
		return nil, err
	}
	defer f.hosts.Release(host)

	reqLog := f.log.WithField("url", rawURL)
	var lastErr error

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("Retrying request...")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled (%v) during retry delay after error: %w", ctx.Err(), lastErr)
			}
		}

		if err := f.limiter.Wait(ctx, host); err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		f.limiter.Touch(host)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			reqLog.WithField("attempt", attempt).Debugf("Network error: %v", err)
			lastErr = fmt.Errorf("%w: GET %s: %w", utils.ErrFetch, rawURL, err)
			continue
		}

		status := resp.StatusCode
		switch {
		case status >= 200 && status < 300:
			return resp, nil
		case status >= 500 || status == http.StatusTooManyRequests:
			drainAndClose(resp)
			lastErr = fmt.Errorf("%w: GET %s: status %d ", utils.ErrFetch, rawURL, status)
			continue
		default:
			drainAndClose(resp)
			return nil, fmt.Errorf("%w: GET %s: status %d ", utils.ErrFetch, rawURL, status)
		}
	}

	reqLog.Errorf("All %d fetch attempts failed. Last error: %v", f.cfg.MaxRetries+1, lastErr)
	return nil, lastErr
}

// backoff returns initial * 2^(attempt-1) capped at the max delay, +/- 10% jitter
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(f.cfg.InitialRetryDelay) * math.Pow(2, float64(attempt-1)))
	if delay <= 0 || (f.cfg.MaxRetryDelay > 0 && delay > f.cfg.MaxRetryDelay) {
		delay = f.cfg.MaxRetryDelay
	}
	if spread := int64(delay) / 5; spread > 0 {
		delay += time.Duration(rand.Int63n(spread)) - delay/10
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
