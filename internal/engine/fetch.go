package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// maxPageBytes caps a single page read; YouTube pages are ~1-2MB.
const maxPageBytes = 8 << 20

// PageFetcher returns the raw markup served at a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Fetcher fetches YouTube pages through the stealth browser client when one is
// configured, or a plain HTTP client otherwise. All requests share one rate limiter.
type Fetcher struct {
	browser     *BrowserClient
	client      *http.Client
	limiter     *rate.Limiter
	timeout     time.Duration
	maxTries    uint
	initialWait time.Duration
}

// NewFetcher builds a Fetcher from the engine configuration.
func NewFetcher(c *Config) *Fetcher {
	f := &Fetcher{
		browser:     c.BrowserClient,
		client:      c.HTTPClient,
		timeout:     c.FetchTimeout,
		maxTries:    3,
		initialWait: 500 * time.Millisecond,
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 15 * time.Second}
	}
	if f.timeout <= 0 {
		f.timeout = 10 * time.Second
	}
	if c.FetchRPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(c.FetchRPS), 1)
	}
	return f
}

// APIClient returns a client for JSON endpoints that draws from this fetcher's
// rate limiter.
func (f *Fetcher) APIClient() *APIClient {
	return NewAPIClient(f.client, f.limiter)
}

// Fetch performs a rate-limited GET with retries on transient failures.
// Any non-200 final status is an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: rate limit: %w", url, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	operation := func() ([]byte, error) {
		var (
			data   []byte
			status int
			err    error
		)
		if f.browser != nil {
			data, status, err = f.doBrowser(url)
		} else {
			data, status, err = f.doHTTP(ctx, url)
		}
		if err != nil {
			return nil, err
		}
		if stealth.IsRetryableStatus(status) {
			return nil, fmt.Errorf("status %d", status)
		}
		if status != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("status %d", status))
		}
		return data, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initialWait
	bo.MaxInterval = 5 * time.Second

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(f.maxTries),
		backoff.WithMaxElapsedTime(f.timeout),
	)
	if err != nil {
		metrics.FetchErrors.Add(1)
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return data, nil
}

func (f *Fetcher) doBrowser(url string) ([]byte, int, error) {
	headers := stealth.ChromeHeaders()
	headers["accept-language"] = "en-US,en;q=0.9"
	headers["cookie"] = consentCookie
	data, _, status, err := f.browser.Do(http.MethodGet, url, headers, nil)
	if err != nil {
		return nil, 0, err
	}
	return data, status, nil
}

func (f *Fetcher) doHTTP(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", stealth.RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cookie", consentCookie)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// consentCookie skips the EU consent interstitial, which carries no ytInitialData.
const consentCookie = "CONSENT=YES+cb; SOCS=CAI"
