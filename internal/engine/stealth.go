package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"
)

// BrowserClient is the go-stealth client used for page fetches.
type BrowserClient = stealth.BrowserClient

// APIClient sends requests to YouTube JSON endpoints. It shares the page
// fetcher's rate limiter, so FETCH_RPS bounds pages and API calls together.
type APIClient struct {
	client  *http.Client
	limiter *rate.Limiter
	retry   stealth.RetryConfig
}

// NewAPIClient creates an APIClient. A nil limiter means unlimited.
func NewAPIClient(client *http.Client, limiter *rate.Limiter) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &APIClient{client: client, limiter: limiter, retry: stealth.DefaultRetryConfig}
}

// Do waits for a rate limit token, then sends the request built by newReq,
// retrying transient failures. newReq runs once per attempt.
func (a *APIClient) Do(ctx context.Context, newReq func(context.Context) (*http.Request, error)) (*http.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("api: rate limit: %w", err)
		}
	}
	resp, err := stealth.RetryHTTP(ctx, a.retry, func() (*http.Response, error) {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		return a.client.Do(req)
	})
	if err != nil {
		metrics.FetchErrors.Add(1)
		return nil, err
	}
	return resp, nil
}
