// Package ingest talks to the ad-platform proxy endpoints and returns raw
// campaign payloads. The wire protocol of the real platform APIs lives
// behind those endpoints; this package only knows JSON over HTTP.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/adlens/adlens/internal/models"
	"github.com/adlens/adlens/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// Fetcher is the opaque network collaborator used by the refresh
// orchestrator and the on-demand report path.
type Fetcher interface {
	FetchCampaignData(ctx context.Context, key models.CacheKey) ([]models.RawCampaignPayload, error)
}

// HTTPFetcher fetches campaign data from per-platform proxy URLs with a
// bounded retry. Auth and rate-limit failures are not retried; retrying a
// 401 only burns quota.
type HTTPFetcher struct {
	c        HTTPClient
	urls     map[models.Platform]string
	backoff  utils.Backoff
	jobLimit time.Duration
}

func NewHTTPFetcher(c HTTPClient, metaURL, googleURL string, jobLimit time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		c: c,
		urls: map[models.Platform]string{
			models.PlatformMeta:   metaURL,
			models.PlatformGoogle: googleURL,
		},
		backoff:  utils.NewBackoff(100*time.Millisecond, 2),
		jobLimit: jobLimit,
	}
}

func (f *HTTPFetcher) FetchCampaignData(ctx context.Context, key models.CacheKey) ([]models.RawCampaignPayload, error) {
	base, ok := f.urls[key.Platform]
	if !ok || base == "" {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("no endpoint configured for platform %s", key.Platform)}
	}
	if f.jobLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.jobLimit)
		defer cancel()
	}

	q := url.Values{}
	q.Set("client_id", key.ClientID)
	q.Set("period", key.PeriodID)
	endpoint := base + "?" + q.Encode()

	var campaigns []models.RawCampaignPayload
	err := f.backoff.Do(func(int) error {
		fetchErr := f.getJSON(ctx, endpoint, &campaigns)
		var fe *FetchError
		if errors.As(fetchErr, &fe) && (fe.Kind == KindAuth || fe.Kind == KindRateLimit) {
			return utils.Permanent(fetchErr)
		}
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (f *HTTPFetcher) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Kind: KindNetwork, Err: err}
	}
	resp, err := f.c.Do(req)
	if err != nil {
		return &FetchError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &FetchError{
			Kind: classifyStatus(resp.StatusCode),
			Err:  fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &FetchError{Kind: KindDecode, Err: err}
	}
	return nil
}
