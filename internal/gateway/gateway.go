// Package gateway fetches pages from the trusted community origin on
// behalf of the rest of the system, enforcing an allow-list, a per-request
// timeout, and a short-lived response cache keyed by exact URL.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/steamlens/steamlens/internal/apperror"
	"github.com/steamlens/steamlens/internal/cache"
)

const userAgent = "steamlens/1.0 (review aggregator)"

type Gateway struct {
	client  *http.Client
	cache   *cache.Store
	trusted *url.URL
}

// New creates a Gateway restricted to trustedOrigin (scheme + host, e.g.
// "https://steamcommunity.com"). A zero timeout defaults to 5 seconds.
func New(trustedOrigin string, timeout time.Duration, store *cache.Store) (*Gateway, error) {
	trusted, err := url.Parse(trustedOrigin)
	if err != nil || trusted.Scheme == "" || trusted.Host == "" {
		return nil, fmt.Errorf("invalid trusted origin: %q", trustedOrigin)
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		client:  &http.Client{Timeout: timeout},
		cache:   store,
		trusted: trusted,
	}, nil
}

// Fetch retrieves targetURL, serving from cache when a fresh entry exists.
// The boolean reports whether the content came from the cache.
func (g *Gateway) Fetch(ctx context.Context, targetURL string) (string, bool, error) {
	if err := g.checkTarget(targetURL); err != nil {
		return "", false, err
	}

	if v, ok := g.cache.Get(targetURL); ok {
		return v.(string), true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", false, apperror.Validation(fmt.Sprintf("invalid target URL: %s", targetURL))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", false, apperror.FromTransport(err, targetURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false, apperror.Upstream(resp.StatusCode,
			fmt.Sprintf("upstream returned %d for %s", resp.StatusCode, targetURL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, apperror.Upstream(0, fmt.Sprintf("reading response from %s: %v", targetURL, err))
	}

	content := string(body)
	g.cache.Set(targetURL, content)
	return content, false, nil
}

func (g *Gateway) checkTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() {
		return apperror.Validation(fmt.Sprintf("invalid target URL: %s", target))
	}
	if u.Scheme != g.trusted.Scheme || !strings.EqualFold(u.Host, g.trusted.Host) {
		return apperror.ForbiddenTarget(target)
	}
	return nil
}
