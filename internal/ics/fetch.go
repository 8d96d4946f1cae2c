package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "blockerday/internal/log"
)

// MaxFeedBytes bounds the size of a downloaded feed.
const MaxFeedBytes = 8 << 20

// Fetcher downloads published feeds so they can be inspected with
// ParseFeed. Nothing is cached: a feed is only valid for the day it was
// generated.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets a 15 second timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch GETs rawURL and returns the body of a 200 response.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("feed URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Info("feed fetch start", "url", redactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redactURL(rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", redactURL(rawURL), resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		appLog.Warn("feed has unexpected content type", "url", redactURL(rawURL), "content_type", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", redactURL(rawURL), err)
	}
	if len(body) > MaxFeedBytes {
		return nil, fmt.Errorf("feed %s exceeds %d bytes", redactURL(rawURL), MaxFeedBytes)
	}

	appLog.Info("feed fetch success", "url", redactURL(rawURL), "bytes", len(body))
	return body, nil
}

// redactURL drops the query string, which may carry a private seed, from
// a URL before it is logged.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "feed://...(redacted)"
	}
	if parsed.RawQuery != "" {
		parsed.RawQuery = "(redacted)"
	}
	parsed.User = nil
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String()
}
