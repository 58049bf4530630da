package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	appLog "meetpick/internal/log"
)

const (
	defaultFetchTimeout = 15 * time.Second
	maxFeedBytes        = 8 << 20
)

// Fetcher downloads remote ICS feeds. It remembers ETag/Last-Modified per
// URL for the life of the process and replays the cached body on 304.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	etag         string
	lastModified string
	body         []byte
}

// NewFetcher returns a Fetcher using client, or a client with a 15s timeout
// when nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Fetcher{client: client, cache: make(map[string]cacheEntry)}
}

// Fetch returns the feed body at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("feed URL is empty")
	}

	f.mu.Lock()
	cached, hasCache := f.cache[url]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")
	if cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}
	if cached.lastModified != "" {
		req.Header.Set("If-Modified-Since", cached.lastModified)
	}

	appLog.Debug("ics fetch start", "url", redactURL(url))
	resp, err := f.client.Do(req)
	if err != nil {
		appLog.Error("ics fetch failed", err, "url", redactURL(url))
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.cache[url] = cacheEntry{
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			body:         body,
		}
		f.mu.Unlock()
		appLog.Info("ics fetch success", "url", redactURL(url), "bytes", len(body))
		return body, nil
	case http.StatusNotModified:
		if !hasCache || len(cached.body) == 0 {
			return nil, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("ics feed not modified", "url", redactURL(url))
		return cached.body, nil
	default:
		err := fmt.Errorf("fetch %s: %s", redactURL(url), resp.Status)
		appLog.Error("ics fetch non-OK", err, "status", resp.StatusCode)
		return nil, err
	}
}

// redactURL keeps only scheme and host; feed paths often embed a secret
// token.
func redactURL(u string) string {
	const suffix = "/...(redacted)"
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	if j := strings.IndexByte(rest, '?'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + suffix
}
