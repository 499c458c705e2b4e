package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultFetchTimeout = 20 * time.Second

// HTTPFetcher downloads documents through their public URL.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher returns a fetcher with a bounded timeout. A nil client uses a default one.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &HTTPFetcher{client: client, maxBytes: maxObjectBytes}
}

// Fetch performs a GET on rawURL and returns the body of a 2xx response.
func (fetcher *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("objectstore: fetch request: %w", err)
	}
	response, err := fetcher.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("objectstore: fetch: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, fmt.Errorf("objectstore: fetch %s: status %d", rawURL, response.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(response.Body, fetcher.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("objectstore: fetch body: %w", err)
	}
	if int64(len(data)) > fetcher.maxBytes {
		return nil, errObjectTooLarge
	}
	return data, nil
}
