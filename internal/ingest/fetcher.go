package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// Fetcher pulls the CSV feed over HTTP.
type Fetcher struct {
	url    string
	client *http.Client
}

func NewFetcher(sourceURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		url:    sourceURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the feed body and the source file name derived from the
// URL path. The caller must close the returned reader.
func (f *Fetcher) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build fetch request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("csv source unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("csv source returned status %d", resp.StatusCode)
	}

	return resp.Body, sourceFileName(f.url), nil
}

// sourceFileName extracts the last path segment of the source URL, or ""
// when the URL has no usable path.
func sourceFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
