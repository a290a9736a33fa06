package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultFetchTimeout = 15 * time.Second
	// MaxBodyBytes caps how much of a single response is read.
	MaxBodyBytes = 5 << 20

	userAgent = "newsdesk/1.0 (+https://github.com/kalambet/newsdesk)"
)

// Fetcher downloads feed documents and enclosures.
type Fetcher struct {
	client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{}, Timeout: timeout, MaxBytes: MaxBodyBytes}
}

// Fetch performs one GET bounded by the fetcher timeout. A non-2xx status or
// a body larger than MaxBytes is an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(body)) > f.MaxBytes {
		return nil, fmt.Errorf("fetching %s: body exceeds %d bytes", url, f.MaxBytes)
	}
	return body, nil
}

// FillFromEnclosures replaces empty descriptions with the text of the item's
// PDF enclosure. It returns how many items were filled; any fetch or
// extraction failure leaves that item untouched.
func (f *Fetcher) FillFromEnclosures(ctx context.Context, items []Item) int {
	filled := 0
	for i := range items {
		it := &items[i]
		if it.Description != "" || !it.Enclosure.IsPDF() {
			continue
		}
		body, err := f.Fetch(ctx, it.Enclosure.URL)
		if err != nil {
			continue
		}
		text, err := ExtractPDF(body)
		if err != nil || text == "" {
			continue
		}
		it.Description = text
		filled++
	}
	return filled
}
