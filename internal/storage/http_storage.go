package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SmearFetcher retrieves raw smear image bytes from a remote location.
// Bytes are returned undecoded so validation can inspect the original file.
type SmearFetcher interface {
	FetchSmear(ctx context.Context, location string) ([]byte, error)
}

// HTTPSmearFetcher implements SmearFetcher over plain HTTP(S).
type HTTPSmearFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPSmearFetcher creates an HTTP fetcher. maxBytes caps the downloaded
// size; a non-positive value falls back to 64 MB.
func NewHTTPSmearFetcher(maxBytes int64) *HTTPSmearFetcher {
	if maxBytes <= 0 {
		maxBytes = 64 * 1024 * 1024
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPSmearFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

func (h *HTTPSmearFetcher) FetchSmear(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/gif, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "Go-Smear-Analyzer/1.0")

	// Retry transient failures; 4xx responses are terminal.
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, fetchErr := h.readBody(resp)
		if fetchErr == nil {
			return data, nil
		}
		lastErr = fetchErr
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch smear after 3 attempts: %w", lastErr)
}

func (h *HTTPSmearFetcher) readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, fmt.Errorf("smear exceeds %d byte limit", h.maxBytes)
	}
	return data, nil
}
