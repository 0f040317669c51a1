// Package source acquires raw vendor exports, either from local files or by
// downloading them over HTTP.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"vendorrecon/internal/config"
	"vendorrecon/internal/logger"
	"vendorrecon/pkg/utils"
)

// Fetch errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrInvalidURL           = errors.New("invalid source url")
	ErrTooLarge             = errors.New("response exceeds size limit")
)

// DefaultMaxBytes caps a single download.
const DefaultMaxBytes = 256 << 20

// Fetcher resolves configured sources to local files.
type Fetcher struct {
	client      *http.Client
	retryPolicy config.RetryPolicy
	http        *utils.HTTPHelper
	log         *logger.Logger
	maxBytes    int64
}

// NewFetcher creates a fetcher using the given retry policy.
func NewFetcher(retryPolicy config.RetryPolicy, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Discard()
	}

	return &Fetcher{
		client:      &http.Client{Timeout: retryPolicy.GetTimeout()},
		retryPolicy: retryPolicy,
		http:        utils.NewHTTPHelper(),
		log:         log,
		maxBytes:    DefaultMaxBytes,
	}
}

// Acquire returns a local path for src. Local files are returned as-is after
// checking they exist; URLs are downloaded to rawPath.
func (f *Fetcher) Acquire(ctx context.Context, src config.SourceConfig, rawPath string) (string, error) {
	if src.IsLocalFile() {
		if _, err := os.Stat(src.File); err != nil {
			return "", fmt.Errorf("source %s: %w", src.ID, err)
		}

		return src.File, nil
	}

	if err := f.Download(ctx, src.URL, rawPath); err != nil {
		return "", fmt.Errorf("source %s: %w", src.ID, err)
	}

	return rawPath, nil
}

// Download fetches url into dest, retrying transient failures with
// exponential backoff. The file is written atomically.
func (f *Fetcher) Download(ctx context.Context, url, dest string) error {
	if !f.http.IsValidURL(url) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	attempts := f.retryPolicy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := f.retryPolicy.GetRetryDelay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		start := time.Now()
		body, retry, err := f.fetch(ctx, url)

		if err == nil {
			f.log.Info("Downloaded source", "url", url, "bytes", len(body), "duration", time.Since(start), "attempt", attempt)

			return writeAtomic(dest, body)
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, attempts, err)
		f.log.Warn("Download failed", "url", url, "attempt", attempt, "error", err)

		if !retry || ctx.Err() != nil {
			break
		}
	}

	return lastErr
}

// fetch performs one request. The bool reports whether a failure is worth retrying.
func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = f.http.BuildHeaders(nil)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, isRetryableStatus(resp.StatusCode), fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > f.maxBytes {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrTooLarge, f.maxBytes)
	}

	return body, false, nil
}

func writeAtomic(dest string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := dest + ".part"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	return nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusBadGateway,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout:
		return true
	}

	return false
}
