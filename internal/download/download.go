// Package download streams remote artifacts to disk with bounded retry
// and optional post-download digest verification.
//
// The HTTP client is injected and shared: it is a long-lived, pooled,
// thread-safe handle with process lifetime, never a hidden global. Any
// number of Acquire calls may run concurrently against one Downloader.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/digest"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/progress"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "fetchkit/1.0"
	// copyChunk is the fixed chunk size used when streaming a response
	// body to disk. The full payload is never buffered in memory.
	copyChunk = 32 * 1024
)

// Result describes a completed download. When a digest was supplied to
// Acquire, the file at Path is guaranteed to match it.
type Result struct {
	Path  string
	Bytes int64
}

// ProgressFunc receives coarse byte progress while a download is in
// flight. total is -1 when the response did not declare a length.
type ProgressFunc func(current, total int64)

// Downloader handles HTTP downloads with retry logic
type Downloader struct {
	client     *http.Client
	policy     RetryPolicy
	userAgent  string
	onProgress ProgressFunc
	sink       progress.Sink
	logger     progress.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRetryPolicy overrides the default retry schedule.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Downloader) { d.policy = p }
}

// WithProgressFunc installs a byte-progress callback.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(d *Downloader) { d.onProgress = fn }
}

// WithSink installs a progress sink receiving DownloadProgress events.
func WithSink(s progress.Sink) Option {
	return func(d *Downloader) { d.sink = s }
}

// WithLogger installs a structured logger.
func WithLogger(l progress.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) { d.userAgent = ua }
}

// NewClient builds the shared HTTP client. Callers should construct one
// per process and inject it into every Downloader.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Allow up to 10 redirects
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// NewDownloader creates a new downloader around a shared client.
// A nil client gets a private one from NewClient.
func NewDownloader(client *http.Client, opts ...Option) *Downloader {
	if client == nil {
		client = NewClient()
	}
	d := &Downloader{
		client:    client,
		policy:    DefaultRetryPolicy(),
		userAgent: DefaultUserAgent,
		sink:      progress.NopSink{},
		logger:    progress.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Acquire downloads url to destPath, creating parent directories as
// needed. Transient transport and response failures are retried per the
// policy; each retry restarts the request from scratch.
//
// When expected is non-empty it names the artifact's 40-hex digest; a
// mismatch deletes the file and returns VerificationFailed. With an
// empty expected the file is returned as soon as the write completes.
func (d *Downloader) Acquire(ctx context.Context, url, destPath, expected string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, &IOError{Op: "create dest dir", Path: filepath.Dir(destPath), Err: err}
	}

	attempts := 0
	operation := func() (int64, error) {
		attempts++
		n, err := d.downloadOnce(ctx, url, destPath)
		if err != nil {
			d.logger.Warn("download attempt failed", "url", url, "attempt", attempts, "error", err)
		}
		return n, err
	}

	written, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(d.policy.newBackOff()),
		backoff.WithMaxTries(d.policy.MaxAttempts))
	if err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			return nil, ioErr
		}
		return nil, &NetworkError{URL: url, Attempts: attempts, Err: err}
	}

	if expected != "" {
		if err := d.verifyDownload(url, destPath, expected); err != nil {
			return nil, err
		}
	}

	d.logger.Debug("download complete", "url", url, "path", destPath, "bytes", written)
	return &Result{Path: destPath, Bytes: written}, nil
}

// verifyDownload checks the downloaded file against the expected digest
// and deletes it on mismatch, so no success path can leave corrupt data.
func (d *Downloader) verifyDownload(url, destPath, expected string) error {
	err := digest.VerifyStrict(destPath, expected)
	if err == nil {
		return nil
	}

	var mismatch *digest.MismatchError
	if errors.As(err, &mismatch) {
		if rmErr := os.Remove(destPath); rmErr != nil {
			d.logger.Error("failed to remove unverified file", "path", destPath, "error", rmErr)
		}
		return &VerificationFailed{URL: url, Expected: mismatch.Expected, Actual: mismatch.Actual}
	}

	return &IOError{Op: "verify", Path: destPath, Err: err}
}

// downloadOnce performs a single download attempt. Local filesystem
// faults are wrapped with backoff.Permanent so they are never retried;
// everything else is considered transient unless the response status
// says otherwise.
func (d *Downloader) downloadOnce(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if !retryableStatus(resp.StatusCode) {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}

	// Stream to a temp file, then rename into place
	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, backoff.Permanent(&IOError{Op: "create temp file", Path: tmpPath, Err: err})
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	written, err := d.copyBody(tmpFile, resp.Body, resp.ContentLength)
	if err != nil {
		return 0, err
	}

	if err := tmpFile.Close(); err != nil {
		return 0, backoff.Permanent(&IOError{Op: "close temp file", Path: tmpPath, Err: err})
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, backoff.Permanent(&IOError{Op: "rename temp file", Path: tmpPath, Err: err})
	}

	cleanupNeeded = false
	return written, nil
}

// copyBody streams the response body to disk in fixed-size chunks,
// emitting byte progress after each chunk.
func (d *Downloader) copyBody(dst *os.File, body io.Reader, total int64) (int64, error) {
	buf := make([]byte, copyChunk)
	var written int64

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, backoff.Permanent(&IOError{Op: "write", Path: dst.Name(), Err: writeErr})
			}
			written += int64(n)
			d.emitProgress(written, total)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			// Body read faults are transport-level and retryable
			return written, fmt.Errorf("read response body: %w", readErr)
		}
	}
}

func (d *Downloader) emitProgress(current, total int64) {
	if d.onProgress != nil {
		d.onProgress(current, total)
	}
	d.sink.Publish(progress.DownloadProgress{Current: current, Total: total})
}

// retryableStatus reports whether a non-200 response is worth retrying.
func retryableStatus(code int) bool {
	switch {
	case code >= 500:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
