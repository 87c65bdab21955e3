// Package fetch orchestrates the artifact pipeline: download with
// retry, digest verification, optional detached-signature
// verification, and optional extraction into a destination root.
//
// The manager owns nothing global. The HTTP client is injected and
// shared across all operations; the progress sink and logger default
// to no-ops, and every operation behaves identically without them.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/download"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/extract"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/gpg"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/platform"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/progress"
)

// Config holds configuration for the fetch manager.
type Config struct {
	// Client is the shared HTTP client. Required: the pipeline never
	// constructs a hidden global client.
	Client *http.Client
	// Retry overrides the default retry policy when non-nil.
	Retry *download.RetryPolicy
	// Sink receives progress events. Optional.
	Sink progress.Sink
	// Logger receives structured log output. Optional.
	Logger progress.Logger
	// Platform enables {os}/{arch} URL template expansion when set.
	Platform *platform.Info
}

// Manager orchestrates artifact download, verification, and extraction.
type Manager struct {
	downloader *download.Downloader
	extractor  *extract.Extractor
	platform   *platform.Info
	logger     progress.Logger
}

// NewManager creates a new fetch manager.
func NewManager(config Config) (*Manager, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("Client is required")
	}
	if config.Sink == nil {
		config.Sink = progress.NopSink{}
	}
	if config.Logger == nil {
		config.Logger = progress.NopLogger()
	}

	downloadOpts := []download.Option{
		download.WithSink(config.Sink),
		download.WithLogger(config.Logger),
	}
	if config.Retry != nil {
		downloadOpts = append(downloadOpts, download.WithRetryPolicy(*config.Retry))
	}

	return &Manager{
		downloader: download.NewDownloader(config.Client, downloadOpts...),
		extractor:  extract.NewExtractor(extract.WithSink(config.Sink), extract.WithLogger(config.Logger)),
		platform:   config.Platform,
		logger:     config.Logger,
	}, nil
}

// Request describes one artifact to fetch.
type Request struct {
	// URL is the artifact source. May contain {os}/{arch} placeholders
	// when the manager was configured with platform info.
	URL string
	// Dest is the local path the artifact is written to.
	Dest string
	// SHA1 is the expected 40-hex digest. Empty skips verification.
	SHA1 string
	// SignatureURL points at a detached signature for the artifact.
	// Requires KeyringPath.
	SignatureURL string
	// KeyringPath is the public keyring the signature is checked against.
	KeyringPath string
	// Extract unpacks the artifact after verification.
	Extract bool
	// ExtractTo is the destination root for extraction. Required when
	// Extract is set.
	ExtractTo string
	// Format names the archive format explicitly ("zip", "tar",
	// "tar.gz"). Empty resolves from the Dest extension.
	Format string
}

// Result describes a completed fetch.
type Result struct {
	Path        string
	Bytes       int64
	Verified    bool
	Signed      bool
	ExtractedTo string
}

// Fetch downloads, verifies, and optionally extracts one artifact.
// Failures surface the pipeline's structured errors unchanged, so
// callers can branch on download.NetworkError, download.VerificationFailed,
// extract.PathTraversalError, and friends.
func (m *Manager) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	url := req.URL
	if m.platform != nil {
		url = platform.ExpandURL(url, m.platform)
	}

	downloaded, err := m.downloader.Acquire(ctx, url, req.Dest, req.SHA1)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:     downloaded.Path,
		Bytes:    downloaded.Bytes,
		Verified: req.SHA1 != "",
	}

	if req.SignatureURL != "" {
		if err := m.verifySignature(ctx, &req); err != nil {
			return nil, err
		}
		result.Signed = true
	}

	if req.Extract {
		format, err := resolveFormat(&req)
		if err != nil {
			return nil, err
		}
		if err := m.extractor.Extract(ctx, req.Dest, req.ExtractTo, format); err != nil {
			return nil, err
		}
		result.ExtractedTo = req.ExtractTo
	}

	return result, nil
}

// verifySignature downloads the detached signature next to the
// artifact and checks it. An artifact that fails authentication is
// deleted along with its signature; nothing unverified stays behind.
func (m *Manager) verifySignature(ctx context.Context, req *Request) error {
	sigURL := req.SignatureURL
	if m.platform != nil {
		sigURL = platform.ExpandURL(sigURL, m.platform)
	}

	sigPath := req.Dest + ".sig"
	if _, err := m.downloader.Acquire(ctx, sigURL, sigPath, ""); err != nil {
		return fmt.Errorf("download signature: %w", err)
	}

	verifier := gpg.NewVerifier(req.KeyringPath)
	if err := verifier.VerifyDetached(req.Dest, sigPath); err != nil {
		if rmErr := os.Remove(req.Dest); rmErr != nil {
			m.logger.Error("failed to remove unauthenticated artifact", "path", req.Dest, "error", rmErr)
		}
		os.Remove(sigPath)
		return err
	}

	return nil
}

func validateRequest(req *Request) error {
	if req.URL == "" {
		return fmt.Errorf("URL is required")
	}
	if req.Dest == "" {
		return fmt.Errorf("Dest is required")
	}
	if req.SignatureURL != "" && req.KeyringPath == "" {
		return fmt.Errorf("KeyringPath is required when SignatureURL is set")
	}
	if req.Extract && req.ExtractTo == "" {
		return fmt.Errorf("ExtractTo is required when Extract is set")
	}
	return nil
}

func resolveFormat(req *Request) (extract.Format, error) {
	if req.Format != "" {
		return extract.ParseFormat(req.Format)
	}
	return extract.DetectFormat(req.Dest)
}
