package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/estateforge/prospect-engine/internal/observability"
)

var (
	// ErrUnsafeURL rejects URLs that resolve to private or loopback
	// addresses before any connection is attempted.
	ErrUnsafeURL = errors.New("fetch: URL resolves to a private or loopback address")

	// ErrNotPDF rejects documents whose first bytes are not the PDF magic.
	ErrNotPDF = errors.New("fetch: document is not a PDF")

	// ErrTooLarge rejects documents above the configured size ceiling.
	ErrTooLarge = errors.New("fetch: document exceeds size limit")
)

var pdfMagic = []byte("%PDF")

// FetchResult is the fetched document plus its content hash.
type FetchResult struct {
	Data   []byte
	SHA256 string
}

// Fetcher downloads source PDFs from caller-supplied URLs. Because those
// URLs are user-influenced, every hostname is resolved and checked against
// loopback and RFC1918 ranges before fetching.
type Fetcher struct {
	client   *http.Client
	resolver *net.Resolver
	maxBytes int64
	logger   *observability.Logger
}

// NewFetcher creates a document fetcher with the given size ceiling.
func NewFetcher(maxBytes int64, logger *observability.Logger) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 60 * time.Second},
		resolver: net.DefaultResolver,
		maxBytes: maxBytes,
		logger:   logger.WithStage("fetch"),
	}
}

// ValidateURL checks scheme and destination before any request is made.
func (f *Fetcher) ValidateURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("fetch: parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("fetch: URL has no host")
	}
	if isLocalHostname(host) {
		return ErrUnsafeURL
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrUnsafeURL
		}
		return nil
	}

	addrs, err := f.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("fetch: resolve %q: %w", host, err)
	}
	for _, addr := range addrs {
		if isPrivateIP(addr.IP) {
			return ErrUnsafeURL
		}
	}
	return nil
}

// Fetch validates, downloads and signature-checks the document.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := f.ValidateURL(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	// Read one byte past the limit so an oversized body is detectable.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrNotPDF
	}

	sum := sha256.Sum256(data)
	f.logger.Info().
		Int("bytes", len(data)).
		Str("url", rawURL).
		Msg("Document fetched")

	return &FetchResult{Data: data, SHA256: hex.EncodeToString(sum[:])}, nil
}

func isLocalHostname(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" || strings.HasSuffix(host, ".localhost")
}

// isPrivateIP covers loopback, RFC1918, link-local and unspecified ranges.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast()
}
