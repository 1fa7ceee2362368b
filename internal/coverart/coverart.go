package coverart

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"
)

const (
	defaultFetchTimeout = 8 * time.Second
	maxImageBytes       = 16 << 20
)

// Hash is a 64-bit perceptual hash of an image.
type Hash struct {
	ph *goimagehash.ImageHash
}

// FromImage hashes a decoded image.
func FromImage(img image.Image) (*Hash, error) {
	ph, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("perception hash: %w", err)
	}
	return &Hash{ph: ph}, nil
}

// Distance returns the Hamming distance between two hashes. The boolean is
// false when either hash is missing or the pair cannot be compared.
func Distance(a, b *Hash) (int, bool) {
	if a == nil || b == nil || a.ph == nil || b.ph == nil {
		return 0, false
	}
	dist, err := a.ph.Distance(b.ph)
	if err != nil {
		return 0, false
	}
	return dist, true
}

func (h *Hash) String() string {
	if h == nil || h.ph == nil {
		return ""
	}
	return h.ph.ToString()
}

// Source fetches remote artwork and turns it into perceptual hashes.
// Lookups are best effort: malformed URLs, slow hosts, and undecodable
// payloads all yield a nil hash rather than an error.
type Source struct {
	client *http.Client
}

// Option customizes a Source.
type Option func(*Source)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// NewSource builds a Source whose fetches give up after timeout.
func NewSource(timeout time.Duration, opts ...Option) *Source {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	src := &Source{client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(src)
	}
	return src
}

// Fetch downloads the image at rawURL and returns the raw bytes with a
// sniffed MIME type. Unlike FromURL, callers see the failure.
func (s *Source) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, "", fmt.Errorf("cover art: empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("cover art: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("cover art: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover art: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("cover art: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("cover art: empty response body")
	}
	return data, http.DetectContentType(data), nil
}

// FromURL downloads the image at rawURL and hashes it. Any failure along
// the way (network, HTTP status, decode) yields nil.
func (s *Source) FromURL(ctx context.Context, rawURL string) *Hash {
	data, _, err := s.Fetch(ctx, rawURL)
	if err != nil {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	hash, err := FromImage(img)
	if err != nil {
		return nil
	}
	return hash
}
