package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hack-pad/hackpadfs"
)

// DefaultMaxBytes bounds a single download when HTTPSource.MaxBytes is zero.
const DefaultMaxBytes = 512 << 20

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:109.0) Gecko/20100101 Firefox/115.0"

// HTTPSource downloads remote assets. When Cache is set, bodies are stored there under a name
// derived from the URL and served from it on later reads.
type HTTPSource struct {
	Client    *http.Client
	UserAgent string
	Cache     hackpadfs.FS
	// MaxBytes is the largest body accepted; DefaultMaxBytes when zero.
	MaxBytes int64
}

// NewHTTPSource returns an HTTPSource with a client timing out after timeout (60s when zero).
func NewHTTPSource(timeout time.Duration, cache hackpadfs.FS) *HTTPSource {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPSource{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
		Cache:     cache,
	}
}

func (s *HTTPSource) Read(ctx context.Context, url string) ([]byte, error) {
	name := cacheName(url)
	if s.Cache != nil {
		if data, err := hackpadfs.ReadFile(s.Cache, name); err == nil {
			return data, nil
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	ua := s.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %s is %s", ErrTooLarge, url, humanize.IBytes(uint64(resp.ContentLength)))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, url, humanize.IBytes(uint64(limit)))
	}
	if s.Cache != nil {
		// A cache write failure only costs a download next time.
		_ = hackpadfs.WriteFullFile(s.Cache, name, data, 0644)
	}
	return data, nil
}

// cacheName is the sanitized URL base name prefixed with a short hash of the full URL, keeping
// the extension so decoders can still pick a format from it.
func cacheName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:6]) + "_" + sanitizeFilename(filenameFromURL(url)) + extensionFromURL(url)
}

func extensionFromURL(url string) string {
	path := url
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	return strings.ToLower(filepath.Ext(path))
}

func filenameFromURL(url string) string {
	path := url
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func sanitizeFilename(name string) string {
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	name = safeNameRe.ReplaceAllString(name, "_")
	if len(name) > 96 {
		name = name[:96]
	}
	return name
}
