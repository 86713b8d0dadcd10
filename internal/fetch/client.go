// Package fetch retrieves raw provider data over HTTP and keeps it in an
// on-disk cache that is reused until a refresh is requested.
package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// DefaultCacheDir is used when no cache directory is configured.
const DefaultCacheDir = "~/.cache/oerbservatory"

// DownloadError wraps a failed retrieval of URL.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Config configures a Client.
type Config struct {
	CacheDir   string
	Refresh    bool
	HTTPClient *http.Client
	Retry      RetryConfig
	UserAgent  string
}

// Client performs HTTP requests with retries and caches downloads on disk.
type Client struct {
	config Config
}

// New creates a client. A leading ~ in the cache directory is expanded to
// the user's home directory.
func New(config Config) *Client {
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}
	if strings.HasPrefix(config.CacheDir, "~") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			config.CacheDir = filepath.Join(homeDir, config.CacheDir[1:])
		}
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.UserAgent == "" {
		config.UserAgent = "oerbservatory"
	}
	return &Client{config: config}
}

// WithRefresh returns a copy of c that ignores cached files when refresh is set.
func (c *Client) WithRefresh(refresh bool) *Client {
	cfg := c.config
	cfg.Refresh = refresh
	return &Client{config: cfg}
}

// Refresh reports whether cached files are ignored.
func (c *Client) Refresh() bool {
	return c.config.Refresh
}

// CachePath joins parts below the cache directory.
func (c *Client) CachePath(parts ...string) string {
	return filepath.Join(append([]string{c.config.CacheDir}, parts...)...)
}

// Get fetches rawURL and returns the body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := doWithRetry(ctx, c.config.HTTPClient, c.requestBuilder(http.MethodGet, rawURL, nil, ""), c.config.Retry)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	r, err := decodeBody(resp)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	return body, nil
}

// GetJSON fetches rawURL and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse JSON from %s: %w body=%s", rawURL, err, snippet(body, 300))
	}
	return nil
}

// Ensure returns the cached copy of rawURL, downloading it first when it is
// missing or a refresh was requested. name is the path below the cache
// directory; when empty it is derived from the URL.
func (c *Client) Ensure(ctx context.Context, rawURL, name string) (string, error) {
	return c.ensure(ctx, http.MethodGet, rawURL, nil, name)
}

// EnsurePost is Ensure for a JSON POST request, used by search endpoints that
// take their query in the body.
func (c *Client) EnsurePost(ctx context.Context, rawURL string, payload any, name string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.ensure(ctx, http.MethodPost, rawURL, body, name)
}

func (c *Client) ensure(ctx context.Context, method, rawURL string, body []byte, name string) (string, error) {
	if name == "" {
		name = cacheName(rawURL, body)
	}
	cachedPath := c.CachePath(name)

	if !c.config.Refresh {
		if _, err := os.Stat(cachedPath); err == nil {
			slog.Debug("Using cached file", "path", cachedPath)
			return cachedPath, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(cachedPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	slog.Info("Downloading", "url", rawURL, "path", cachedPath)
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	if err := c.download(ctx, c.requestBuilder(method, rawURL, body, contentType), cachedPath); err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	return cachedPath, nil
}

// download streams the response into destPath through a temporary file so a
// failed transfer never leaves a partial cache entry behind.
func (c *Client) download(ctx context.Context, build func(context.Context) (*http.Request, error), destPath string) error {
	resp, err := doWithRetry(ctx, c.config.HTTPClient, build, c.config.Retry)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	r, err := decodeBody(resp)
	if err != nil {
		return err
	}
	defer r.Close()

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, r)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	slog.Debug("Download finished", "path", destPath, "size_mb", written/(1024*1024))
	return nil
}

func (c *Client) requestBuilder(method, rawURL string, body []byte, contentType string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json, */*;q=0.5")
		req.Header.Set("Accept-Encoding", acceptEncoding)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return req, nil
	}
}

// cacheName derives a stable file name from a URL and optional request body.
func cacheName(rawURL string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	h.Write(body)
	sum := hex.EncodeToString(h.Sum(nil))[:16]

	base := "download"
	if u, err := url.Parse(rawURL); err == nil {
		if b := filepath.Base(u.Path); b != "" && b != "/" && b != "." {
			base = b
		}
	}
	return sum + "-" + base
}

// ReadJSON decodes a cached JSON file.
func ReadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// OpenGzip opens a gzip-compressed file for streaming reads.
func OpenGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	return gzipFile{Reader: zr, f: f}, nil
}
