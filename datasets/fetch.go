package datasets

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Fetcher retrieves a dataset resource by URL or path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Default timeouts for the HTTP fetcher. The overall request has no timeout:
// the atlas is large and callers bound the wait through the context.
const (
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// HTTPFetcher downloads resources over HTTP(S). Local paths and file:// URLs
// are read straight from disk.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with dial and TLS timeouts set.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   DefaultConnectTimeout,
					KeepAlive: DefaultKeepAlive,
				}).DialContext,
				MaxIdleConns:          10,
				IdleConnTimeout:       DefaultIdleConnTimeout,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if path, ok := localPath(url); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(ErrResourceUnavailable, "read %s: %v", path, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceUnavailable, "build request for %s: %v", url, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceUnavailable, "GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrResourceUnavailable, "GET %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceUnavailable, "read body of %s: %v", url, err)
	}
	klog.V(1).Infof("fetched %s (%s) in %s", url, humanize.Bytes(uint64(len(data))), time.Since(start).Round(time.Millisecond))
	return data, nil
}

// CachingFetcher keeps fetched resources in Dir and serves later requests
// for the same URL from disk.
type CachingFetcher struct {
	Dir  string
	Next Fetcher
}

// Fetch implements Fetcher.
func (c *CachingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if _, ok := localPath(url); ok {
		return c.Next.Fetch(ctx, url)
	}
	path := filepath.Join(c.Dir, cacheFileName(url))
	if data, err := os.ReadFile(path); err == nil {
		klog.V(1).Infof("using cached %s (%s)", path, humanize.Bytes(uint64(len(data))))
		return data, nil
	}

	data, err := c.Next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		// The data is good, only the cache is unusable.
		klog.Warningf("failed to cache %s: %v", url, err)
	}
	return data, nil
}
