// Package fetch retrieves remote documents for the collectors.
//
// Every download goes through one shared rate limiter so a repeating
// schedule cannot hammer the remote server, and every successful download is
// written to an on-disk cache keyed by the SHA-1 of the URL. The use-cache
// flag only controls whether an existing cache entry is read back instead of
// hitting the network.
package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"nhlstats/pkg/logx"
)

// maxBodyBytes caps a single response; the largest NHL documents
// (play-by-play) are well under 4 MiB.
const maxBodyBytes = 8 << 20

type Options struct {
	CacheDir   string
	Timeout    time.Duration
	RatePerSec float64
	UserAgent  string
}

type Fetcher struct {
	client    *http.Client
	cacheDir  string
	userAgent string
	log       logx.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
}

func New(opts Options, log logx.Logger) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	f := &Fetcher{
		client:    &http.Client{Timeout: timeout},
		cacheDir:  opts.CacheDir,
		userAgent: opts.UserAgent,
		log:       log,
	}
	f.SetRate(opts.RatePerSec)
	return f
}

// SetRate replaces the request rate limit. Zero or negative disables
// limiting. Safe to call while fetches are in flight (config reload).
func (f *Fetcher) SetRate(perSec float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if perSec <= 0 {
		f.limiter = nil
		return
	}
	f.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
}

func (f *Fetcher) currentLimiter() *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limiter
}

// Get returns the body at url. With useCache set, a cached copy is returned
// without touching the network; otherwise the document is downloaded and the
// cache is refreshed.
func (f *Fetcher) Get(ctx context.Context, url string, useCache bool) ([]byte, error) {
	path := f.cachePath(url)

	if useCache {
		b, err := os.ReadFile(path)
		if err == nil {
			f.log.Debug("cache hit", logx.String("url", url), logx.String("file", path))
			return b, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read cache %s: %w", path, err)
		}
		f.log.Debug("cache miss; downloading", logx.String("url", url))
	}

	b, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := f.storeCache(path, b); err != nil {
		// A failed cache write is not a failed collection.
		f.log.Warn("cache write failed", logx.String("file", path), logx.Err(err))
	}
	return b, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	if lim := f.currentLimiter(); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("get %s: body exceeds %d bytes", url, maxBodyBytes)
	}
	return b, nil
}

func (f *Fetcher) cachePath(url string) string {
	sum := sha1.Sum([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:])+".json")
}

func (f *Fetcher) storeCache(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

// Prune removes cache entries older than maxAge and reports how many files
// were deleted.
func (f *Fetcher) Prune(maxAge time.Duration) (int, error) {
	if f.cacheDir == "" || maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(f.cacheDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(f.cacheDir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
