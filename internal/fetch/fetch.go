// Package fetch resolves track locators to bytes. It understands http, https,
// file URLs and bare filesystem paths, caches results for a TTL and collapses
// concurrent fetches of the same locator into one request.
package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/observability/metrics"
)

const (
	// DefaultTimeout bounds one uncached fetch.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxBytes is the largest accepted track.
	DefaultMaxBytes = 64 << 20

	defaultUserAgent = "soundtrack/1.0"

	defaultMaxIdleConns        = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialTimeout         = 15 * time.Second
	defaultDialKeepAlive       = 30 * time.Second

	componentName = "fetch"
)

// Schemes reported in metrics and errors.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeFile  = "file"
)

// Config holds fetcher settings. Zero values take defaults; a zero CacheTTL
// disables caching and a zero RateLimit disables rate limiting.
type Config struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	RateLimit float64
	Burst     int
	MaxBytes  int64
	UserAgent string
}

// Fetcher downloads and caches track bytes. Safe for concurrent use.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	cache   *cache.Cache
	group   singleflight.Group
	limiter *rate.Limiter
	metrics *metrics.FetchMetrics
	log     logger.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithMetrics records cache and fetch metrics.
func WithMetrics(m *metrics.FetchMetrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		f.log = l
	}
}

// New creates a Fetcher.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	f := &Fetcher{cfg: cfg}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = newHTTPClient()
	}
	if f.log == nil {
		f.log = logger.Global().Module(componentName)
	}
	if cfg.CacheTTL > 0 {
		f.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return f
}

func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   defaultDialTimeout,
		KeepAlive: defaultDialKeepAlive,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConns:        defaultMaxIdleConns,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
			ForceAttemptHTTP2:   true,
		},
	}
}

// Fetch returns the bytes behind locator. Concurrent callers for the same
// locator share one download. A caller whose ctx ends stops waiting, while the
// shared download runs on to fill the cache.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if f.cache != nil {
		if data, ok := f.cache.Get(locator); ok {
			f.recordCache(true)
			return data.([]byte), nil
		}
		f.recordCache(false)
	}

	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(locator, func() (any, error) {
		data, err := f.fetchUncached(shared, locator)
		if err != nil {
			return nil, err
		}
		if f.cache != nil {
			f.cache.Set(locator, data, cache.DefaultExpiration)
		}
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, errors.New(fmt.Errorf("fetch abandoned: %w", ctx.Err())).
			Component(componentName).
			Category(errors.CategoryCancellation).
			SourceContext(locator).
			Build()
	}
}

// Invalidate drops locator from the cache.
func (f *Fetcher) Invalidate(locator string) {
	if f.cache != nil {
		f.cache.Delete(locator)
	}
}

func (f *Fetcher) fetchUncached(ctx context.Context, locator string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	scheme, target := Classify(locator)
	start := time.Now()

	var data []byte
	var err error
	switch scheme {
	case SchemeHTTP, SchemeHTTPS:
		data, err = f.fetchHTTP(ctx, target)
	case SchemeFile:
		data, err = f.readFile(target)
	default:
		err = errors.Newf("unsupported locator scheme %q", scheme).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}

	elapsed := time.Since(start)
	if f.metrics != nil {
		f.metrics.RecordFetch(scheme, elapsed, len(data), err)
	}
	if err != nil {
		f.log.Warn("fetch failed",
			logger.String("source", errors.ScrubLocator(locator)),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return nil, err
	}

	f.log.Debug("fetched track",
		logger.String("source", errors.ScrubLocator(locator)),
		logger.Int("bytes", len(data)),
		logger.Duration("elapsed", elapsed))
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, target string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.New(fmt.Errorf("rate limit wait: %w", err)).
				Component(componentName).
				Category(errors.CategoryLimit).
				SourceContext(target).
				Build()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryValidation).
			SourceContext(target).
			Build()
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		category := errors.CategoryNetwork
		if ctx.Err() != nil {
			category = errors.CategoryTimeout
		}
		return nil, errors.New(fmt.Errorf("GET failed: %w", err)).
			Component(componentName).
			Category(category).
			SourceContext(target).
			Build()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		category := errors.CategoryHTTP
		if resp.StatusCode == http.StatusNotFound {
			category = errors.CategoryNotFound
		}
		return nil, errors.Newf("unexpected HTTP status %d", resp.StatusCode).
			Component(componentName).
			Category(category).
			Context("status_code", resp.StatusCode).
			SourceContext(target).
			Build()
	}

	if resp.ContentLength > f.cfg.MaxBytes {
		return nil, f.tooLarge(target, resp.ContentLength)
	}
	return f.readLimited(resp.Body, target)
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		category := errors.CategoryFileIO
		if errors.Is(err, fs.ErrNotExist) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component(componentName).
			Category(category).
			SourceContext(path).
			Build()
	}
	defer func() { _ = file.Close() }()

	return f.readLimited(file, path)
}

func (f *Fetcher) readLimited(r io.Reader, locator string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, errors.New(fmt.Errorf("read body: %w", err)).
			Component(componentName).
			Category(errors.CategoryNetwork).
			SourceContext(locator).
			Build()
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, f.tooLarge(locator, int64(len(data)))
	}
	return data, nil
}

func (f *Fetcher) tooLarge(locator string, size int64) error {
	return errors.Newf("track exceeds %d bytes", f.cfg.MaxBytes).
		Component(componentName).
		Category(errors.CategoryLimit).
		Context("size", size).
		SourceContext(locator).
		Build()
}

func (f *Fetcher) recordCache(hit bool) {
	if f.metrics == nil {
		return
	}
	if hit {
		f.metrics.RecordCacheHit()
		return
	}
	f.metrics.RecordCacheMiss()
}

// Classify returns the scheme of locator and the target to open: the URL for
// http and https, the filesystem path for file URLs and bare paths.
func Classify(locator string) (scheme, target string) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || isWindowsDrive(u.Scheme) {
		return SchemeFile, locator
	}
	switch strings.ToLower(u.Scheme) {
	case SchemeHTTP:
		return SchemeHTTP, locator
	case SchemeHTTPS:
		return SchemeHTTPS, locator
	case SchemeFile:
		return SchemeFile, u.Path
	default:
		return strings.ToLower(u.Scheme), locator
	}
}

func isWindowsDrive(scheme string) bool {
	return len(scheme) == 1
}
