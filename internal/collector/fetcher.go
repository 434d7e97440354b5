package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bridgepool/bridgepool/internal/version"
	"github.com/dustin/go-humanize"
	"github.com/imroc/req/v3"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 5
	DefaultRetryBackoff  = 100 * time.Millisecond
)

type fetcherConfig struct {
	indexPath string
	latest    int
	attempts  int
	backoff   time.Duration
	timeout   time.Duration
}

// FetcherOption configures a Fetcher
type FetcherOption func(*fetcherConfig)

// WithLatest sets how many of the most recent files are fetched
func WithLatest(n int) FetcherOption {
	return func(c *fetcherConfig) {
		c.latest = n
	}
}

// WithRetry sets the total number of attempts per file and the first backoff delay.
// Delays double after every failed attempt.
func WithRetry(attempts int, initial time.Duration) FetcherOption {
	return func(c *fetcherConfig) {
		c.attempts = attempts
		c.backoff = initial
	}
}

// WithIndexPath overrides the index document location relative to the base url
func WithIndexPath(p string) FetcherOption {
	return func(c *fetcherConfig) {
		c.indexPath = p
	}
}

// WithTimeout sets the timeout of a single request
func WithTimeout(d time.Duration) FetcherOption {
	return func(c *fetcherConfig) {
		c.timeout = d
	}
}

// Fetcher downloads the latest reports listed in a remote directory index.
type Fetcher struct {
	baseURL     string
	config      *fetcherConfig
	indexClient *req.Client
	fileClient  *req.Client
}

func NewFetcher(baseURL string, opts ...FetcherOption) *Fetcher {
	cfg := &fetcherConfig{
		indexPath: DefaultIndexPath,
		latest:    DefaultLatest,
		attempts:  DefaultRetryAttempts,
		backoff:   DefaultRetryBackoff,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.attempts < 1 {
		cfg.attempts = 1
	}

	userAgent := version.UserAgent()

	// the index fetch is deliberately not retried
	indexClient := req.C().
		SetTimeout(cfg.timeout).
		SetUserAgent(userAgent).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	fileClient := req.C().
		SetTimeout(cfg.timeout).
		SetUserAgent(userAgent).
		SetCommonRetryCount(cfg.attempts - 1).
		SetCommonRetryInterval(exponentialBackoff(cfg.backoff)).
		SetCommonRetryCondition(shouldRetry).
		AddCommonRetryHook(func(resp *req.Response, err error) {
			slog.Warn("fetch retry", "url", requestURL(resp), "status", statusOf(resp), "error", err)
		})

	return &Fetcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		config:      cfg,
		indexClient: indexClient,
		fileClient:  fileClient,
	}
}

// FetchIndex downloads and decodes the index document.
func (f *Fetcher) FetchIndex(ctx context.Context) (*Index, error) {
	url := f.baseURL + "/" + strings.TrimLeft(f.config.indexPath, "/")

	resp, err := f.indexClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: index %q: %w", ErrTransport, url, err)
	}
	if !resp.IsSuccessState() {
		return nil, &StatusError{URL: url, Code: resp.GetStatusCode()}
	}

	return ParseIndex(resp.Bytes())
}

// FetchLatest resolves the newest files under target and downloads them in
// newest-first order. Any file failing after its retries aborts the whole batch.
func (f *Fetcher) FetchLatest(ctx context.Context, target string) ([]*RawFile, error) {
	idx, err := f.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := ResolveLatest(idx, target, f.config.latest)
	if err != nil {
		return nil, err
	}
	slog.Info("index resolved", "target", target, "files", len(entries))

	files := make([]*RawFile, 0, len(entries))
	for _, entry := range entries {
		raw, err := f.FetchFile(ctx, entry.Path)
		if err != nil {
			return nil, err
		}
		files = append(files, &RawFile{
			Path:         entry.Path,
			Raw:          raw,
			Content:      string(raw),
			LastModified: entry.LastModified,
		})
	}

	return files, nil
}

// FetchFile downloads a single file relative to the base url with retries.
func (f *Fetcher) FetchFile(ctx context.Context, relPath string) ([]byte, error) {
	url := f.baseURL + "/" + strings.TrimLeft(relPath, "/")

	resp, err := f.fileClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrTransport, url, err)
	}
	if !resp.IsSuccessState() {
		return nil, &StatusError{URL: url, Code: resp.GetStatusCode()}
	}

	raw := resp.Bytes()
	slog.Debug("fetched", "path", relPath, "size", humanize.Bytes(uint64(len(raw))))
	return raw, nil
}

func exponentialBackoff(initial time.Duration) req.GetRetryIntervalFunc {
	return func(_ *req.Response, attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		shift := min(attempt-1, 16)
		return initial << shift
	}
}

// shouldRetry retries transport errors, rate limiting and server errors.
// A cancelled or expired context is final.
func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	code := statusOf(resp)
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func requestURL(resp *req.Response) string {
	if resp == nil || resp.Request == nil || resp.Request.RawURL == "" {
		return ""
	}
	return resp.Request.RawURL
}

func statusOf(resp *req.Response) int {
	if resp == nil {
		return 0
	}
	return resp.GetStatusCode()
}
