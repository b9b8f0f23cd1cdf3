// Package linkcheck verifies that the remote links of references resolve.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ali-ramadhan/citekit/internal/logging"
	"github.com/ali-ramadhan/citekit/internal/reference"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultRate is the number of requests per second across all workers.
	DefaultRate = 2.0

	// DefaultConcurrency is the number of links checked at once.
	DefaultConcurrency = 4

	// DefaultUserAgent identifies the checker to remote hosts.
	DefaultUserAgent = "citekit-linkcheck/1.0"

	// DOIResolver prefixes bare DOIs.
	DOIResolver = "https://doi.org/"
)

// Link is one remote link of a reference.
type Link struct {
	Key  string `json:"key"`
	Kind string `json:"kind"` // doi, url, pdf or source
	URL  string `json:"url"`
}

// Result is the outcome of checking one link.
type Result struct {
	Link
	StatusCode int    `json:"status_code,omitempty"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// Checker is a rate-limited HTTP link checker.
type Checker struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	userAgent   string
	concurrency int
	logger      *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) {
		c.httpClient = hc
	}
}

// WithRate sets the request rate in requests per second.
func WithRate(rps float64) Option {
	return func(c *Checker) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithConcurrency sets how many links are checked at once.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger for per-link debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) {
		c.logger = logging.OrNop(l)
	}
}

// NewChecker creates a link checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRate), 1),
		userAgent:   DefaultUserAgent,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LinksFor lists the remote links of a reference in rendering order.
// Bare DOIs are expanded through the DOI resolver; local PDF paths are
// skipped.
func LinksFor(key string, ref reference.Reference) []Link {
	l := ref.Base().Links
	var links []Link
	if l.DOI != "" {
		u := l.DOI
		if !isRemote(u) {
			u = DOIResolver + strings.TrimPrefix(strings.TrimPrefix(u, "doi:"), "DOI:")
		}
		links = append(links, Link{Key: key, Kind: "doi", URL: u})
	}
	for _, c := range []struct{ kind, url string }{
		{"url", l.URL},
		{"pdf", l.PDF},
		{"source", l.Source},
	} {
		if isRemote(c.url) {
			links = append(links, Link{Key: key, Kind: c.kind, URL: c.url})
		}
	}
	return links
}

func isRemote(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Check checks every link, at most the configured number at a time, and
// returns results in input order. Only cancellation of ctx is an error;
// failing links are reported in their Result.
func (c *Checker) Check(ctx context.Context, links []Link) ([]Result, error) {
	results := make([]Result, len(links))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, link := range links {
		g.Go(func() error {
			res, err := c.CheckOne(ctx, link)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CheckOne sends a HEAD request for link, falling back to GET when the
// server rejects HEAD. The returned error is non-nil only when ctx ends.
func (c *Checker) CheckOne(ctx context.Context, link Link) (Result, error) {
	res := Result{Link: link}

	status, err := c.request(ctx, http.MethodHead, link.URL)
	if err == nil && headUnsupported(status) {
		status, err = c.request(ctx, http.MethodGet, link.URL)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	res.StatusCode = status
	if err != nil {
		res.Error = err.Error()
		c.logger.Debug("link check failed", zap.String("key", link.Key), zap.String("url", link.URL), zap.Error(err))
		return res, nil
	}
	res.OK = true
	return res, nil
}

func headUnsupported(status int) bool {
	switch status {
	case http.StatusMethodNotAllowed, http.StatusNotImplemented, http.StatusForbidden:
		return true
	}
	return false
}

// request returns the final status code. Error statuses are returned both
// as the code and as a *StatusError.
func (c *Checker) request(ctx context.Context, method, url string) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if err := checkStatus(resp, url); err != nil {
		var se *StatusError
		if errors.As(err, &se) && headUnsupported(se.StatusCode) && method == http.MethodHead {
			return se.StatusCode, nil
		}
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}
