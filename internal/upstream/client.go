// Package upstream performs proxied calls to the backend REST service.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/logger"
	"github.com/blip-health/blipgate/internal/pkg/metrics"
	"github.com/hashicorp/go-retryablehttp"
)

type Options struct {
	BaseURL      string // with trailing slash
	Timeout      time.Duration
	MaxAttempts  int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Transport    http.RoundTripper
}

type attemptsKey struct{}

// Client forwards requests to the upstream, retrying only on HTTP 500.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(opts Options) *Client {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport, Timeout: opts.Timeout}
	rc.Logger = nil
	rc.RetryMax = opts.MaxAttempts - 1
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.CheckRetry = retryOnServerError
	rc.Backoff = retryablehttp.LinearJitterBackoff
	// Hand back the last response instead of a "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		metrics.UpstreamAttempts.WithLabelValues(resp.Request.Method, strconv.Itoa(resp.StatusCode)).Inc()
	}
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if n, ok := req.Context().Value(attemptsKey{}).(*atomic.Int32); ok {
			n.Add(1)
		}
		if attempt > 0 {
			logger.Warn("retrying upstream call", "method", req.Method, "path", req.URL.Path, "attempt", attempt+1)
		}
	}

	return &Client{baseURL: opts.BaseURL, http: rc}
}

// retryOnServerError retries exactly HTTP 500. Transport errors and every
// other status, including other 5xx codes, end the attempt loop.
func retryOnServerError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusInternalServerError, nil
}

// Forward performs req against the upstream and returns the fully buffered
// response. A non-nil error means no HTTP response was obtained at all.
func (c *Client) Forward(ctx context.Context, req model.UpstreamRequest) (*model.UpstreamResponse, error) {
	target := c.baseURL + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body any
	if req.Body != nil {
		body = req.Body
	}
	out, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	CopyRequestHeaders(out.Header, req.Header)
	// The body is relayed after we strip Content-Encoding, so it must arrive decoded.
	out.Header.Set("Accept-Encoding", "identity")

	attempts := new(atomic.Int32)
	out = out.WithContext(context.WithValue(ctx, attemptsKey{}, attempts))
	resp, err := c.http.Do(out)
	if err != nil {
		return nil, fmt.Errorf("upstream %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     SanitizeResponseHeaders(resp.Header),
		Body:       data,
		Attempts:   int(attempts.Load()),
	}, nil
}
