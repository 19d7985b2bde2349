// Package fetch performs the outbound HTTP requests of every artscraper
// component. Each call returns an explicit Result carrying either the
// response data or a typed error; nothing is retried.
package fetch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"artscraper/pkg/errors"
	"artscraper/pkg/logger"
)

// DefaultUserAgent is sent when no User-Agent header is configured
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Observer receives one call per completed request
type Observer interface {
	ObserveRequest(method, outcome string, d time.Duration)
}

// Limiter paces requests; Wait blocks until the next request may start
type Limiter interface {
	Wait(ctx context.Context) error
}

// Result is the outcome of a single request
type Result struct {
	URL           string
	StatusCode    int
	Header        http.Header
	Body          []byte
	ContentLength int64
	Duration      time.Duration
	Err           *errors.Error
}

// OK reports whether the request produced a 2xx response that was fully read
func (r *Result) OK() bool {
	return r.Err == nil
}

// Error returns the typed failure, or nil. The return is a plain error so a
// nil *errors.Error never leaks as a non-nil interface.
func (r *Result) Error() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// RequestOption customizes a single request
type RequestOption func(*http.Request)

// WithBasicAuth sets HTTP basic credentials on the request
func WithBasicAuth(username, password string) RequestOption {
	return func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

// WithHeader sets one header on the request
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// Client performs requests with shared headers and one uniform timeout
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
	observer   Observer
	limiter    Limiter
}

// NewClient creates a client whose every request is bounded by timeout
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		logger: log,
	}
}

// SetHTTPClient replaces the underlying http.Client. The timeout of the
// replaced client is carried over when the new one has none.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc.Timeout == 0 {
		hc.Timeout = c.httpClient.Timeout
	}
	c.httpClient = hc
}

// SetObserver attaches a metrics observer
func (c *Client) SetObserver(o Observer) {
	c.observer = o
}

// SetLimiter paces every later request through l
func (c *Client) SetLimiter(l Limiter) {
	c.limiter = l
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// SetHeader sets a custom header for every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// Get fetches rawURL and reads the full body
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) *Result {
	return c.execute(ctx, http.MethodGet, rawURL, nil, opts)
}

// Head issues a HEAD request, following redirects, and reports the
// advertised Content-Length (-1 when absent)
func (c *Client) Head(ctx context.Context, rawURL string, opts ...RequestOption) *Result {
	return c.execute(ctx, http.MethodHead, rawURL, nil, opts)
}

// Download streams the body of a GET into w. Result.ContentLength holds the
// number of bytes copied; Result.Body stays empty.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer, opts ...RequestOption) *Result {
	return c.execute(ctx, http.MethodGet, rawURL, w, opts)
}

// GetJSON fetches rawURL and decodes the body into target
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}, opts ...RequestOption) error {
	opts = append([]RequestOption{WithHeader("Accept", "application/json")}, opts...)
	res := c.Get(ctx, rawURL, opts...)
	if !res.OK() {
		return res.Error()
	}

	if err := json.Unmarshal(res.Body, target); err != nil {
		bodyPreview := string(res.Body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       res.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    res.StatusCode,
			URL:     rawURL,
		}
	}
	return nil
}

func (c *Client) execute(ctx context.Context, method, rawURL string, sink io.Writer, opts []RequestOption) *Result {
	res := &Result{URL: rawURL, ContentLength: -1}

	if err := ValidateURL(rawURL); err != nil {
		res.Err = err
		c.observe(method, res)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		res.Err = &errors.Error{
			Type:    errors.ErrorTypeInvalidURL,
			Message: fmt.Sprintf("failed to create request: %v", err),
			URL:     rawURL,
		}
		c.observe(method, res)
		return res
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for _, opt := range opts {
		opt(req)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			res.Err = classify(ctx, err, rawURL, errors.ErrorTypeCanceled)
			c.observe(method, res)
			return res
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": method,
		"url":    rawURL,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		res.Duration = time.Since(start)
		res.Err = classify(ctx, err, rawURL, errors.ErrorTypeNetwork)
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"url":      rawURL,
			"error":    res.Err.Error(),
			"duration": res.Duration,
		})
		c.observe(method, res)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Header = resp.Header
	res.ContentLength = contentLength(resp)

	if err := checkResponseStatus(resp); err != nil {
		err.URL = rawURL
		res.Err = err
		res.Duration = time.Since(start)
		logger.LogRequest(c.logger, method, rawURL, resp.StatusCode, res.Duration)
		c.observe(method, res)
		return res
	}

	if method != http.MethodHead {
		if sink != nil {
			n, err := io.Copy(sink, resp.Body)
			res.ContentLength = n
			if err != nil {
				res.Err = classify(ctx, err, rawURL, errors.ErrorTypeRead)
			}
		} else {
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				res.Err = classify(ctx, err, rawURL, errors.ErrorTypeRead)
			} else {
				res.Body = body
				res.ContentLength = int64(len(body))
			}
		}
	}

	res.Duration = time.Since(start)
	logger.LogRequest(c.logger, method, rawURL, resp.StatusCode, res.Duration)
	c.observe(method, res)
	return res
}

func (c *Client) observe(method string, res *Result) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	if res.Err != nil {
		outcome = string(res.Err.Type)
	}
	c.observer.ObserveRequest(method, outcome, res.Duration)
}

// ValidateURL rejects anything that is not an absolute http(s) URL. The
// returned error is typed invalid_url.
func ValidateURL(rawURL string) *errors.Error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeInvalidURL,
			Message: fmt.Sprintf("malformed URL: %v", err),
			URL:     rawURL,
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &errors.Error{
			Type:    errors.ErrorTypeInvalidURL,
			Message: fmt.Sprintf("unsupported scheme %q in %q", u.Scheme, rawURL),
			URL:     rawURL,
		}
	}
	if u.Host == "" {
		return &errors.Error{
			Type:    errors.ErrorTypeInvalidURL,
			Message: fmt.Sprintf("missing host in %q", rawURL),
			URL:     rawURL,
		}
	}
	return nil
}

// checkResponseStatus maps non-2xx responses to typed errors
func checkResponseStatus(resp *http.Response) *errors.Error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errorType := errors.TypeForStatus(resp.StatusCode)
	message := http.StatusText(resp.StatusCode)
	if message == "" {
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}
	return &errors.Error{
		Type:    errorType,
		Message: message,
		Code:    resp.StatusCode,
	}
}

// classify turns a transport error into a typed error
func classify(ctx context.Context, err error, rawURL string, fallback errors.ErrorType) *errors.Error {
	errorType := fallback

	var netErr net.Error
	switch {
	case stderrors.Is(err, context.Canceled) || stderrors.Is(ctx.Err(), context.Canceled):
		errorType = errors.ErrorTypeCanceled
	case stderrors.Is(err, context.DeadlineExceeded):
		errorType = errors.ErrorTypeTimeout
	case stderrors.As(err, &netErr) && netErr.Timeout():
		errorType = errors.ErrorTypeTimeout
	}

	return &errors.Error{
		Type:    errorType,
		Message: err.Error(),
		URL:     rawURL,
	}
}

func contentLength(resp *http.Response) int64 {
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return -1
}
