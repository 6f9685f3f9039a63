package httpclient

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

const (
	HTTP10 = 1.0
	HTTP11 = 1.1

	DefaultUserAgent    = "liquor-catalog/HTTP-Client"
	DefaultMaxRedirects = 20
	DefaultTimeout      = 30 * time.Second
)

// Options is the transport configuration held by a Client.
type Options struct {
	UserAgent       string
	ProxyURI        string
	FollowLocation  bool
	MaxRedirects    int
	ProtocolVersion float64
	Timeout         time.Duration
	IgnoreErrors    bool
	RequestFullURI  bool
}

// DefaultOptions returns the configuration a new Client starts with.
func DefaultOptions() Options {
	return Options{
		UserAgent:       DefaultUserAgent,
		FollowLocation:  true,
		MaxRedirects:    DefaultMaxRedirects,
		ProtocolVersion: HTTP11,
		Timeout:         DefaultTimeout,
	}
}

// Client sends Requests through a Transport and parses the results into
// Responses. Configuration may be changed at any time; every Send works on a
// copy taken before the stream is opened.
type Client struct {
	mu        sync.RWMutex
	opts      Options
	transport Transport
	log       Logger
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithTransport replaces the default resty-backed transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = ensureLogger(log) }
}

// WithOptions replaces the whole configuration.
func WithOptions(opts Options) Option {
	return func(c *Client) { c.opts = opts }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.opts.UserAgent = ua }
}

// WithProxy routes requests through proxyURI (tcp:// or http://). Empty disables it.
func WithProxy(proxyURI string) Option {
	return func(c *Client) { c.opts.ProxyURI = proxyURI }
}

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.opts.Timeout = timeout }
}

// WithFollowLocation controls whether redirects are followed.
func WithFollowLocation(follow bool) Option {
	return func(c *Client) { c.opts.FollowLocation = follow }
}

// WithMaxRedirects caps the number of redirects followed.
func WithMaxRedirects(max int) Option {
	return func(c *Client) { c.opts.MaxRedirects = max }
}

// WithProtocolVersion selects HTTP10 or HTTP11 for the request line.
func WithProtocolVersion(version float64) Option {
	return func(c *Client) { c.opts.ProtocolVersion = version }
}

// WithIgnoreErrors returns 4xx/5xx answers as normal responses instead of failures.
func WithIgnoreErrors(ignore bool) Option {
	return func(c *Client) { c.opts.IgnoreErrors = ignore }
}

// WithRequestFullURI sends the absolute URI in the request line.
func WithRequestFullURI(full bool) Option {
	return func(c *Client) { c.opts.RequestFullURI = full }
}

// NewClient creates a Client with default configuration and the resty transport.
func NewClient(options ...Option) *Client {
	c := &Client{
		opts: DefaultOptions(),
		log:  noopLogger{},
	}
	for _, option := range options {
		option(c)
	}
	if c.transport == nil {
		c.transport = NewRestyTransport(c.log)
	}
	return c
}

// Options returns a copy of the current configuration.
func (c *Client) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

func (c *Client) update(fn func(*Options)) *Client {
	c.mu.Lock()
	fn(&c.opts)
	c.mu.Unlock()
	return c
}

// SetUserAgent changes the User-Agent for later sends.
func (c *Client) SetUserAgent(ua string) *Client {
	return c.update(func(o *Options) { o.UserAgent = ua })
}

// UserAgent returns the configured User-Agent.
func (c *Client) UserAgent() string { return c.Options().UserAgent }

// SetProxy changes the proxy URI. Empty disables the proxy.
func (c *Client) SetProxy(proxyURI string) *Client {
	return c.update(func(o *Options) { o.ProxyURI = proxyURI })
}

// Proxy returns the configured proxy URI.
func (c *Client) Proxy() string { return c.Options().ProxyURI }

// SetFollowLocation toggles redirect following.
func (c *Client) SetFollowLocation(follow bool) *Client {
	return c.update(func(o *Options) { o.FollowLocation = follow })
}

// FollowLocation reports whether redirects are followed.
func (c *Client) FollowLocation() bool { return c.Options().FollowLocation }

// SetMaxRedirects changes the redirect cap.
func (c *Client) SetMaxRedirects(max int) *Client {
	return c.update(func(o *Options) { o.MaxRedirects = max })
}

// MaxRedirects returns the redirect cap.
func (c *Client) MaxRedirects() int { return c.Options().MaxRedirects }

// SetProtocolVersion changes the HTTP version used in the request line.
func (c *Client) SetProtocolVersion(version float64) *Client {
	return c.update(func(o *Options) { o.ProtocolVersion = version })
}

// ProtocolVersion returns the configured HTTP version.
func (c *Client) ProtocolVersion() float64 { return c.Options().ProtocolVersion }

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) *Client {
	return c.update(func(o *Options) { o.Timeout = timeout })
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.Options().Timeout }

// SetIgnoreErrors toggles returning 4xx/5xx answers as normal responses.
func (c *Client) SetIgnoreErrors(ignore bool) *Client {
	return c.update(func(o *Options) { o.IgnoreErrors = ignore })
}

// IgnoreErrors reports whether 4xx/5xx answers are returned as normal responses.
func (c *Client) IgnoreErrors() bool { return c.Options().IgnoreErrors }

// SetRequestFullURI toggles the absolute URI in the request line.
func (c *Client) SetRequestFullURI(full bool) *Client {
	return c.update(func(o *Options) { o.RequestFullURI = full })
}

// RequestFullURI reports whether the absolute URI is sent in the request line.
func (c *Client) RequestFullURI() bool { return c.Options().RequestFullURI }

// Get sends a GET request for endpoint with the given query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, params ...bag.Entry[string]) (*Response, error) {
	return c.Send(ctx, NewGetRequest(endpoint, params...))
}

// Send performs req and returns the parsed Response.
//
// Transport failures never surface as errors: they come back as a Response
// whose body is the error text and whose status code is 0 or the code carried
// by the error (see Response.IsTransportFailure). The only error returned is a
// *JSONDecodeError for a JSON response whose body does not decode.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return c.failure("", &TransportError{Op: "send", Err: errors.New("nil request")}), nil
	}

	uri := req.URLWithQuery()
	opts := c.streamOptions(c.Options(), req)

	c.log.DebugObj("http request", "http_request", map[string]any{
		"method": opts.Method,
		"url":    uri,
	})

	stream, err := c.transport.Open(ctx, uri, opts)
	if err != nil {
		return c.failure(uri, err), nil
	}
	defer stream.Close()

	body, err := io.ReadAll(stream)
	if err != nil {
		var nerr *NotificationError
		if !errors.As(err, &nerr) {
			err = &TransportError{Op: "read", URL: uri, Err: err}
		}
		return c.failure(uri, err), nil
	}

	resp, err := NewResponseFromStream(uri, stream.Meta(), body)
	if err != nil {
		c.log.ErrorObj("http response decode failed", "http_error", map[string]any{
			"url":   uri,
			"error": err.Error(),
		})
		return nil, err
	}

	c.log.DebugObj("http response", "http_response", map[string]any{
		"url":          uri,
		"status":       resp.StatusCode(),
		"content_type": resp.ContentType(),
		"bytes":        len(body),
	})
	return resp, nil
}

func (c *Client) failure(uri string, err error) *Response {
	resp := newFailureResponse(uri, err)
	c.log.WarnObj("http transport failed", "http_error", map[string]any{
		"url":    uri,
		"status": resp.StatusCode(),
		"error":  err.Error(),
	})
	return resp
}

// streamOptions builds the per-request transport configuration.
func (c *Client) streamOptions(opts Options, req *Request) StreamOptions {
	return StreamOptions{
		Method:          string(req.Method()),
		Header:          formatHeaders(req.headers),
		UserAgent:       opts.UserAgent,
		Content:         req.ContentBody(),
		Proxy:           opts.ProxyURI,
		RequestFullURI:  opts.RequestFullURI,
		FollowLocation:  opts.FollowLocation,
		MaxRedirects:    opts.MaxRedirects,
		ProtocolVersion: opts.ProtocolVersion,
		Timeout:         opts.Timeout,
		IgnoreErrors:    opts.IgnoreErrors,
		Notify:          c.onStreamNotification,
	}
}

// onStreamNotification receives transport events. A failure event is turned
// into a *NotificationError, which aborts the stream; Send then reports it as
// a failure Response.
func (c *Client) onStreamNotification(n Notification) error {
	c.log.DebugObj("stream notification", "stream_event", map[string]any{
		"code":              n.Code.String(),
		"message":           n.Message,
		"message_code":      n.MessageCode,
		"bytes_transferred": n.BytesTransferred,
		"bytes_max":         n.BytesMax,
	})
	if n.Code != NotifyFailure {
		return nil
	}
	return &NotificationError{Code: n.MessageCode, Message: n.Message, Err: n.Err}
}

// formatHeaders renders request headers as transport lines. Headers stored
// under numeric keys are raw lines and are passed through unchanged.
func formatHeaders(headers *bag.Bag[string]) []string {
	lines := make([]string, 0, headers.Count())
	for name, value := range headers.Iterate() {
		if isNumericKey(name) {
			lines = append(lines, value)
			continue
		}
		lines = append(lines, name+": "+value)
	}
	return lines
}

func isNumericKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, r := range key {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return false
		}
	}
	_, err := strconv.ParseFloat(key, 64)
	return err == nil
}
