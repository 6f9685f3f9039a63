package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sort"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

const wrapperTypeHTTP = "http"

// RestyTransport opens response streams with resty. A fresh resty.Client is
// built for every Open so that per-request settings never leak between calls.
type RestyTransport struct {
	log Logger
}

// NewRestyTransport creates the default transport.
func NewRestyTransport(log Logger) *RestyTransport {
	return &RestyTransport{log: ensureLogger(log)}
}

// newRestyBaseClient creates a resty.Client configured from opts.
func newRestyBaseClient(opts StreamOptions, log Logger) *resty.Client {
	c := resty.New()
	c.SetLogger(restyLogger{log: log})
	c.SetTimeout(opts.Timeout)
	if opts.Proxy != "" {
		c.SetProxy(proxyURL(opts.Proxy))
	}
	c.SetRedirectPolicy(redirectPolicy(opts))
	return c
}

// Open performs the request and returns a stream over the response body.
func (t *RestyTransport) Open(ctx context.Context, uri string, opts StreamOptions) (Stream, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	ab := &abort{cancel: cancel}

	trace := &httptrace.ClientTrace{
		DNSDone: func(info httptrace.DNSDoneInfo) {
			n := Notification{Code: NotifyResolve, Message: uri}
			if info.Err != nil {
				n.Severity, n.Message, n.Err = SeverityWarn, info.Err.Error(), info.Err
			}
			ab.set(opts.notify(n))
		},
		ConnectDone: func(_, addr string, err error) {
			if err == nil {
				ab.set(opts.notify(Notification{Code: NotifyConnect, Message: addr}))
			}
		},
	}

	req := newRestyBaseClient(opts, t.log).R().
		SetContext(httptrace.WithClientTrace(ctx, trace)).
		SetDoNotParseResponse(true)
	applyHeaderLines(req, opts)
	if opts.Content != "" {
		req.SetBody(opts.Content)
	}

	resp, err := req.Execute(opts.Method, uri)
	if aerr := ab.get(); aerr != nil {
		closeRawBody(resp)
		cancel()
		return nil, aerr
	}
	if err != nil {
		closeRawBody(resp)
		cancel()
		return nil, failOpen(opts, uri, 0, err)
	}

	raw := resp.RawResponse
	statusLine := formatStatusLine(raw)
	stream := &restyStream{
		body:   raw.Body,
		cancel: cancel,
		notify: opts.notify,
		max:    raw.ContentLength,
		meta: StreamMeta{
			WrapperType: wrapperTypeHTTP,
			WrapperData: append([]string{statusLine}, formatHeaderLines(raw.Header)...),
			URI:         raw.Request.URL.String(),
		},
	}

	if ct := raw.Header.Get("Content-Type"); ct != "" {
		if err := opts.notify(Notification{Code: NotifyMimeTypeIs, Message: ct}); err != nil {
			stream.Close()
			return nil, err
		}
	}
	if raw.ContentLength >= 0 {
		if err := opts.notify(Notification{Code: NotifyFileSizeIs, BytesMax: raw.ContentLength}); err != nil {
			stream.Close()
			return nil, err
		}
	}

	if !opts.IgnoreErrors && raw.StatusCode >= 400 {
		stream.Close()
		return nil, failOpen(opts, uri, raw.StatusCode, fmt.Errorf("HTTP request failed! %s", statusLine))
	}

	return stream, nil
}

// failOpen reports a failure notification and builds the error for it. When
// the callback rejects the failure its error wins.
func failOpen(opts StreamOptions, uri string, code int, err error) error {
	nerr := opts.notify(Notification{
		Code:        NotifyFailure,
		Severity:    SeverityErr,
		Message:     err.Error(),
		MessageCode: code,
		Err:         err,
	})
	if nerr != nil {
		return nerr
	}
	return &TransportError{Code: code, Op: "open", URL: uri, Err: err}
}

func redirectPolicy(opts StreamOptions) resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if !opts.FollowLocation {
			return http.ErrUseLastResponse
		}
		if len(via) > opts.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects", opts.MaxRedirects)
		}
		return opts.notify(Notification{Code: NotifyRedirected, Message: req.URL.String()})
	})
}

// applyHeaderLines splits raw header lines back into name/value pairs.
func applyHeaderLines(req *resty.Request, opts StreamOptions) {
	for _, line := range opts.Header {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		req.SetHeader(name, strings.TrimSpace(value))
	}
	if req.Header.Get("User-Agent") == "" && opts.UserAgent != "" {
		req.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.ProtocolVersion > 0 && opts.ProtocolVersion < HTTP11 {
		req.SetHeader("Connection", "close")
	}
}

func formatStatusLine(resp *http.Response) string {
	proto := resp.Proto
	if proto == "" {
		proto = fmt.Sprintf("HTTP/%d.%d", resp.ProtoMajor, resp.ProtoMinor)
	}
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return proto + " " + status
}

func formatHeaderLines(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			lines = append(lines, name+": "+v)
		}
	}
	return lines
}

// proxyURL accepts the tcp:// form used by stream contexts as well as http URLs.
func proxyURL(proxy string) string {
	if rest, ok := strings.CutPrefix(proxy, "tcp://"); ok {
		return "http://" + rest
	}
	if !strings.Contains(proxy, "://") {
		return "http://" + proxy
	}
	return proxy
}

func closeRawBody(resp *resty.Response) {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return
	}
	resp.RawResponse.Body.Close()
}

// abort records the first error raised from a trace callback and cancels the request.
type abort struct {
	mu     sync.Mutex
	err    error
	cancel context.CancelFunc
}

func (a *abort) set(err error) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		a.err = err
		a.cancel()
	}
}

func (a *abort) get() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// restyStream adapts a raw response body to the Stream interface.
type restyStream struct {
	body      io.ReadCloser
	meta      StreamMeta
	notify    NotifyFunc
	total     int64
	max       int64
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

func (s *restyStream) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if n > 0 {
		s.total += int64(n)
		if nerr := s.notify(Notification{Code: NotifyProgress, BytesTransferred: s.total, BytesMax: s.max}); nerr != nil {
			return n, nerr
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		if nerr := s.notify(Notification{Code: NotifyFailure, Severity: SeverityErr, Message: err.Error(), Err: err}); nerr != nil {
			return n, nerr
		}
	}
	return n, err
}

func (s *restyStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
		s.cancel()
	})
	return s.closeErr
}

func (s *restyStream) Meta() StreamMeta { return s.meta }

// restyLogger routes resty's own diagnostics into the client logger.
type restyLogger struct {
	log Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.ErrorObj("resty error", "resty_message", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.WarnObj("resty warning", "resty_message", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.DebugObj("resty debug", "resty_message", fmt.Sprintf(format, v...))
}
