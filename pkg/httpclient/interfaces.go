package httpclient

import (
	"context"
	"io"
	"time"
)

// Transport opens a byte stream for a URL. Implementations own the wire
// protocol; the Client only sees the body bytes and the stream metadata.
type Transport interface {
	Open(ctx context.Context, url string, opts StreamOptions) (Stream, error)
}

// Stream is an open response body plus the metadata captured while opening it.
type Stream interface {
	io.ReadCloser
	Meta() StreamMeta
}

// StreamMeta is the out-of-band information a transport exposes about a response.
type StreamMeta struct {
	// WrapperType names the transport that produced the data ("http", "socket").
	WrapperType string
	// WrapperData holds the raw protocol lines: the status line first, then
	// one "Header: value" line per header.
	WrapperData []string
	// URI is the URL of the final hop after redirects.
	URI string
}

// StreamOptions is the per-request transport configuration. It is built from an
// immutable snapshot of the Client configuration.
type StreamOptions struct {
	Method          string
	Header          []string
	UserAgent       string
	Content         string
	Proxy           string
	RequestFullURI  bool
	FollowLocation  bool
	MaxRedirects    int
	ProtocolVersion float64
	Timeout         time.Duration
	IgnoreErrors    bool
	Notify          NotifyFunc
}

// notify forwards n to the configured callback, if any.
func (o StreamOptions) notify(n Notification) error {
	if o.Notify == nil {
		return nil
	}
	return o.Notify(n)
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
