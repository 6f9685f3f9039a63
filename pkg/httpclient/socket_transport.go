package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const wrapperTypeSocket = "socket"

// SocketTransport speaks HTTP/1.x directly over a TCP connection and keeps the
// status line and header lines exactly as the server sent them.
type SocketTransport struct {
	dialer *net.Dialer
	tls    *tls.Config
}

// NewSocketTransport creates a socket transport. tlsConfig may be nil.
func NewSocketTransport(tlsConfig *tls.Config) *SocketTransport {
	return &SocketTransport{
		dialer: &net.Dialer{},
		tls:    tlsConfig,
	}
}

// Open sends the request and reads the response head. Redirects are followed
// according to opts; the returned stream belongs to the final hop.
func (t *SocketTransport) Open(ctx context.Context, uri string, opts StreamOptions) (Stream, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	method, content := opts.Method, opts.Content
	target := uri
	for hop := 0; ; hop++ {
		u, err := url.Parse(target)
		if err != nil {
			return nil, failOpen(opts, target, 0, fmt.Errorf("parse url: %w", err))
		}

		stream, err := t.roundTrip(ctx, u, method, content, opts)
		if err != nil {
			return nil, err
		}

		_, code := ParseProtocolAndCode(stream.meta.WrapperData[0])
		location := headerValue(ParseHeaders(stream.meta.WrapperData[1:]), "Location")
		if !opts.FollowLocation || code < 300 || code >= 400 || location == "" {
			if !opts.IgnoreErrors && code >= 400 {
				stream.Close()
				return nil, failOpen(opts, target, code, fmt.Errorf("HTTP request failed! %s", stream.meta.WrapperData[0]))
			}
			return stream, nil
		}
		stream.Close()

		if hop >= opts.MaxRedirects {
			return nil, failOpen(opts, target, 0, fmt.Errorf("stopped after %d redirects", opts.MaxRedirects))
		}
		next, err := u.Parse(location)
		if err != nil {
			return nil, failOpen(opts, target, 0, fmt.Errorf("parse redirect location: %w", err))
		}
		target = next.String()
		if err := opts.notify(Notification{Code: NotifyRedirected, Message: target, MessageCode: code}); err != nil {
			return nil, err
		}
		if code == 303 || ((code == 301 || code == 302) && method == string(MethodPost)) {
			method, content = string(MethodGet), ""
		}
	}
}

func (t *SocketTransport) roundTrip(ctx context.Context, u *url.URL, method, content string, opts StreamOptions) (*socketStream, error) {
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, failOpen(opts, u.String(), 0, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	conn, viaProxy, err := t.connect(ctx, u, opts, deadline)
	if err != nil {
		return nil, failOpen(opts, u.String(), 0, err)
	}
	if err := opts.notify(Notification{Code: NotifyConnect, Message: conn.RemoteAddr().String()}); err != nil {
		conn.Close()
		return nil, err
	}

	if err := writeRequest(conn, u, method, content, viaProxy || opts.RequestFullURI, opts); err != nil {
		conn.Close()
		return nil, failOpen(opts, u.String(), 0, fmt.Errorf("write request: %w", err))
	}

	br := bufio.NewReader(conn)
	lines, err := readHead(br)
	if err != nil {
		conn.Close()
		return nil, failOpen(opts, u.String(), 0, fmt.Errorf("read response head: %w", err))
	}

	headers := ParseHeaders(lines[1:])
	var body io.Reader = br
	size := int64(-1)
	switch {
	case strings.EqualFold(headerValue(headers, "Transfer-Encoding"), "chunked"):
		body = httputil.NewChunkedReader(br)
	case headerValue(headers, "Content-Length") != "":
		if n, err := strconv.ParseInt(headerValue(headers, "Content-Length"), 10, 64); err == nil && n >= 0 {
			size = n
			body = io.LimitReader(br, n)
		}
	}
	if method == "HEAD" {
		body = strings.NewReader("")
	}

	if ct := headerValue(headers, "Content-Type"); ct != "" {
		if err := opts.notify(Notification{Code: NotifyMimeTypeIs, Message: ct}); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if size >= 0 {
		if err := opts.notify(Notification{Code: NotifyFileSizeIs, BytesMax: size}); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &socketStream{
		conn:   conn,
		body:   body,
		notify: opts.notify,
		max:    size,
		meta: StreamMeta{
			WrapperType: wrapperTypeSocket,
			WrapperData: lines,
			URI:         u.String(),
		},
	}, nil
}

// connect dials the origin, or the proxy when one is configured. HTTPS through
// a proxy is tunnelled with CONNECT.
func (t *SocketTransport) connect(ctx context.Context, u *url.URL, opts StreamOptions, deadline time.Time) (net.Conn, bool, error) {
	addr := hostPort(u)
	dialAddr := addr
	viaProxy := false
	if opts.Proxy != "" {
		p, err := url.Parse(proxyURL(opts.Proxy))
		if err != nil {
			return nil, false, fmt.Errorf("parse proxy: %w", err)
		}
		dialAddr = hostPort(p)
		viaProxy = true
	}

	dialer := *t.dialer
	dialer.Deadline = deadline
	conn, err := dialer.DialContext(ctx, "tcp", dialAddr)
	if err != nil {
		return nil, false, fmt.Errorf("dial %s: %w", dialAddr, err)
	}
	if !deadline.IsZero() {
		conn.SetDeadline(deadline)
	}

	if u.Scheme != "https" {
		return conn, viaProxy, nil
	}

	if viaProxy {
		if err := tunnel(conn, addr); err != nil {
			conn.Close()
			return nil, false, err
		}
	}

	cfg := &tls.Config{}
	if t.tls != nil {
		cfg = t.tls.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = u.Hostname()
	}
	tconn := tls.Client(conn, cfg)
	if err := tconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("tls handshake: %w", err)
	}
	// The tunnel carries origin-form requests.
	return tconn, false, nil
}

func tunnel(conn net.Conn, addr string) error {
	if _, err := fmt.Fprintf(conn, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", addr, addr); err != nil {
		return fmt.Errorf("proxy connect: %w", err)
	}
	lines, err := readHead(bufio.NewReader(conn))
	if err != nil {
		return fmt.Errorf("proxy connect: %w", err)
	}
	if _, code := ParseProtocolAndCode(lines[0]); code != 200 {
		return fmt.Errorf("proxy connect refused: %s", lines[0])
	}
	return nil
}

func writeRequest(w io.Writer, u *url.URL, method, content string, fullURI bool, opts StreamOptions) error {
	target := u.RequestURI()
	if fullURI {
		target = u.String()
	}
	version := "1.1"
	if opts.ProtocolVersion > 0 {
		version = strconv.FormatFloat(opts.ProtocolVersion, 'f', 1, 64)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s HTTP/%s\r\n", method, target, version)
	fmt.Fprintf(&sb, "Host: %s\r\n", u.Host)

	hasUA := false
	for _, line := range opts.Header {
		name, _, _ := strings.Cut(line, ":")
		switch {
		case strings.EqualFold(strings.TrimSpace(name), "User-Agent"):
			hasUA = true
		case strings.EqualFold(strings.TrimSpace(name), "Host"),
			strings.EqualFold(strings.TrimSpace(name), "Content-Length"),
			strings.EqualFold(strings.TrimSpace(name), "Connection"):
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}
	if !hasUA && opts.UserAgent != "" {
		fmt.Fprintf(&sb, "User-Agent: %s\r\n", opts.UserAgent)
	}
	if content != "" {
		fmt.Fprintf(&sb, "Content-Length: %d\r\n", len(content))
	}
	sb.WriteString("Connection: close\r\n\r\n")
	sb.WriteString(content)

	_, err := io.WriteString(w, sb.String())
	return err
}

// readHead reads the status line and header lines up to the blank line.
func readHead(br *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err != nil {
			if errors.Is(err, io.EOF) && len(lines) > 0 && line == "" {
				return lines, nil
			}
			return nil, err
		}
		if line == "" {
			if len(lines) == 0 {
				continue
			}
			return lines, nil
		}
		lines = append(lines, line)
	}
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// socketStream reads a response body straight from the connection.
type socketStream struct {
	conn   net.Conn
	body   io.Reader
	meta   StreamMeta
	notify NotifyFunc
	total  int64
	max    int64
}

func (s *socketStream) Read(p []byte) (int, error) {
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

func (s *socketStream) Close() error { return s.conn.Close() }

func (s *socketStream) Meta() StreamMeta { return s.meta }
