package httpclient

import (
	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

// Response is an HTTP response with its metadata parsed out of the transport's
// wrapper data. It is immutable once built.
type Response struct {
	uri             string
	contentBody     any
	rawBody         []byte
	statusCode      int
	protocolVersion float64
	charset         string
	contentType     string
	headers         *bag.Bag[string]
	err             error
}

// NewResponse builds a Response from already parsed values.
func NewResponse(uri string, contentBody any, statusCode int, protocolVersion float64, charset, contentType string, headers *bag.Bag[string]) *Response {
	if headers == nil {
		headers = bag.New[string]()
	}
	resp := &Response{
		uri:             uri,
		contentBody:     contentBody,
		statusCode:      statusCode,
		protocolVersion: protocolVersion,
		charset:         charset,
		contentType:     contentType,
		headers:         headers.Clone(),
	}
	switch b := contentBody.(type) {
	case string:
		resp.rawBody = []byte(b)
	case []byte:
		resp.rawBody = b
		resp.contentBody = string(b)
	}
	return resp
}

// NewResponseFromStream parses stream metadata and body into a Response. The
// body is JSON-decoded when the content type is application/json.
func NewResponseFromStream(uri string, meta StreamMeta, body []byte) (*Response, error) {
	parsed := ParseResponseMeta(meta)

	content, err := ParseContentBody(body, parsed.ContentType)
	if err != nil {
		if jerr, ok := err.(*JSONDecodeError); ok {
			jerr.URI = uri
		}
		return nil, err
	}

	return &Response{
		uri:             uri,
		contentBody:     content,
		rawBody:         body,
		statusCode:      parsed.StatusCode,
		protocolVersion: parsed.ProtocolVersion,
		charset:         parsed.Charset,
		contentType:     parsed.ContentType,
		headers:         parsed.Headers,
	}, nil
}

// newFailureResponse represents a transport failure as data: the error text is
// the body and the status code is 0 or the code the error carries.
func newFailureResponse(uri string, err error) *Response {
	msg := err.Error()
	return &Response{
		uri:         uri,
		contentBody: msg,
		rawBody:     []byte(msg),
		statusCode:  errorCode(err),
		headers:     bag.New[string](),
		err:         err,
	}
}

func (r *Response) URI() string               { return r.uri }
func (r *Response) StatusCode() int           { return r.statusCode }
func (r *Response) ProtocolVersion() float64  { return r.protocolVersion }
func (r *Response) Charset() string           { return r.charset }
func (r *Response) ContentType() string       { return r.contentType }
func (r *Response) Headers() *bag.Bag[string] { return r.headers.Clone() }

// Header returns a header value, matching the name case-insensitively when no
// exact key exists.
func (r *Response) Header(name string) string { return headerValue(r.headers, name) }

// ContentBody returns the decoded JSON value for JSON responses and the raw
// string otherwise.
func (r *Response) ContentBody() any { return r.contentBody }

// RawBody returns the body bytes as received.
func (r *Response) RawBody() []byte {
	out := make([]byte, len(r.rawBody))
	copy(out, r.rawBody)
	return out
}

// IsJSON reports whether the content type is exactly application/json.
func (r *Response) IsJSON() bool { return r.contentType == contentTypeJSON }

// IsSuccess returns true if the status code is in the 2xx range.
func (r *Response) IsSuccess() bool { return r.statusCode >= 200 && r.statusCode < 300 }

// IsRedirect returns true if the status code is in the 3xx range.
func (r *Response) IsRedirect() bool { return r.statusCode >= 300 && r.statusCode < 400 }

// IsClientError returns true if the status code is in the 4xx range.
func (r *Response) IsClientError() bool { return r.statusCode >= 400 && r.statusCode < 500 }

// IsServerError returns true if the status code is in the 5xx range.
func (r *Response) IsServerError() bool { return r.statusCode >= 500 && r.statusCode < 600 }

// IsTransportFailure reports whether the response stands for a failed
// transport attempt rather than an answer from the server.
func (r *Response) IsTransportFailure() bool { return r.err != nil }

// Err returns the transport error behind a failure response.
func (r *Response) Err() error { return r.err }
