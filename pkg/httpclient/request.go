package httpclient

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

// Method is an HTTP request method supported by the client.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPut    Method = "PUT"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
)

// Request describes an outgoing HTTP request. Setters return the receiver so
// calls can be chained. The Client never mutates a Request it sends.
type Request struct {
	url         string
	method      Method
	headers     *bag.Bag[string]
	params      *bag.Bag[string]
	contentBody string
}

// NewRequest creates a GET request for url.
func NewRequest(url string) *Request {
	return &Request{
		url:     url,
		method:  MethodGet,
		headers: bag.New[string](),
		params:  bag.New[string](),
	}
}

func (r *Request) SetURL(url string) *Request {
	r.url = url
	return r
}

func (r *Request) URL() string { return r.url }

func (r *Request) SetMethod(method Method) *Request {
	r.method = method
	return r
}

func (r *Request) Method() Method { return r.method }

func (r *Request) SetContentBody(body string) *Request {
	r.contentBody = body
	return r
}

func (r *Request) ContentBody() string { return r.contentBody }

// SetHeader sets a single header, overwriting any previous value.
func (r *Request) SetHeader(name, value string) *Request {
	r.headers.Set(name, value)
	return r
}

// SetHeaders replaces every header with entries.
func (r *Request) SetHeaders(entries ...bag.Entry[string]) *Request {
	r.headers.Fill(entries...)
	return r
}

// AddHeaderLine appends a raw "Name: value" line that is passed to the
// transport verbatim. Raw lines are stored under numeric keys.
func (r *Request) AddHeaderLine(line string) *Request {
	key := r.headers.Count()
	for r.headers.Has(strconv.Itoa(key)) {
		key++
	}
	r.headers.Set(strconv.Itoa(key), line)
	return r
}

// Header returns the value of a header, or "" if unset.
func (r *Request) Header(name string) string {
	return r.headers.Get(name, "")
}

// Headers returns a copy of the request headers.
func (r *Request) Headers() *bag.Bag[string] {
	return r.headers.Clone()
}

// SetQueryParams replaces the query parameters with entries.
func (r *Request) SetQueryParams(entries ...bag.Entry[string]) *Request {
	r.params.Fill(entries...)
	return r
}

// SetQueryParam sets a single query parameter.
func (r *Request) SetQueryParam(key, value string) *Request {
	r.params.Set(key, value)
	return r
}

// QueryParams returns a copy of the query parameters.
func (r *Request) QueryParams() *bag.Bag[string] {
	return r.params.Clone()
}

// URLWithQuery returns the URL with the form-encoded query parameters
// appended, in insertion order. The URL is returned unchanged when there are
// no parameters.
func (r *Request) URLWithQuery() string {
	query := encodeQuery(r.params)
	if query == "" {
		return r.url
	}
	return r.url + "?" + query
}

func encodeQuery(params *bag.Bag[string]) string {
	if params.Count() == 0 {
		return ""
	}
	var sb strings.Builder
	for k, v := range params.Iterate() {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(v))
	}
	return sb.String()
}

// NewGetRequest builds a GET request with query parameters.
func NewGetRequest(uri string, params ...bag.Entry[string]) *Request {
	return NewRequest(uri).SetQueryParams(params...)
}

// NewPostRequest builds a POST request. Form values are encoded and sent with
// an application/x-www-form-urlencoded content type; strings are sent as is.
func NewPostRequest(uri string, body any) *Request {
	req := NewRequest(uri).SetMethod(MethodPost)
	switch b := body.(type) {
	case url.Values:
		req.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		req.SetContentBody(b.Encode())
	case *bag.Bag[string]:
		req.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		req.SetContentBody(encodeQuery(b))
	case string:
		req.SetContentBody(b)
	case []byte:
		req.SetContentBody(string(b))
	}
	return req
}

// NewPutRequest builds a PUT request with the same body rules as NewPostRequest.
func NewPutRequest(uri string, body any) *Request {
	return NewPostRequest(uri, body).SetMethod(MethodPut)
}

// NewDeleteRequest builds a DELETE request.
func NewDeleteRequest(uri string) *Request {
	return NewRequest(uri).SetMethod(MethodDelete)
}
