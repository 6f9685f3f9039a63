package httpclient

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

const contentTypeJSON = "application/json"

// statusLinePattern is fixed; the status line is only ever matched against it
// as data, so characters in the line cannot change what the pattern means.
var statusLinePattern = regexp.MustCompile(`^HTTP/(\d\.\d) (\d{1,3})`)

// ResponseMeta is the structured form of a transport's wrapper data.
type ResponseMeta struct {
	Headers         *bag.Bag[string]
	ProtocolVersion float64
	StatusCode      int
	ContentType     string
	Charset         string
}

// ParseResponseMeta parses the status line and header lines captured by a
// transport. Missing wrapper data yields zero values.
func ParseResponseMeta(meta StreamMeta) ResponseMeta {
	out := ResponseMeta{Headers: bag.New[string]()}
	if len(meta.WrapperData) == 0 {
		return out
	}

	statusLine, headerLines := meta.WrapperData[0], meta.WrapperData[1:]
	out.ProtocolVersion, out.StatusCode = ParseProtocolAndCode(statusLine)
	out.Headers = ParseHeaders(headerLines)
	out.ContentType, out.Charset = ParseContentType(headerValue(out.Headers, "Content-Type"))
	return out
}

// ParseProtocolAndCode extracts the protocol version and status code from a
// line such as "HTTP/1.1 200 OK". Anything else yields (0, 0).
func ParseProtocolAndCode(line string) (float64, int) {
	m := statusLinePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, 0
	}
	protocol, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0
	}
	code, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0
	}
	return protocol, code
}

// ParseHeaders splits each line at its first colon. Keys and values are
// trimmed; a repeated header keeps the last value.
func ParseHeaders(lines []string) *bag.Bag[string] {
	headers := bag.New[string]()
	for _, line := range lines {
		name, value, _ := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		headers.Set(name, strings.TrimSpace(value))
	}
	return headers
}

// ParseContentType splits a Content-Type header value into the media type and
// charset, e.g. "application/json; charset=utf-8" -> ("application/json", "utf-8").
func ParseContentType(raw string) (contentType, charset string) {
	if raw == "" {
		return "", ""
	}
	parts := strings.Split(raw, " ")
	contentType = strings.TrimSuffix(parts[0], ";")

	if len(parts) > 1 {
		key, value, ok := strings.Cut(parts[1], "=")
		if ok && strings.EqualFold(key, "charset") {
			charset = strings.Trim(value, `";`)
		}
	}
	return contentType, charset
}

// ParseContentBody decodes raw as JSON when contentType is exactly
// application/json and returns it unchanged otherwise.
func ParseContentBody(raw []byte, contentType string) (any, error) {
	if contentType != contentTypeJSON {
		return string(raw), nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &JSONDecodeError{Err: err}
	}
	return decoded, nil
}

// headerValue looks a header up by exact name first, then case-insensitively.
func headerValue(headers *bag.Bag[string], name string) string {
	if v, ok := headers.Lookup(name); ok {
		return v
	}
	for k, v := range headers.Iterate() {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
