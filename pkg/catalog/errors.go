package catalog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/liquor-catalog/pkg/httpclient"
)

const maxErrorSummary = 256

// APIError reports a catalog call that did not produce a usable JSON answer:
// a transport failure, a non-2xx status or a non-JSON body.
type APIError struct {
	StatusCode int
	URI        string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("catalog request %s failed: %s", e.URI, e.Message)
	}
	return fmt.Sprintf("catalog request %s returned status %d: %s", e.URI, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// DecodeError reports a response object that does not match its schema or
// cannot be mapped to the resource type.
type DecodeError struct {
	Resource string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Resource, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newAPIError(resp *httpclient.Response, fallback string) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode(),
		URI:        resp.URI(),
		Message:    summarize(resp, fallback),
		Err:        resp.Err(),
	}
}

// summarize picks a short human readable message out of an error response.
func summarize(resp *httpclient.Response, fallback string) string {
	if err := resp.Err(); err != nil {
		return err.Error()
	}

	if m, ok := resp.ContentBody().(map[string]any); ok {
		for _, key := range []string{"error_message", "error", "detail"} {
			if msg, ok := m[key].(string); ok && strings.TrimSpace(msg) != "" {
				return truncate(collapseSpace(msg))
			}
		}
	}

	raw := string(resp.RawBody())
	if resp.ContentType() == "text/html" {
		if msg := htmlSummary(raw); msg != "" {
			return msg
		}
	}
	if msg := truncate(collapseSpace(raw)); msg != "" {
		return msg
	}
	return fallback
}

// htmlSummary returns the page title, else the first heading, else the body text.
func htmlSummary(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"title", "h1", "body"} {
		if text := collapseSpace(doc.Find(sel).First().Text()); text != "" {
			return truncate(text)
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at maxErrorSummary runes.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxErrorSummary {
		return s
	}
	return string([]rune(s)[:maxErrorSummary]) + "..."
}
