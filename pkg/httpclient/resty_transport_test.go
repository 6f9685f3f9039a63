package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/product/1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			http.Error(w, "missing format", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-User-Agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"id":1,"title":"Whiskey"}`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "arrived")
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Accept", r.Header.Get("Accept"))
		w.Header().Set("X-Close", fmt.Sprint(r.Close))
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRestyTransportJSON(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient()

	resp, err := c.Get(context.Background(), srv.URL+"/product/1", bag.Entry[string]{Key: "format", Value: "json"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != 200 || resp.ProtocolVersion() != 1.1 {
		t.Fatalf("unexpected status %d protocol %v", resp.StatusCode(), resp.ProtocolVersion())
	}
	if resp.ContentType() != "application/json" || resp.Charset() != "utf-8" {
		t.Fatalf("content type %q charset %q", resp.ContentType(), resp.Charset())
	}
	want := map[string]any{"id": float64(1), "title": "Whiskey"}
	if !reflect.DeepEqual(resp.ContentBody(), want) {
		t.Fatalf("body = %#v", resp.ContentBody())
	}
	if resp.Header("X-User-Agent") != DefaultUserAgent {
		t.Fatalf("server saw user agent %q", resp.Header("X-User-Agent"))
	}
}

func TestRestyTransportErrorStatus(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient()

	resp, err := c.Get(context.Background(), srv.URL+"/missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.IsTransportFailure() || resp.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected failure with 404, got %d (failure=%v)", resp.StatusCode(), resp.IsTransportFailure())
	}
	if !strings.Contains(resp.ContentBody().(string), "HTTP request failed! HTTP/1.1 404 Not Found") {
		t.Fatalf("body = %q", resp.ContentBody())
	}
}

func TestRestyTransportIgnoreErrors(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(WithIgnoreErrors(true))

	resp, err := c.Get(context.Background(), srv.URL+"/missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.IsTransportFailure() || resp.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected real 404 response, got %d", resp.StatusCode())
	}
	if resp.ContentBody() != "nope\n" || resp.ContentType() != "text/plain" || resp.Charset() != "utf-8" {
		t.Fatalf("unexpected body %#v type %q charset %q", resp.ContentBody(), resp.ContentType(), resp.Charset())
	}
}

func TestRestyTransportRedirects(t *testing.T) {
	srv := newCatalogServer(t)

	resp, err := NewClient().Get(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != 200 || resp.ContentBody() != "arrived" {
		t.Fatalf("expected redirect to be followed, got %d %#v", resp.StatusCode(), resp.ContentBody())
	}

	resp, err = NewClient(WithFollowLocation(false)).Get(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusFound || resp.Header("Location") != "/final" {
		t.Fatalf("expected 302 with location, got %d %q", resp.StatusCode(), resp.Header("Location"))
	}
}

func TestRestyTransportMaxRedirects(t *testing.T) {
	srv := newCatalogServer(t)

	resp, err := NewClient(WithMaxRedirects(2)).Get(context.Background(), srv.URL+"/loop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.IsTransportFailure() || resp.StatusCode() != 0 {
		t.Fatalf("expected failure response, got %d", resp.StatusCode())
	}
	if !strings.Contains(resp.ContentBody().(string), "stopped after 2 redirects") {
		t.Fatalf("body = %q", resp.ContentBody())
	}
}

func TestRestyTransportSendsBodyAndHeaders(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(WithProtocolVersion(HTTP10))

	req := NewPutRequest(srv.URL+"/echo", "payload").SetHeader("Accept", "text/plain")
	resp, err := c.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.ContentBody() != "payload" {
		t.Fatalf("echoed body = %#v", resp.ContentBody())
	}
	if resp.Header("X-Method") != "PUT" || resp.Header("X-Accept") != "text/plain" {
		t.Fatalf("server saw method %q accept %q", resp.Header("X-Method"), resp.Header("X-Accept"))
	}
	if resp.Header("X-Close") != "true" {
		t.Fatalf("HTTP/1.0 requests must ask for connection close")
	}
}

func TestRestyTransportConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	resp, err := NewClient().Get(context.Background(), url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != 0 || !resp.IsTransportFailure() {
		t.Fatalf("expected status 0 failure, got %d", resp.StatusCode())
	}
}

func TestProxyURL(t *testing.T) {
	tests := map[string]string{
		"tcp://proxy:3128":    "http://proxy:3128",
		"proxy:3128":          "http://proxy:3128",
		"https://proxy:3128":  "https://proxy:3128",
		"http://user@p:8080/": "http://user@p:8080/",
	}
	for in, want := range tests {
		if got := proxyURL(in); got != want {
			t.Errorf("proxyURL(%q) = %q, want %q", in, got, want)
		}
	}
}
