package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	productJSON = `{"id": 1, "title": "Old Crow", "code": "0103B", "size": "750 ML", "proof": "80.00", "on_sale": true,
		"resource_uri": "/api/v1/product/1/"}`
	priceJSON = `{"id": 1, "amount": "17.95", "product": "/api/v1/product/1/", "resource_uri": "/api/v1/price/1/",
		"modified_at": "2013-09-21T00:00:00"}`
	storeJSON = `{"id": 1, "key": 101, "name": "Portland Downtown", "county": "Multnomah", "phone": "503-555-0100",
		"resource_uri": "/api/v1/store/1/"}`
)

type catalogServer struct {
	*httptest.Server
	mu      sync.Mutex
	queries []string
}

func (s *catalogServer) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return ""
	}
	return s.queries[len(s.queries)-1]
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()
	t.Setenv("HTTP_PROXY", "")
	t.Setenv("CATALOG_CONFIG_FILE", "")

	s := &catalogServer{}
	listing := func(obj string) string {
		return `{"meta": {"limit": 20, "offset": 0, "total_count": 41, "next": "/api/v1/x/?offset=20"}, "objects": [` + obj + `]}`
	}
	routes := map[string]string{
		"/api/v1/product/1": productJSON,
		"/api/v1/product":   listing(productJSON),
		"/api/v1/price/1":   priceJSON,
		"/api/v1/price":     listing(priceJSON),
		"/api/v1/store/1":   storeJSON,
		"/api/v1/store":     listing(storeJSON),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.queries = append(s.queries, r.URL.Path+"?"+r.URL.RawQuery)
		s.mu.Unlock()

		body, ok := routes[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "not here"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Catalog", "olcc")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func run(t *testing.T, srv *catalogServer, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--endpoint", srv.URL + "/api/v1"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestProductText(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "product", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "title:")
	assert.Contains(t, out, "Old Crow")
	assert.Contains(t, out, "proof:           80")
	assert.NotContains(t, out, "\x1b[", "colors must be off when not writing to a terminal")
	assert.Equal(t, "/api/v1/product/1?format=json&limit=20", srv.last())
}

func TestProductJSON(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "-o", "json", "product", "1")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Old Crow", got["title"])
	assert.Equal(t, 80.0, got["proof"])
}

func TestListingsText(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "products", "--limit", "5", "--offset", "10", "-p", "on_sale=true")
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "0103B")
	assert.Contains(t, out, "1 of 41 (offset 0), next: /api/v1/x/?offset=20")
	assert.Equal(t, "/api/v1/product?format=json&limit=5&offset=10&on_sale=true", srv.last())

	out, err = run(t, srv, "stores")
	require.NoError(t, err)
	assert.Contains(t, out, "Portland Downtown")
}

func TestPricesProductFilterYAML(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "-o", "yaml", "prices", "--product", "1")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/price?format=json&limit=20&product=1", srv.last())

	var got struct {
		Meta struct {
			TotalCount int `yaml:"total_count"`
		} `yaml:"meta"`
		Objects []map[string]any `yaml:"objects"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 41, got.Meta.TotalCount)
	require.Len(t, got.Objects, 1)
	assert.Equal(t, 17.95, got.Objects[0]["amount"])

	_, err = run(t, srv, "prices", "--product", "0")
	require.Error(t, err)
}

func TestGetDumpsResponse(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "get", "store/1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 "+srv.URL+"/api/v1/store/1?format=json&limit=20"), out)
	assert.Contains(t, out, "X-Catalog: olcc")
	assert.Contains(t, out, `"name": "Portland Downtown"`)
}

func TestGetPath(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "get", "product", "--path", "objects.0.title")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "\nOld Crow\n"), out)

	out, err = run(t, srv, "-o", "json", "get", "product", "--path", "meta")
	require.NoError(t, err)
	var dump rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &dump))
	assert.Equal(t, 200, dump.StatusCode)
	assert.Equal(t, 41.0, dump.Body.(map[string]any)["total_count"])

	_, err = run(t, srv, "get", "product", "--path", "objects.9.title")
	require.ErrorContains(t, err, "not found")
}

func TestGetTransportFailure(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "get", "nowhere")
	require.Error(t, err)
	assert.Contains(t, out, "transport failure (404)")

	out, err = run(t, srv, "--ignore-errors", "get", "nowhere")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 404"), out)
	assert.Contains(t, out, `"error": "not here"`)
}

func TestSocketTransportFlag(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "--transport", "socket", "--protocol-version", "1.0", "product", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Old Crow")
}

func TestDemoRunsEveryCall(t *testing.T) {
	srv := newCatalogServer(t)

	out, err := run(t, srv, "demo")
	require.NoError(t, err)
	for _, heading := range []string{"== product 1 ==", "== price 1 ==", "== store 1 ==", "== products ==", "== prices ==", "== stores =="} {
		assert.Contains(t, out, heading)
	}

	out, err = run(t, srv, "demo", "--id", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product 2")
	assert.Contains(t, out, "== stores ==", "later steps still run after a failure")
}

func TestFlagValidation(t *testing.T) {
	srv := newCatalogServer(t)

	cases := [][]string{
		{"-o", "xml", "product", "1"},
		{"product", "abc"},
		{"--transport", "carrier-pigeon", "product", "1"},
		{"--protocol-version", "2", "product", "1"},
		{"--max-redirects", "-1", "product", "1"},
		{"products", "-p", "novalue"},
		{"product"},
	}
	for _, args := range cases {
		_, err := run(t, srv, args...)
		assert.Error(t, err, "args %v", args)
	}
}
