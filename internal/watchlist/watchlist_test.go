package watchlist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write watchlist file: %v", err)
	}
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeFile(t, "watchlist.yaml", `
watches:
  - id: old-crow
    name: Old Crow
    product_id: 1
    request_delay_ms: 750
    max_pages: 3
    params:
      limit: "50"
      " order_by ": "-modified_at"
  - id: jim
    product_id: 42
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 watches, got %d", reg.Len())
	}

	w, ok := reg.ByID("old-crow")
	if !ok {
		t.Fatalf("expected watch old-crow to be loaded")
	}
	if w.ProductID != 1 || w.MaxPages != 3 {
		t.Fatalf("unexpected watch: %#v", w)
	}
	if w.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %v", w.RequestDelay())
	}
	want := []bag.Entry[string]{{Key: "limit", Value: "50"}, {Key: "order_by", Value: "-modified_at"}}
	got := w.QueryParams()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("QueryParams = %#v, want %#v", got, want)
	}

	jim, _ := reg.ByID("jim")
	if jim.Name != "jim" || jim.MaxPages != defaultMaxPages || jim.RequestDelay() != defaultRequestDelayMs*time.Millisecond {
		t.Fatalf("defaults not applied: %#v", jim)
	}
	if all := reg.All(); all[0].ID != "old-crow" || all[1].ID != "jim" {
		t.Fatalf("file order not kept: %#v", all)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeFile(t, "watchlist.json", `{"watches": [{"id": "a", "product_id": 9}]}`)
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if w, ok := reg.ByID(" a "); !ok || w.ProductID != 9 {
		t.Fatalf("unexpected lookup result %#v %v", w, ok)
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	path := writeFile(t, "watchlist.yaml", `
watches:
  - id: duplicate
    product_id: 1
  - id: duplicate
    product_id: 2
`)
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate watch error, got nil")
	}
}

func TestParseRejectsInvalidWatches(t *testing.T) {
	cases := map[string]string{
		"empty":          `watches: []`,
		"missing id":     "watches:\n  - product_id: 1\n",
		"bad product":    "watches:\n  - id: a\n    product_id: 0\n",
		"too many pages": "watches:\n  - id: a\n    product_id: 1\n    max_pages: 1000\n",
		"reserved param": "watches:\n  - id: a\n    product_id: 1\n    params:\n      offset: \"10\"\n",
		"bad limit":      "watches:\n  - id: a\n    product_id: 1\n    params:\n      limit: abc\n",
		"not yaml":       "watches: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(content), ".yaml"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRegistryMissingFile(t *testing.T) {
	if _, err := LoadRegistry(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
