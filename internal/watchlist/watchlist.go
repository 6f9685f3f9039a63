// Package watchlist loads the set of products whose price history the
// watcher polls.
package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

const (
	defaultRequestDelayMs = 500
	defaultMaxPages       = 5
	maxPagesCeiling       = 100
)

// reservedParams are controlled by the crawler and rejected in watch params.
var reservedParams = []string{"product", "offset", "format"}

// Watch is a single watched product.
type Watch struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	ProductID      int               `json:"product_id" yaml:"product_id"`
	Params         map[string]string `json:"params" yaml:"params"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
	MaxPages       int               `json:"max_pages" yaml:"max_pages"`
}

type file struct {
	Watches []Watch `json:"watches" yaml:"watches"`
}

// Registry holds the watches loaded from a watchlist file.
type Registry struct {
	watches []Watch
	idx     map[string]Watch
}

// LoadRegistry loads the watchlist from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("watchlist file path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read watchlist file: %w", err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes and validates watchlist content. ext selects the decoder
// (".yaml", ".yml", ".json"); an empty ext tries each in turn.
func Parse(data []byte, ext string) (*Registry, error) {
	wf, err := decode(data, ext)
	if err != nil {
		return nil, err
	}
	if len(wf.Watches) == 0 {
		return nil, errors.New("watchlist file contains no watches entries")
	}

	reg := &Registry{
		watches: make([]Watch, len(wf.Watches)),
		idx:     make(map[string]Watch, len(wf.Watches)),
	}
	for i := range wf.Watches {
		w := sanitizeWatch(wf.Watches[i])
		if err := validateWatch(w); err != nil {
			return nil, fmt.Errorf("watches[%d]: %w", i, err)
		}
		if _, exists := reg.idx[w.ID]; exists {
			return nil, fmt.Errorf("duplicate watch id %q", w.ID)
		}
		reg.watches[i] = w
		reg.idx[w.ID] = w
	}
	return reg, nil
}

func decode(data []byte, ext string) (file, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var wf file
		if err := d.fn(data, &wf); err != nil {
			lastErr = fmt.Errorf("decode %s watchlist: %w", d.name, err)
			continue
		}
		return wf, nil
	}
	if lastErr != nil {
		return file{}, lastErr
	}
	return file{}, fmt.Errorf("watchlist format %q not recognized (expected YAML or JSON)", ext)
}

func sanitizeWatch(w Watch) Watch {
	w.ID = strings.TrimSpace(w.ID)
	w.Name = strings.TrimSpace(w.Name)
	if w.Name == "" {
		w.Name = w.ID
	}
	if w.RequestDelayMs <= 0 {
		w.RequestDelayMs = defaultRequestDelayMs
	}
	if w.MaxPages <= 0 {
		w.MaxPages = defaultMaxPages
	}

	if len(w.Params) > 0 {
		params := make(map[string]string, len(w.Params))
		for k, v := range w.Params {
			if k = strings.TrimSpace(k); k != "" {
				params[k] = strings.TrimSpace(v)
			}
		}
		w.Params = params
	}
	return w
}

func validateWatch(w Watch) error {
	if w.ID == "" {
		return errors.New("id is required")
	}
	if w.ProductID <= 0 {
		return fmt.Errorf("product_id must be positive for watch %q", w.ID)
	}
	if w.MaxPages > maxPagesCeiling {
		return fmt.Errorf("max_pages %d exceeds %d for watch %q", w.MaxPages, maxPagesCeiling, w.ID)
	}
	for _, k := range reservedParams {
		if _, ok := w.Params[k]; ok {
			return fmt.Errorf("param %q is managed by the watcher for watch %q", k, w.ID)
		}
	}
	if raw, ok := w.Params["limit"]; ok {
		if n, err := strconv.Atoi(raw); err != nil || n <= 0 {
			return fmt.Errorf("param limit must be a positive integer for watch %q", w.ID)
		}
	}
	return nil
}

// All returns a copy of the loaded watches in file order.
func (r *Registry) All() []Watch {
	if r == nil {
		return nil
	}
	return slices.Clone(r.watches)
}

// ByID returns the watch with the given id.
func (r *Registry) ByID(id string) (Watch, bool) {
	if r == nil {
		return Watch{}, false
	}
	w, ok := r.idx[strings.TrimSpace(id)]
	return w, ok
}

// Len returns the number of watches.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.watches)
}

// RequestDelay returns the pause between page requests for the watch.
func (w Watch) RequestDelay() time.Duration {
	if w.RequestDelayMs <= 0 {
		return defaultRequestDelayMs * time.Millisecond
	}
	return time.Duration(w.RequestDelayMs) * time.Millisecond
}

// QueryParams returns the extra query parameters sorted by key.
func (w Watch) QueryParams() []bag.Entry[string] {
	keys := make([]string, 0, len(w.Params))
	for k := range w.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]bag.Entry[string], 0, len(keys))
	for _, k := range keys {
		out = append(out, bag.Entry[string]{Key: k, Value: w.Params[k]})
	}
	return out
}
