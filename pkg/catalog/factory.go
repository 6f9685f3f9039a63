package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	kindProduct = "product"
	kindPrice   = "price"
	kindStore   = "store"
	kindList    = "list"
)

// apiTimeLayouts are tried in order. The API emits naive timestamps with
// microseconds; zoned forms are accepted as well.
var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Factory turns decoded JSON values into catalog resources. Every object is
// validated against its embedded schema before it is mapped.
type Factory struct {
	schemas map[string]*jsonschema.Schema
	owner   *Catalog
}

// NewFactory compiles the embedded resource schemas.
func NewFactory() (*Factory, error) {
	compiler := jsonschema.NewCompiler()
	kinds := []string{kindProduct, kindPrice, kindStore, kindList}

	for _, kind := range kinds {
		name := schemaName(kind)
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", kind, err)
		}
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", kind, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(kinds))
	for _, kind := range kinds {
		schema, err := compiler.Compile(schemaName(kind))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		schemas[kind] = schema
	}
	return &Factory{schemas: schemas}, nil
}

func schemaName(kind string) string { return "schemas/" + kind + ".json" }

// Product maps a single product object.
func (f *Factory) Product(raw any) (Product, error) {
	var p Product
	if err := f.decode(kindProduct, raw, &p); err != nil {
		return Product{}, err
	}
	p.catalog = f.owner
	return p, nil
}

// Products maps a product listing keyed by id, in listing order.
func (f *Factory) Products(raw []any) (*bag.Bag[Product], error) {
	return collect(raw, f.Product)
}

// Price maps a single price object.
func (f *Factory) Price(raw any) (Price, error) {
	var p Price
	if err := f.decode(kindPrice, raw, &p); err != nil {
		return Price{}, err
	}
	return p, nil
}

// Prices maps a price listing keyed by id, in listing order.
func (f *Factory) Prices(raw []any) (*bag.Bag[Price], error) {
	return collect(raw, f.Price)
}

// Store maps a single store object.
func (f *Factory) Store(raw any) (Store, error) {
	var s Store
	if err := f.decode(kindStore, raw, &s); err != nil {
		return Store{}, err
	}
	return s, nil
}

// Stores maps a store listing keyed by id, in listing order.
func (f *Factory) Stores(raw []any) (*bag.Bag[Store], error) {
	return collect(raw, f.Store)
}

// Listing splits a listing body into its objects and paging block.
func (f *Factory) Listing(body any) ([]any, Page, error) {
	if err := f.validate(kindList, body); err != nil {
		return nil, Page{}, err
	}
	m, _ := body.(map[string]any)
	objects, _ := m["objects"].([]any)

	var page Page
	if meta, ok := m["meta"]; ok && meta != nil {
		if err := decodeInto(meta, &page); err != nil {
			return nil, Page{}, &DecodeError{Resource: kindList, Err: err}
		}
	}
	return objects, page, nil
}

func (f *Factory) decode(kind string, raw any, out any) error {
	if err := f.validate(kind, raw); err != nil {
		return err
	}
	if err := decodeInto(raw, out); err != nil {
		return &DecodeError{Resource: kind, Err: err}
	}
	return nil
}

func (f *Factory) validate(kind string, raw any) error {
	schema := f.schemas[kind]
	if schema == nil {
		return &DecodeError{Resource: kind, Err: fmt.Errorf("no schema registered")}
	}
	if err := schema.Validate(raw); err != nil {
		return &DecodeError{Resource: kind, Err: err}
	}
	return nil
}

func decodeInto(raw any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       apiTimeHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// apiTimeHook decodes API timestamp strings into time.Time.
func apiTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) || from.Kind() != reflect.String {
		return data, nil
	}
	s, _ := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return parseAPITime(s)
}

func parseAPITime(s string) (time.Time, error) {
	for _, layout := range apiTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func collect[T Resource](raw []any, one func(any) (T, error)) (*bag.Bag[T], error) {
	out := bag.New[T]()
	for i, item := range raw {
		r, err := one(item)
		if err != nil {
			return nil, fmt.Errorf("objects[%d]: %w", i, err)
		}
		out.Set(strconv.Itoa(r.ResourceID()), r)
	}
	return out, nil
}
