package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
	"github.com/samvad-hq/liquor-catalog/pkg/httpclient"
)

const (
	DefaultEndpoint = "http://www.oregonliquorprices.com/api/v1"
	DefaultFormat   = "json"
	DefaultLimit    = 20
)

// Getter is the part of *httpclient.Client the catalog needs.
type Getter interface {
	Get(ctx context.Context, endpoint string, params ...bag.Entry[string]) (*httpclient.Response, error)
}

// Catalog reads products, prices and stores from the OLCC price API.
type Catalog struct {
	client   Getter
	endpoint string
	defaults *bag.Bag[string]
	factory  *Factory
	log      Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Catalog) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log Logger) Option {
	return func(c *Catalog) { c.log = ensureLogger(log) }
}

// WithDefaultParams merges entries over the default query parameters sent
// with every call.
func WithDefaultParams(entries ...bag.Entry[string]) Option {
	return func(c *Catalog) { c.defaults.SetAll(entries...) }
}

// New creates a Catalog on top of client. Every request carries
// format=json and limit=20 unless the caller overrides them.
func New(client Getter, opts ...Option) (*Catalog, error) {
	if client == nil {
		return nil, errors.New("catalog client must not be nil")
	}
	factory, err := NewFactory()
	if err != nil {
		return nil, fmt.Errorf("init resource factory: %w", err)
	}

	c := &Catalog{
		client:   client,
		endpoint: DefaultEndpoint,
		defaults: bag.New(
			bag.Entry[string]{Key: "format", Value: DefaultFormat},
			bag.Entry[string]{Key: "limit", Value: strconv.Itoa(DefaultLimit)},
		),
		factory: factory,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	factory.owner = c
	return c, nil
}

// Endpoint returns the API base URL.
func (c *Catalog) Endpoint() string { return c.endpoint }

// Products lists products.
func (c *Catalog) Products(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[Product], error) {
	items, _, err := c.ProductsPage(ctx, params...)
	return items, err
}

// ProductsPage lists products along with the paging block.
func (c *Catalog) ProductsPage(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[Product], Page, error) {
	return listPage(ctx, c, kindProduct, params, c.factory.Products)
}

// Product fetches a single product by id.
func (c *Catalog) Product(ctx context.Context, id int, params ...bag.Entry[string]) (Product, error) {
	body, err := c.item(ctx, kindProduct, id, params)
	if err != nil {
		return Product{}, err
	}
	return c.factory.Product(body)
}

// Prices lists prices. Filter by product with product=<id>.
func (c *Catalog) Prices(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[Price], error) {
	items, _, err := c.PricesPage(ctx, params...)
	return items, err
}

// PricesPage lists prices along with the paging block.
func (c *Catalog) PricesPage(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[Price], Page, error) {
	return listPage(ctx, c, kindPrice, params, c.factory.Prices)
}

// Price fetches a single price record by id.
func (c *Catalog) Price(ctx context.Context, id int, params ...bag.Entry[string]) (Price, error) {
	body, err := c.item(ctx, kindPrice, id, params)
	if err != nil {
		return Price{}, err
	}
	return c.factory.Price(body)
}

// Stores lists stores.
func (c *Catalog) Stores(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[Store], error) {
	items, _, err := c.StoresPage(ctx, params...)
	return items, err
}

// StoresPage lists stores along with the paging block.
func (c *Catalog) StoresPage(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[Store], Page, error) {
	return listPage(ctx, c, kindStore, params, c.factory.Stores)
}

// Store fetches a single store by id.
func (c *Catalog) Store(ctx context.Context, id int, params ...bag.Entry[string]) (Store, error) {
	body, err := c.item(ctx, kindStore, id, params)
	if err != nil {
		return Store{}, err
	}
	return c.factory.Store(body)
}

// Raw sends a GET for path with the default params merged in and returns the
// response untouched. path may be relative to the endpoint, a resource URI
// such as "/api/v1/store/3/", or an absolute URL.
func (c *Catalog) Raw(ctx context.Context, path string, params ...bag.Entry[string]) (*httpclient.Response, error) {
	uri := c.resolve(path)
	merged := c.defaults.Clone().SetAll(params...)
	c.log.DebugObj("catalog request", "catalog_request", map[string]any{
		"url":    uri,
		"params": merged.All(),
	})
	return c.client.Get(ctx, uri, merged.Entries()...)
}

func listPage[T Resource](ctx context.Context, c *Catalog, kind string, params []bag.Entry[string], build func([]any) (*bag.Bag[T], error)) (*bag.Bag[T], Page, error) {
	resp, err := c.fetch(ctx, kind, params)
	if err != nil {
		return nil, Page{}, err
	}
	objects, page, err := c.factory.Listing(resp.ContentBody())
	if err != nil {
		return nil, Page{}, fmt.Errorf("%s listing: %w", kind, err)
	}
	items, err := build(objects)
	if err != nil {
		return nil, Page{}, fmt.Errorf("%s listing: %w", kind, err)
	}
	return items, page, nil
}

func (c *Catalog) item(ctx context.Context, kind string, id int, params []bag.Entry[string]) (any, error) {
	resp, err := c.fetch(ctx, kind+"/"+strconv.Itoa(id), params)
	if err != nil {
		return nil, err
	}
	return resp.ContentBody(), nil
}

// fetch performs a call and insists on a successful JSON answer.
func (c *Catalog) fetch(ctx context.Context, path string, params []bag.Entry[string]) (*httpclient.Response, error) {
	resp, err := c.Raw(ctx, path, params...)
	if err != nil {
		return nil, fmt.Errorf("catalog request %s: %w", c.resolve(path), err)
	}

	if resp.IsTransportFailure() || !resp.IsSuccess() {
		apiErr := newAPIError(resp, "unexpected status")
		c.log.WarnObj("catalog request failed", "catalog_error", map[string]any{
			"url":    apiErr.URI,
			"status": apiErr.StatusCode,
			"error":  apiErr.Message,
		})
		return nil, apiErr
	}
	if !resp.IsJSON() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			URI:        resp.URI(),
			Message:    fmt.Sprintf("expected application/json, got %q", resp.ContentType()),
		}
	}
	return resp, nil
}

func (c *Catalog) resolve(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		if u, err := url.Parse(c.endpoint); err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host + path
		}
	}
	return c.endpoint + "/" + strings.TrimLeft(path, "/")
}
