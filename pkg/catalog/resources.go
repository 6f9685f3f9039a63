package catalog

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

// Resource is implemented by every catalog record.
type Resource interface {
	ResourceID() int
	ResourceURI() string
}

// Product is a liquor product listed by the OLCC.
type Product struct {
	ID             int       `mapstructure:"id" json:"id" yaml:"id"`
	Title          string    `mapstructure:"title" json:"title" yaml:"title"`
	Age            float64   `mapstructure:"age" json:"age" yaml:"age"`
	BottlesPerCase int       `mapstructure:"bottles_per_case" json:"bottles_per_case" yaml:"bottles_per_case"`
	Description    string    `mapstructure:"description" json:"description" yaml:"description"`
	OnSale         bool      `mapstructure:"on_sale" json:"on_sale" yaml:"on_sale"`
	Proof          float64   `mapstructure:"proof" json:"proof" yaml:"proof"`
	Size           string    `mapstructure:"size" json:"size" yaml:"size"`
	Code           string    `mapstructure:"code" json:"code" yaml:"code"`
	Slug           string    `mapstructure:"slug" json:"slug" yaml:"slug"`
	CreatedAt      time.Time `mapstructure:"created_at" json:"created_at" yaml:"created_at"`
	ModifiedAt     time.Time `mapstructure:"modified_at" json:"modified_at" yaml:"modified_at"`
	URI            string    `mapstructure:"resource_uri" json:"resource_uri" yaml:"resource_uri"`

	catalog *Catalog
}

func (p Product) ResourceID() int     { return p.ID }
func (p Product) ResourceURI() string { return p.URI }

// Prices fetches the price history of the product. Extra params narrow the
// listing; the product filter always applies.
func (p Product) Prices(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[Price], error) {
	if p.catalog == nil {
		return nil, errors.New("product is not bound to a catalog")
	}
	params = append(slices.Clone(params), bag.Entry[string]{Key: "product", Value: strconv.Itoa(p.ID)})
	return p.catalog.Prices(ctx, params...)
}

// Price is a single price record for a product.
type Price struct {
	ID         int       `mapstructure:"id" json:"id" yaml:"id"`
	Amount     float64   `mapstructure:"amount" json:"amount" yaml:"amount"`
	CreatedAt  time.Time `mapstructure:"created_at" json:"created_at" yaml:"created_at"`
	ModifiedAt time.Time `mapstructure:"modified_at" json:"modified_at" yaml:"modified_at"`
	ProductURI string    `mapstructure:"product" json:"product" yaml:"product"`
	URI        string    `mapstructure:"resource_uri" json:"resource_uri" yaml:"resource_uri"`
}

func (p Price) ResourceID() int     { return p.ID }
func (p Price) ResourceURI() string { return p.URI }

// ProductID extracts the numeric id from ProductURI ("/api/v1/product/12/").
// It returns 0 when the URI carries no id.
func (p Price) ProductID() int {
	return idFromURI(p.ProductURI)
}

// RevisionKey identifies one revision of the price record: the resource URI
// (or "price/<id>" when the URI is missing) plus the modification time with
// full sub-second precision. An edited record gets a new key.
func (p Price) RevisionKey() string {
	uri := p.URI
	if uri == "" {
		uri = "price/" + strconv.Itoa(p.ID)
	}
	if p.ModifiedAt.IsZero() {
		return uri
	}
	return uri + "@" + p.ModifiedAt.UTC().Format(time.RFC3339Nano)
}

// Store is an OLCC liquor store.
type Store struct {
	ID          int     `mapstructure:"id" json:"id" yaml:"id"`
	Key         int     `mapstructure:"key" json:"key" yaml:"key"`
	Name        string  `mapstructure:"name" json:"name" yaml:"name"`
	Address     string  `mapstructure:"address" json:"address" yaml:"address"`
	RawAddress  string  `mapstructure:"address_raw" json:"address_raw" yaml:"address_raw"`
	PhoneNumber string  `mapstructure:"phone" json:"phone" yaml:"phone"`
	County      string  `mapstructure:"county" json:"county" yaml:"county"`
	RawHours    string  `mapstructure:"hours_raw" json:"hours_raw" yaml:"hours_raw"`
	Latitude    float64 `mapstructure:"latitude" json:"latitude" yaml:"latitude"`
	Longitude   float64 `mapstructure:"longitude" json:"longitude" yaml:"longitude"`
	URI         string  `mapstructure:"resource_uri" json:"resource_uri" yaml:"resource_uri"`
}

func (s Store) ResourceID() int     { return s.ID }
func (s Store) ResourceURI() string { return s.URI }

// Page is the paging block returned with every listing.
type Page struct {
	Limit      int    `mapstructure:"limit" json:"limit" yaml:"limit"`
	Offset     int    `mapstructure:"offset" json:"offset" yaml:"offset"`
	TotalCount int    `mapstructure:"total_count" json:"total_count" yaml:"total_count"`
	Next       string `mapstructure:"next" json:"next" yaml:"next"`
	Previous   string `mapstructure:"previous" json:"previous" yaml:"previous"`
}

// HasNext reports whether another page follows this one.
func (p Page) HasNext() bool { return p.Next != "" }

func idFromURI(uri string) int {
	parts := strings.Split(strings.Trim(uri, "/"), "/")
	if len(parts) == 0 {
		return 0
	}
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return id
}
