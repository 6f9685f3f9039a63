package crawler

import (
	"context"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
	"github.com/samvad-hq/liquor-catalog/pkg/publishers"
)

// PriceSource reads products and paged price listings from the catalog.
type PriceSource interface {
	Product(ctx context.Context, id int, params ...bag.Entry[string]) (catalog.Product, error)
	PricesPage(ctx context.Context, params ...bag.Entry[string]) (*bag.Bag[catalog.Price], catalog.Page, error)
}

// EventPublisher publishes price events downstream and reports how many
// sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers which price records were already published.
type Deduper interface {
	SeenPrice(key string) (bool, error)
	MarkPrice(key string) error
}

// Logger is the structured logging surface used by the crawler.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}
