package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samvad-hq/liquor-catalog/internal/watchlist"
	"github.com/samvad-hq/liquor-catalog/pkg/bag"
	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
	"github.com/samvad-hq/liquor-catalog/pkg/publishers"
)

// Result summarises one pass over a watch.
type Result struct {
	Pages     int
	Fetched   int
	Fresh     int
	Published int
}

func (r Result) add(o Result) Result {
	return Result{
		Pages:     r.Pages + o.Pages,
		Fetched:   r.Fetched + o.Fetched,
		Fresh:     r.Fresh + o.Fresh,
		Published: r.Published + o.Published,
	}
}

// WatchProcessor polls the price history of a single watch and publishes
// records the ledger has not seen yet.
type WatchProcessor struct {
	source  PriceSource
	pub     EventPublisher
	log     Logger
	deduper Deduper
}

// NewWatchProcessor wires a processor. pub, log and deduper may be nil.
func NewWatchProcessor(source PriceSource, pub EventPublisher, log Logger, deduper Deduper) *WatchProcessor {
	if log == nil {
		log = noopLogger{}
	}
	return &WatchProcessor{source: source, pub: pub, log: log, deduper: deduper}
}

// LedgerKey is the ledger entry for a price revision. Queue sinks use the same
// key for deduplication, so a record edited upstream is published again.
func LedgerKey(p catalog.Price) string {
	return p.RevisionKey()
}

// Process runs one pass over w.
func (p *WatchProcessor) Process(ctx context.Context, w watchlist.Watch) (Result, error) {
	var res Result
	if p == nil || p.source == nil {
		return res, errors.New("watch processor is not initialized")
	}

	title := p.productTitle(ctx, w)

	prices, pages, err := p.fetchPrices(ctx, w)
	res.Pages = pages
	res.Fetched = len(prices)
	if err != nil {
		return res, fmt.Errorf("fetch prices for watch %s: %w", w.ID, err)
	}

	fresh := p.filterNewPrices(w, prices)
	res.Fresh = len(fresh)

	var errs []error
	for _, price := range fresh {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if p.pub == nil {
			break
		}

		key := LedgerKey(price)
		evt := publishers.NewEvent(w.ID, w.Name, title, price)
		if _, err := p.pub.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("publish price %s: %w", key, err))
			continue
		}
		res.Published++

		if p.deduper == nil {
			continue
		}
		if err := p.deduper.MarkPrice(key); err != nil {
			p.log.WarnObj("price ledger mark failed", "ledger_error", map[string]any{
				"watch_id": w.ID,
				"key":      key,
				"error":    err.Error(),
			})
		}
	}

	p.log.InfoObj("watch processed", "watch_result", map[string]any{
		"watch_id":  w.ID,
		"pages":     res.Pages,
		"fetched":   res.Fetched,
		"fresh":     res.Fresh,
		"published": res.Published,
	})
	return res, errors.Join(errs...)
}

// productTitle looks up the product for event payloads. Failures only cost
// the title.
func (p *WatchProcessor) productTitle(ctx context.Context, w watchlist.Watch) string {
	product, err := p.source.Product(ctx, w.ProductID)
	if err != nil {
		p.log.WarnObj("product lookup failed", "product_error", map[string]any{
			"watch_id":   w.ID,
			"product_id": w.ProductID,
			"error":      err.Error(),
		})
		return ""
	}
	return product.Title
}

// fetchPrices walks the price listing for the watched product, following
// offsets until the listing ends or MaxPages is reached.
func (p *WatchProcessor) fetchPrices(ctx context.Context, w watchlist.Watch) ([]catalog.Price, int, error) {
	maxPages := w.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	delay := w.RequestDelay()

	var out []catalog.Price
	offset := 0
	pages := 0
	for pages < maxPages {
		if err := ctx.Err(); err != nil {
			return out, pages, err
		}

		params := append(w.QueryParams(),
			bag.Entry[string]{Key: "product", Value: strconv.Itoa(w.ProductID)},
			bag.Entry[string]{Key: "offset", Value: strconv.Itoa(offset)},
		)
		batch, page, err := p.source.PricesPage(ctx, params...)
		if err != nil {
			return out, pages, fmt.Errorf("page %d: %w", pages+1, err)
		}
		pages++
		count := 0
		if batch != nil {
			out = append(out, batch.Values()...)
			count = batch.Count()
		}

		step := page.Limit
		if step <= 0 {
			step = count
		}
		if !page.HasNext() || step <= 0 {
			break
		}
		offset = page.Offset + step

		if pages < maxPages && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out, pages, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return out, pages, nil
}

// filterNewPrices drops records the ledger has seen. Lookup failures keep the
// record so it is not lost.
func (p *WatchProcessor) filterNewPrices(w watchlist.Watch, prices []catalog.Price) []catalog.Price {
	if p.deduper == nil {
		return prices
	}

	out := make([]catalog.Price, 0, len(prices))
	for _, price := range prices {
		key := LedgerKey(price)
		seen, err := p.deduper.SeenPrice(key)
		if err != nil {
			p.log.WarnObj("price ledger lookup failed", "ledger_error", map[string]any{
				"watch_id": w.ID,
				"key":      key,
				"error":    err.Error(),
			})
			out = append(out, price)
			continue
		}
		if !seen {
			out = append(out, price)
		}
	}
	return out
}
