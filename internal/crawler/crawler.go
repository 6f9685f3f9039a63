package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/liquor-catalog/internal/watchlist"
)

// Service coordinates polling across all watches.
type Service struct {
	processor *WatchProcessor
	log       Logger
}

// NewService wires a crawler over the catalog price source.
func NewService(source PriceSource, pub EventPublisher, log Logger, deduper Deduper) *Service {
	if log == nil {
		log = noopLogger{}
	}
	return &Service{
		processor: NewWatchProcessor(source, pub, log, deduper),
		log:       log,
	}
}

// Run executes a polling pass for all watches.
func (s *Service) Run(ctx context.Context, watches []watchlist.Watch) error {
	if s == nil || s.processor == nil || s.processor.source == nil {
		return fmt.Errorf("crawler service is not initialized")
	}

	if len(watches) == 0 {
		return fmt.Errorf("no watches configured for polling")
	}

	errs := s.runAll(ctx, watches)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (s *Service) runAll(ctx context.Context, watches []watchlist.Watch) []error {
	var (
		errs   = make([]error, 0, len(watches))
		total  Result
		polled int
	)

	for _, w := range watches {
		if ctx.Err() != nil {
			break
		}
		res, err := s.processor.Process(ctx, w)
		total = total.add(res)
		polled++
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				break
			}
			errs = append(errs, err)
			s.log.ErrorObj("watch poll failed", "watch_error", map[string]any{
				"watch_id": w.ID,
				"error":    err.Error(),
			})
		}
	}

	s.log.InfoObj("poll pass completed", "poll_result", map[string]any{
		"watches":   polled,
		"pages":     total.Pages,
		"fetched":   total.Fetched,
		"fresh":     total.Fresh,
		"published": total.Published,
		"failed":    len(errs),
	})
	return errs
}
