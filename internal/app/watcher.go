package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/liquor-catalog/internal/config"
	"github.com/samvad-hq/liquor-catalog/internal/crawler"
	"github.com/samvad-hq/liquor-catalog/internal/logger"
	"github.com/samvad-hq/liquor-catalog/internal/storage"
	"github.com/samvad-hq/liquor-catalog/internal/watchlist"
	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
	"github.com/samvad-hq/liquor-catalog/pkg/httpclient"
	"github.com/samvad-hq/liquor-catalog/pkg/publishers"
)

// Watcher represents the price watcher runtime. It manages the poll loop,
// coordinating between the watchlist, the crawler service, and publishers. It
// also owns the price ledger and closes it on exit.
type Watcher struct {
	cfg          *config.Config
	watches      []watchlist.Watch
	fanout       *publishers.Fanout
	crawlService *crawler.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	watchReg, err := watchlist.LoadRegistry(cfg.WatchlistFile)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	watches := watchReg.All()
	watchIDs := make([]string, 0, len(watches))
	for _, w := range watches {
		watchIDs = append(watchIDs, w.ID)
	}
	log.InfoObj("watchlist loaded", "watchlist_meta", map[string]any{
		"count": len(watchIDs),
		"ids":   watchIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	client := httpclient.NewClient(cfg.ClientOptions(log)...)
	cat, err := catalog.New(client, catalog.WithEndpoint(cfg.CatalogEndpoint), catalog.WithLogger(log))
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		Path:            cfg.BBoltPath,
		PriceTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"price_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Watcher{
		cfg:          cfg,
		watches:      watches,
		fanout:       fanout,
		crawlService: crawler.NewService(cat, fanout, log, store),
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}, nil
}

// Run polls once, then on every poll interval until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.crawlService == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"watches_count":    len(w.watches),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.pollInterval.String(),
	})

	if err := w.runOnce(ctx); err != nil {
		w.log.ErrorObj("initial poll failed", "error", err)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled poll failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single poll and releases resources afterwards.
func (w *Watcher) RunOnce(ctx context.Context) error {
	if w == nil || w.crawlService == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()
	return w.runOnce(ctx)
}

// runOnce performs a single poll across all watches.
func (w *Watcher) runOnce(ctx context.Context) error {
	start := time.Now()
	w.log.InfoObj("poll started", "poll_meta", map[string]any{
		"watches_count": len(w.watches),
		"started_at":    start.UTC(),
	})
	if err := w.crawlService.Run(ctx, w.watches); err != nil {
		return err
	}
	w.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"watches_count": len(w.watches),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases the ledger and publisher clients, logging any errors encountered.
func (w *Watcher) close() {
	var errs []error
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	if w.fanout != nil {
		errs = append(errs, w.fanout.Close())
	}
	if err := errors.Join(errs...); err != nil {
		w.log.ErrorObj("watcher shutdown failed", "error", err)
	}
}
