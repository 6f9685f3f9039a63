// Package storage keeps the local ledger of price records the watcher has
// already published.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store tracks published price records by key.
type Store interface {
	Close() error
	SeenPrice(key string) (bool, error)
	MarkPrice(key string) error
}

// Backend names a ledger implementation.
type Backend string

const (
	BackendNone  Backend = "none"
	BackendBBolt Backend = "bbolt"
)

// ParseBackend maps a configured storage_type onto a Backend. An empty value
// and "disabled" both mean no ledger.
func ParseBackend(raw string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "disabled":
		return BackendNone, nil
	case "bbolt", "bolt":
		return BackendBBolt, nil
	default:
		return "", fmt.Errorf("unsupported storage type %q", raw)
	}
}

// Options configures a ledger. Path is required by file backed stores.
// Zero durations fall back to 30 days of retention swept every 12 hours.
type Options struct {
	Path            string
	PriceTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultPriceTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore opens the ledger selected by backend.
func NewStore(backend string, opts Options) (Store, error) {
	b, err := ParseBackend(backend)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	switch b {
	case BackendBBolt:
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("bbolt storage requires a path")
		}
		return openBolt(opts, time.Now)
	default:
		return noopStore{}, nil
	}
}

func (o Options) withDefaults() Options {
	if o.PriceTTL <= 0 {
		o.PriceTTL = defaultPriceTTL
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = defaultCleanupInterval
	}
	return o
}

// noopStore forgets everything, so every price looks new.
type noopStore struct{}

func (noopStore) Close() error                   { return nil }
func (noopStore) SeenPrice(string) (bool, error) { return false, nil }
func (noopStore) MarkPrice(string) error         { return nil }
