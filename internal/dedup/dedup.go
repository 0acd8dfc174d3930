package dedup

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// KeyStore answers which mention keys are already persisted.
type KeyStore interface {
	// ExistingMentionKeys returns the subset of keys that already exist in
	// the mention store.
	ExistingMentionKeys(ctx context.Context, keys []models.MentionKey) (map[models.MentionKey]bool, error)
}

// Deduplicator filters candidate mentions down to those not yet persisted.
// Runs re-fetch overlapping windows, so the check goes against the store
// rather than only within the batch. Matching is exact on
// (message_id, ticker).
type Deduplicator struct {
	store KeyStore
}

// New creates a Deduplicator backed by the given key store.
func New(store KeyStore) *Deduplicator {
	return &Deduplicator{store: store}
}

// Filter returns the candidates whose (message_id, ticker) key is neither
// persisted already nor repeated earlier in the batch, preserving order.
func (d *Deduplicator) Filter(ctx context.Context, candidates []models.StockMention) ([]models.StockMention, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	keys := make([]models.MentionKey, 0, len(candidates))
	for _, m := range candidates {
		keys = append(keys, m.Key())
	}

	existing, err := d.store.ExistingMentionKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("checking existing mention keys: %w", err)
	}

	seen := make(map[models.MentionKey]bool, len(candidates))
	fresh := make([]models.StockMention, 0, len(candidates))
	for _, m := range candidates {
		key := m.Key()
		if existing[key] || seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, m)
	}

	if dropped := len(candidates) - len(fresh); dropped > 0 {
		logrus.Debugf("Dedup dropped %d of %d candidate mentions", dropped, len(candidates))
	}

	return fresh, nil
}
