package source

import (
	"context"
	"time"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// MessageSource provides raw messages created since a point in time,
// ordered ascending by creation time. Fetching the same window twice
// returns the same messages, which is what makes retried runs safe.
type MessageSource interface {
	FetchSince(ctx context.Context, since time.Time, limit int) ([]models.RawMessage, error)
}
