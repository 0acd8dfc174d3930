package aggregator

import (
	"time"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// BucketStart floors a timestamp to the start of its bucket in UTC. Buckets
// are closed-open intervals [start, end), so a timestamp exactly on a
// boundary belongs to the bucket starting there. Weeks start Monday 00:00.
func BucketStart(gran models.Granularity, t time.Time) time.Time {
	t = t.UTC()

	switch gran {
	case models.GranularityHourly:
		return t.Truncate(time.Hour)
	case models.GranularityDaily:
		return dayStart(t)
	case models.GranularityWeekly:
		day := dayStart(t)
		// time.Weekday counts Sunday as 0; shift so Monday is 0.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	}

	return t.Truncate(time.Hour)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
