package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBucketStart(t *testing.T) {
	tests := []struct {
		name     string
		gran     models.Granularity
		input    string
		expected string
	}{
		{
			name:     "hourly mid-hour",
			gran:     models.GranularityHourly,
			input:    "2024-01-15T10:42:13Z",
			expected: "2024-01-15T10:00:00Z",
		},
		{
			name:     "hourly exact boundary belongs to the bucket it starts",
			gran:     models.GranularityHourly,
			input:    "2024-01-15T10:00:00Z",
			expected: "2024-01-15T10:00:00Z",
		},
		{
			name:     "hourly one second before boundary",
			gran:     models.GranularityHourly,
			input:    "2024-01-15T09:59:59Z",
			expected: "2024-01-15T09:00:00Z",
		},
		{
			name:     "daily mid-day",
			gran:     models.GranularityDaily,
			input:    "2024-01-15T23:59:59Z",
			expected: "2024-01-15T00:00:00Z",
		},
		{
			name:     "daily exact midnight",
			gran:     models.GranularityDaily,
			input:    "2024-01-15T00:00:00Z",
			expected: "2024-01-15T00:00:00Z",
		},
		{
			name:     "weekly monday floors to itself",
			gran:     models.GranularityWeekly,
			input:    "2024-01-15T00:00:00Z", // Monday
			expected: "2024-01-15T00:00:00Z",
		},
		{
			name:     "weekly sunday floors to previous monday",
			gran:     models.GranularityWeekly,
			input:    "2024-01-21T23:59:59Z", // Sunday
			expected: "2024-01-15T00:00:00Z",
		},
		{
			name:     "weekly wednesday floors to monday",
			gran:     models.GranularityWeekly,
			input:    "2024-01-17T12:00:00Z",
			expected: "2024-01-15T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BucketStart(tt.gran, ts(tt.input))
			assert.Equal(t, ts(tt.expected), got)
		})
	}
}

func TestBucketStartConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2024, 1, 15, 1, 30, 0, 0, loc) // 23:30 Jan 14 UTC

	got := BucketStart(models.GranularityDaily, local)
	assert.Equal(t, ts("2024-01-14T00:00:00Z"), got)
}
