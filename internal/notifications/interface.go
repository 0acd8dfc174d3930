package notifications

import "github.com/stockpulse/stock-mentions-etl/internal/models"

// Notifier delivers run reports to the configured channels.
type Notifier interface {
	SendRunReport(report *models.RunReport) error
}
