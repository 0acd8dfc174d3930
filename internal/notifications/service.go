package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/stockpulse/stock-mentions-etl/internal/config"
	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// Service sends run reports to a webhook and/or email, depending on what is
// configured. Delivery is best effort; the pipeline never fails a run over
// a notification error.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// webhookMessage is the card payload posted to the configured webhook.
type webhookMessage struct {
	Type     string           `json:"@type"`
	Context  string           `json:"@context"`
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Sections []webhookSection `json:"sections,omitempty"`
}

type webhookSection struct {
	ActivityTitle string        `json:"activityTitle,omitempty"`
	Facts         []webhookFact `json:"facts,omitempty"`
	Markdown      bool          `json:"markdown,omitempty"`
}

type webhookFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendRunReport sends a run report via the configured channels.
func (s *Service) SendRunReport(report *models.RunReport) error {
	var errors []string

	if s.config.WebhookURL != "" {
		if err := s.sendToWebhook(report); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Sent run report to webhook")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Sent run report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToWebhook(report *models.RunReport) error {
	message := buildWebhookMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.WebhookURL)

	if err != nil {
		return fmt.Errorf("failed to post webhook message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func buildWebhookMessage(report *models.RunReport) webhookMessage {
	title := fmt.Sprintf("Stock ETL run %s", report.Status)

	facts := []webhookFact{
		{Name: "Pipeline", Value: report.PipelineID},
		{Name: "Run ID", Value: report.RunID},
		{Name: "Window start", Value: report.WindowStart.Format(time.RFC3339)},
		{Name: "Messages fetched", Value: fmt.Sprintf("%d", report.MessagesFetched)},
		{Name: "New mentions", Value: fmt.Sprintf("%d", report.MentionsNew)},
		{Name: "Extraction errors", Value: fmt.Sprintf("%d", report.ExtractionErrors)},
		{Name: "Duration", Value: report.Duration.Round(time.Millisecond).String()},
	}
	if report.Error != "" {
		facts = append(facts, webhookFact{Name: "Error", Value: report.Error})
	}

	return webhookMessage{
		Type:    "MessageCard",
		Context: "http://schema.org/extensions",
		Title:   title,
		Text:    fmt.Sprintf("Run %s finished with status %s", report.RunID, report.Status),
		Sections: []webhookSection{
			{ActivityTitle: title, Facts: facts, Markdown: true},
		},
	}
}

func (s *Service) sendEmail(report *models.RunReport) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Stock ETL run %s: %s", report.RunID, report.Status))
	m.SetBody("text/html", buildEmailBody(report))

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func buildEmailBody(report *models.RunReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>Stock ETL run %s</h2>", report.Status))
	b.WriteString("<table>")
	row := func(name, value string) {
		b.WriteString(fmt.Sprintf("<tr><td><b>%s</b></td><td>%s</td></tr>", name, value))
	}
	row("Pipeline", report.PipelineID)
	row("Run ID", report.RunID)
	row("Started", report.StartedAt.Format(time.RFC3339))
	row("Window start", report.WindowStart.Format(time.RFC3339))
	row("Messages fetched", fmt.Sprintf("%d", report.MessagesFetched))
	row("Mentions extracted", fmt.Sprintf("%d", report.MentionsExtracted))
	row("New mentions", fmt.Sprintf("%d", report.MentionsNew))
	row("Extraction errors", fmt.Sprintf("%d", report.ExtractionErrors))
	for gran, count := range report.SummariesWritten {
		row(fmt.Sprintf("Summaries (%s)", gran), fmt.Sprintf("%d", count))
	}
	if report.Error != "" {
		row("Error", report.Error)
	}
	b.WriteString("</table>")
	return b.String()
}
