package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service handles sending the feedback report via chat webhook and email.
// With neither channel configured, sending is a logged no-op: notification
// delivery is best-effort and never blocks a run.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// WebhookMessage is the MessageCard payload posted to the chat webhook.
type WebhookMessage struct {
	Type     string           `json:"@type"`
	Context  string           `json:"@context"`
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Sections []WebhookSection `json:"sections,omitempty"`
}

type WebhookSection struct {
	ActivityTitle string        `json:"activityTitle,omitempty"`
	ActivityText  string        `json:"activityText,omitempty"`
	Facts         []WebhookFact `json:"facts,omitempty"`
	Markdown      bool          `json:"markdown,omitempty"`
}

type WebhookFact struct {
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

// SendReport sends a report via the configured notification channels.
func (s *Service) SendReport(report *models.Report) error {
	if s.config.WebhookURL == "" && s.config.NotificationEmail == "" {
		logrus.Info("No notification channel configured, skipping report delivery")
		return nil
	}

	var errors []string

	if s.config.WebhookURL != "" {
		if err := s.sendToWebhook(report); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent report to webhook")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToWebhook(report *models.Report) error {
	message := s.buildWebhookMessage(report)

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

func (s *Service) buildWebhookMessage(report *models.Report) *WebhookMessage {
	message := &WebhookMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   "App Feedback Report",
		Text:    fmt.Sprintf("%d new reviews, %d total in history", report.NewReviews, report.TotalReviews),
	}

	if report.Trend != nil {
		facts := []WebhookFact{
			{Name: "Overall Rating", Value: fmt.Sprintf("%.2f", report.Trend.Overall)},
			{Name: "Last 7 Days", Value: fmt.Sprintf("%.2f", report.Trend.Last7Days)},
			{Name: "Last 30 Days", Value: fmt.Sprintf("%.2f", report.Trend.Last30Days)},
			{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		}
		for store, count := range report.Trend.ByStore {
			facts = append(facts, WebhookFact{
				Name:  fmt.Sprintf("%s Reviews", strings.ToUpper(store)),
				Value: fmt.Sprintf("%d", count),
			})
		}
		message.Sections = append(message.Sections, WebhookSection{
			ActivityTitle: "Trend",
			Facts:         facts,
			Markdown:      true,
		})
	}

	if report.Insights != nil {
		section := WebhookSection{
			ActivityTitle: "Current Topics",
			ActivityText:  report.Insights.Summary,
			Markdown:      true,
		}
		if len(report.Insights.Topics) > 0 {
			section.ActivityText += "\n\n**Topics:** " + strings.Join(report.Insights.Topics, ", ")
		}
		message.Sections = append(message.Sections, section)

		if highlights := s.formatHighlights(report.Insights); highlights != "" {
			message.Sections = append(message.Sections, WebhookSection{
				ActivityTitle: "Highlights",
				ActivityText:  highlights,
				Markdown:      true,
			})
		}
	}

	return message
}

func (s *Service) formatHighlights(insights *models.Insights) string {
	var lines []string
	for _, r := range insights.TopReviews {
		lines = append(lines, fmt.Sprintf("👍 %s (%s, %d★): \"%s\"", r.App, strings.ToUpper(r.Store), r.Rating, truncate(r.Text, 160)))
	}
	for _, r := range insights.BottomReviews {
		lines = append(lines, fmt.Sprintf("👎 %s (%s, %d★): \"%s\"", r.App, strings.ToUpper(r.Store), r.Rating, truncate(r.Text, 160)))
	}
	return strings.Join(lines, "\n\n")
}

func (s *Service) sendEmail(report *models.Report) error {
	subject := fmt.Sprintf("App Feedback Report - %s (%d new reviews)",
		report.GeneratedAt.Format("2006-01-02"), report.NewReviews)

	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(report)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(report *models.Report) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>App Feedback Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #1877f2; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .review { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .review.good { border-left-color: #107c10; }
        .review.bad { border-left-color: #d13438; }
        .meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>App Feedback Report</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}} — {{.NewReviews}} new reviews</p>
    </div>

    {{if .Trend}}
    <div class="summary">
        <h2>Trend</h2>
        <p><strong>Overall:</strong> {{printf "%.2f" .Trend.Overall}} ★</p>
        <p><strong>Last 7 days:</strong> {{printf "%.2f" .Trend.Last7Days}} ★</p>
        <p><strong>Last 30 days:</strong> {{printf "%.2f" .Trend.Last30Days}} ★</p>
    </div>
    {{end}}

    {{if .Insights}}
    <div class="summary">
        <h2>Analysis</h2>
        <p>{{.Insights.Summary}}</p>
        {{if .Insights.Topics}}<p><strong>Topics:</strong> {{range $i, $t := .Insights.Topics}}{{if $i}}, {{end}}{{$t}}{{end}}</p>{{end}}
    </div>

    {{range .Insights.TopReviews}}
    <div class="review good">
        <p>"{{.Text | truncate 200}}"</p>
        <div class="meta">{{.App}} | {{.Store}} | {{.Rating}}★ | {{.Date}}</div>
    </div>
    {{end}}
    {{range .Insights.BottomReviews}}
    <div class="review bad">
        <p>"{{.Text | truncate 200}}"</p>
        <div class="meta">{{.App}} | {{.Store}} | {{.Rating}}★ | {{.Date}}</div>
    </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by the App Feedback Bot.</small></p>
</body>
</html>
`

	t := template.New("email").Funcs(template.FuncMap{
		"truncate": func(length int, s string) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString("App Feedback Report\n")
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("New Reviews: %d\n", report.NewReviews))
	text.WriteString(fmt.Sprintf("Total Reviews: %d\n", report.TotalReviews))

	if report.Trend != nil {
		text.WriteString(fmt.Sprintf("Overall Rating: %.2f\n", report.Trend.Overall))
		text.WriteString(fmt.Sprintf("Last 7 Days: %.2f\n", report.Trend.Last7Days))
		text.WriteString(fmt.Sprintf("Last 30 Days: %.2f\n", report.Trend.Last30Days))
		for store, count := range report.Trend.ByStore {
			text.WriteString(fmt.Sprintf("%s Reviews: %d\n", strings.ToUpper(store), count))
		}
	}

	if report.Insights != nil {
		text.WriteString("\nANALYSIS\n")
		text.WriteString("========\n")
		text.WriteString(report.Insights.Summary + "\n")
		if len(report.Insights.Topics) > 0 {
			text.WriteString(fmt.Sprintf("Topics: %s\n", strings.Join(report.Insights.Topics, ", ")))
		}

		for _, r := range report.Insights.TopReviews {
			text.WriteString(fmt.Sprintf("\n+ [%d★] %s (%s): %s\n", r.Rating, r.App, r.Store, truncate(r.Text, 200)))
		}
		for _, r := range report.Insights.BottomReviews {
			text.WriteString(fmt.Sprintf("\n- [%d★] %s (%s): %s\n", r.Rating, r.App, r.Store, truncate(r.Text, 200)))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by the App Feedback Bot.\n")

	return text.String()
}

// SendAlert sends an urgent notification through the webhook channel.
func (s *Service) SendAlert(alert *models.Alert) error {
	if s.config.WebhookURL == "" {
		logrus.Infof("No webhook configured, dropping alert: %s - %s", alert.Type, alert.Title)
		return nil
	}

	message := &WebhookMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   alert.Title,
		Text:    alert.Message,
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post alert: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook returned status %d for alert", resp.StatusCode())
	}

	return nil
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length] + "..."
}
