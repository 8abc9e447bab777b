package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/DavidDevlo/FINTide/src/config"
	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/utils"
)

// DueReminder is what gets delivered to the user when a subscription is
// coming up: which subscription, how much, and how many days remain.
type DueReminder struct {
	SubscriptionID    int64
	Title             string
	AmountCents       *int64
	DueAt             int64 // epoch ms
	DaysBefore        int
	NotificationTitle string
	NotificationBody  string
}

// Notifier delivers due reminders. Implementations must be safe for
// concurrent use; the scheduler fires them from timer goroutines.
type Notifier interface {
	NotifyDue(r DueReminder) error
}

// NewNotifier picks a notifier from configuration. Incomplete provider
// configuration falls back to the log notifier rather than failing startup.
func NewNotifier() Notifier {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Reminder notifier will default to log.")
		return &LogNotifier{}
	}

	provider := strings.ToLower(config.Cfg.ReminderProvider)
	logger.L.Info("Initializing reminder notifier", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateKey == "" ||
			config.Cfg.SenderEmail == "" || config.Cfg.ReminderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, SenderEmail or ReminderEmail missing). Falling back to LogNotifier.")
			return &LogNotifier{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunNotifier{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
			toEmail:     config.Cfg.ReminderEmail,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" ||
			config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" || config.Cfg.ReminderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to LogNotifier.")
			return &LogNotifier{}
		}
		return &SMTPNotifier{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
			ToEmail:      config.Cfg.ReminderEmail,
		}
	default:
		logger.L.Info("Defaulting to LogNotifier.")
		return &LogNotifier{}
	}
}

// reminderSubject and reminderBody render the two delivery texts. The zero
// offset gets its own wording so "due in 0 days" never reaches the user.
func reminderSubject(r DueReminder) string {
	if r.NotificationTitle != "" {
		return r.NotificationTitle
	}
	if r.DaysBefore == 0 {
		return fmt.Sprintf("%s is due today", r.Title)
	}
	if r.DaysBefore == 1 {
		return fmt.Sprintf("%s is due tomorrow", r.Title)
	}
	return fmt.Sprintf("%s is due in %d days", r.Title, r.DaysBefore)
}

func reminderBody(r DueReminder) string {
	if r.NotificationBody != "" {
		return r.NotificationBody
	}
	due := utils.FormatMillis(r.DueAt)
	if r.AmountCents != nil {
		return fmt.Sprintf("Your payment of %s for %s is due on %s.",
			utils.FormatCents(*r.AmountCents), r.Title, due)
	}
	return fmt.Sprintf("Your payment for %s is due on %s.", r.Title, due)
}

// LogNotifier writes reminders to the application log. It is the default and
// the fallback when an email provider is misconfigured.
type LogNotifier struct{}

func (n *LogNotifier) NotifyDue(r DueReminder) error {
	logger.L.Info("Subscription due reminder",
		"subscriptionId", r.SubscriptionID,
		"title", reminderSubject(r),
		"body", reminderBody(r),
		"daysBefore", r.DaysBefore)
	return nil
}

type MailgunNotifier struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	toEmail     string
}

func (n *MailgunNotifier) NotifyDue(r DueReminder) error {
	from := fmt.Sprintf("%s <%s>", n.senderName, n.senderEmail)
	subject := reminderSubject(r)
	body := reminderBody(r)

	message := n.mg.NewMessage(from, subject, body, n.toEmail)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := n.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send due reminder via Mailgun", "error", err, "to", n.toEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Due reminder sent successfully via Mailgun", "to", n.toEmail, "id", id)
	return nil
}

type SMTPNotifier struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	ToEmail      string
}

func (n *SMTPNotifier) NotifyDue(r DueReminder) error {
	from := n.SenderEmail
	to := []string{n.ToEmail}
	subject := reminderSubject(r)
	body := reminderBody(r)

	header := make(map[string]string)
	header["From"] = from
	header["To"] = n.ToEmail
	header["Subject"] = subject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body
	auth := smtp.PlainAuth("", n.SMTPUser, n.SMTPPassword, n.SMTPServer)
	addr := fmt.Sprintf("%s:%d", n.SMTPServer, n.SMTPPort)
	if err := smtp.SendMail(addr, auth, from, to, []byte(message)); err != nil {
		logger.L.Error("Failed to send due reminder via SMTP", "error", err, "to", n.ToEmail)
		return fmt.Errorf("failed to send due reminder via SMTP: %w", err)
	}
	logger.L.Info("Due reminder sent successfully via SMTP", "to", n.ToEmail)
	return nil
}
