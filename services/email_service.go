package services

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"unidos-api/config"
	"unidos-api/documents"
)

// EmailService delivers lifecycle notices over SMTP. When no SMTP host
// is configured the service stays disabled and every send is a no-op.
type EmailService struct {
	dialer  *gomail.Dialer
	from    string
	notify  string
	enabled bool
}

func NewEmailService(cfg *config.Config) *EmailService {
	if cfg.SMTPHost == "" || cfg.SMTPUsername == "" {
		return &EmailService{}
	}
	return &EmailService{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:    fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		notify:  cfg.NotifyEmail,
		enabled: true,
	}
}

func (e *EmailService) send(subject, body string) error {
	if !e.enabled || e.notify == "" {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.notify)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return e.dialer.DialAndSend(m)
}

func (e *EmailService) EventPublished(doc *documents.EventDocument) error {
	return e.send(
		fmt.Sprintf("Event published: %s", doc.Title),
		fmt.Sprintf("The event %q is now public and accepting registrations.\nLocation: %s", doc.Title, doc.Location),
	)
}

func (e *EmailService) EventCancelled(doc *documents.EventDocument, reason string) error {
	body := fmt.Sprintf("The event %q has been cancelled.", doc.Title)
	if reason != "" {
		body += "\nReason: " + reason
	}
	return e.send(fmt.Sprintf("Event cancelled: %s", doc.Title), body)
}

func (e *EmailService) MegaEventStatusChanged(doc *documents.MegaEventDocument, from, to string) error {
	return e.send(
		fmt.Sprintf("Mega-event update: %s", doc.Title),
		fmt.Sprintf("The mega-event %q moved from %s to %s.", doc.Title, from, to),
	)
}
