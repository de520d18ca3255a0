// Package mailer отправляет письма бэк-офиса через SMTP-транспорт.
//
// Ошибка отправки не откатывает основную запись: сервисы логируют её
// и возвращают клиенту предупреждение Warning.
package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/smtp"
	"github.com/magabrotheeeer/hosting-backoffice/internal/metrics"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Warning текст предупреждения, когда запись сохранена, а письмо не ушло.
const Warning = "request completed, but the notification email could not be sent"

// ErrMalformedReminder сообщение очереди не удалось разобрать. Повтор не поможет.
var ErrMalformedReminder = errors.New("malformed expiry reminder")

// Mailer формирует и отправляет письма.
type Mailer struct {
	transport  smtp.TransportInterface
	adminInbox string
	log        *slog.Logger
}

// New создаёт Mailer. adminInbox получает уведомления о новых заявках партнёров.
func New(transport smtp.TransportInterface, adminInbox string, log *slog.Logger) *Mailer {
	return &Mailer{
		transport:  transport,
		adminInbox: adminInbox,
		log:        log,
	}
}

// SendPasswordResetOTP отправляет код сброса пароля.
func (m *Mailer) SendPasswordResetOTP(to, code string, ttl time.Duration) error {
	body := fmt.Sprintf("Your password reset code is %s.\n\nThe code expires in %d minutes. "+
		"If you did not request a reset, ignore this email.", code, int(ttl.Minutes()))
	return m.send("password_reset", []string{to}, "Password reset code", body)
}

// SendPartnerOTP отправляет код подтверждения почты партнёра.
func (m *Mailer) SendPartnerOTP(to, code string, ttl time.Duration) error {
	body := fmt.Sprintf("Your partner registration verification code is %s.\n\n"+
		"The code expires in %d minutes.", code, int(ttl.Minutes()))
	return m.send("partner_otp", []string{to}, "Verify your email", body)
}

// NotifyAdminPartnerRegistration сообщает администратору о полной заявке партнёра.
// Без настроенного ящика администратора письмо не отправляется.
func (m *Mailer) NotifyAdminPartnerRegistration(reg *models.PartnerRegistration) error {
	if m.adminInbox == "" {
		return nil
	}
	body := fmt.Sprintf("New partner registration awaiting review.\n\nCompany: %s\nContact: %s\n"+
		"Email: %s\nPhone: %s\nWebsite: %s\nBusiness type: %s\n\n%s",
		reg.CompanyName, reg.ContactName, reg.Email, reg.Phone, reg.Website, reg.BusinessType, reg.Message)
	return m.send("partner_admin", []string{m.adminInbox}, "New partner registration", body)
}

// NotifyPartnerStatus сообщает партнёру решение по заявке.
func (m *Mailer) NotifyPartnerStatus(reg *models.PartnerRegistration) error {
	var subject, body string
	switch reg.Status {
	case models.PartnerApproved:
		subject = "Your partner application was approved"
		body = fmt.Sprintf("Hello %s,\n\nYour partner application for %s was approved.", reg.ContactName, reg.CompanyName)
	case models.PartnerRejected:
		subject = "Your partner application was declined"
		body = fmt.Sprintf("Hello %s,\n\nUnfortunately your partner application for %s was declined.", reg.ContactName, reg.CompanyName)
	default:
		return nil
	}
	return m.send("partner_status", []string{reg.Email}, subject, body)
}

// SendFormAcknowledgement подтверждает получение формы.
func (m *Mailer) SendFormAcknowledgement(f *models.FormSubmission) error {
	body := fmt.Sprintf("Hello %s,\n\nThank you for contacting us. We received your %s request "+
		"and will get back to you shortly.", f.Name, strings.ReplaceAll(string(f.Type), "_", " "))
	return m.send("form_ack", []string{f.Email}, "We received your request", body)
}

// SendExpiryReminder обрабатывает сообщение из очереди напоминаний.
func (m *Mailer) SendExpiryReminder(body []byte) error {
	const op = "mailer.SendExpiryReminder"
	var r models.ExpiryReminder
	if err := json.Unmarshal(body, &r); err != nil {
		m.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedReminder, err)
	}

	name := r.Name
	if name == "" {
		name = r.Email
	}
	text := fmt.Sprintf("Hello %s,\n\nYour %s service %s (transaction %s) expires on %s.\n\n"+
		"Renew it in advance to avoid interruption.",
		name, strings.ToLower(r.ServiceType), r.ServiceID, r.TransactionID, r.ExpiresAt.Format("2006-01-02"))
	if err := m.send("expiry_reminder", []string{r.Email}, "Your service expires soon", text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *Mailer) send(kind string, to []string, subject, bodyText string) error {
	if err := m.sendEmail(to, subject, bodyText); err != nil {
		metrics.EmailFailed(kind)
		return err
	}
	return nil
}

func (m *Mailer) sendEmail(to []string, subject, bodyText string) error {
	from := m.transport.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := m.transport.Connect()
	if err != nil {
		m.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		m.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			m.log.Error("failed to set RCPT TO", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		m.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		m.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		m.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		m.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	m.log.Info("email sent", slog.String("subject", subject), slog.Int("recipients", len(to)))
	return nil
}
