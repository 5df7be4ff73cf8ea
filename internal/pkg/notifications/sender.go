package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Message is what a sender delivers.
type Message struct {
	JobID     string
	Channel   string
	Recipient string
	Subject   string
	Body      string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer is the subset of mail.SMTPMailer used by EmailSender.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// WhatsAppSender posts messages to an HTTP WhatsApp gateway.
type WhatsAppSender struct {
	url    string
	token  string
	client *http.Client
}

func NewWhatsAppSender(url, token string, timeout time.Duration) *WhatsAppSender {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &WhatsAppSender{
		url:    strings.TrimSpace(url),
		token:  strings.TrimSpace(token),
		client: &http.Client{Timeout: timeout},
	}
}

type whatsAppRequest struct {
	To        string `json:"to"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
}

func (w *WhatsAppSender) Send(ctx context.Context, msg Message) error {
	if w.url == "" {
		return fmt.Errorf("whatsapp gateway url not configured")
	}
	body, err := json.Marshal(whatsAppRequest{To: msg.Recipient, Message: msg.Body, Reference: msg.JobID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}

// EmailSender delivers reminders by mail.
type EmailSender struct {
	mailer Mailer
}

func NewEmailSender(mailer Mailer) *EmailSender {
	return &EmailSender{mailer: mailer}
}

func (e *EmailSender) Send(ctx context.Context, msg Message) error {
	return e.mailer.Send(ctx, msg.Recipient, msg.Subject, msg.Body)
}

// LogSender writes the reminder to the application log. Used in development.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Infof("[Notifications] (log channel) job=%s to=%q: %s", msg.JobID, msg.Recipient, msg.Body)
	return nil
}
