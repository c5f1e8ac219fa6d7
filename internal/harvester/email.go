// =============================================================================
// email.go - SMTP delivery
// =============================================================================
//
// Gmail SMTP delivery of the composed report. Credentials come from the
// environment (EMAIL_FROM / EMAIL_PASSWORD must be a Gmail App Password);
// recipients from configuration or EMAIL_TO. Sending retries with
// exponential backoff because transient SMTP failures are common on
// scheduled runs.
//
// =============================================================================
package harvester

import (
	"fmt"
	"math"
	"net/smtp"
	"strings"
	"time"

	"news-harvester/internal/logger"
)

const (
	smtpHost       = "smtp.gmail.com"
	smtpPort       = "587"
	sendMaxRetries = 3
)

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	From     string
	Password string
	To       []string
}

// EmailSender delivers the report artifact.
type EmailSender struct {
	config EmailConfig
}

// NewEmailSender validates the delivery settings. A missing credential is a
// configuration error and fatal to delivery, unlike every scraping failure.
func NewEmailSender(from, password string, to []string) (*EmailSender, error) {
	if from == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required")
	}
	if password == "" {
		return nil, fmt.Errorf("EMAIL_PASSWORD is required (use a Gmail App Password)")
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	cleaned := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			cleaned = append(cleaned, addr)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	return &EmailSender{config: EmailConfig{From: from, Password: password, To: cleaned}}, nil
}

// Send delivers an HTML report with the given subject, retrying on failure.
func (es *EmailSender) Send(subject, htmlBody string) error {
	return es.sendWithRetry(es.buildMessage(subject, htmlBody))
}

// buildMessage assembles an RFC 5322 message with an HTML body.
func (es *EmailSender) buildMessage(subject, htmlBody string) []byte {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", es.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(es.config.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	return []byte(msg.String())
}

// sendWithRetry retries with exponential backoff: 2s, 4s, 8s.
func (es *EmailSender) sendWithRetry(msg []byte) error {
	var lastErr error

	for i := 0; i < sendMaxRetries; i++ {
		if i > 0 {
			wait := time.Duration(math.Pow(2, float64(i))) * time.Second
			logger.Log.Infof("retrying email send in %v", wait)
			time.Sleep(wait)
		}

		err := es.send(msg)
		if err == nil {
			return nil
		}

		lastErr = err
		logger.Log.WithError(err).Warnf("email send failed (attempt %d/%d)", i+1, sendMaxRetries)
	}

	return fmt.Errorf("failed to send email after %d retries: %w", sendMaxRetries, lastErr)
}

func (es *EmailSender) send(msg []byte) error {
	auth := smtp.PlainAuth("", es.config.From, es.config.Password, smtpHost)
	addr := smtpHost + ":" + smtpPort

	if err := smtp.SendMail(addr, auth, es.config.From, es.config.To, msg); err != nil {
		return fmt.Errorf("SMTP send failed: %w (check EMAIL_PASSWORD is a Gmail App Password)", err)
	}
	return nil
}
