package email

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/example/recipient-mailer/internal/util"
)

const contentTypeText = "text/plain"

// Message is a fully rendered RFC 5322 message plus its envelope addresses.
type Message struct {
	ID      string
	From    string
	To      string
	Subject string
	raw     []byte
}

// Bytes returns the rendered message, headers included.
func (m *Message) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.raw
}

// BuildMessage renders a single part text/plain message for payload. The
// Message-ID is generated from the sender domain when the payload has none.
func BuildMessage(payload *Payload, now time.Time) (*Message, error) {
	if payload == nil {
		return nil, errors.New("email: payload is required")
	}

	from, err := util.ParseAddress(payload.From)
	if err != nil {
		return nil, fmt.Errorf("email: from: %w", err)
	}
	to, err := util.ParseAddress(payload.To)
	if err != nil {
		return nil, fmt.Errorf("email: to: %w", err)
	}

	id := strings.Trim(strings.TrimSpace(payload.MessageID), "<>")
	if id == "" {
		id = fmt.Sprintf("%s@%s", uuid.NewString(), util.Domain(from))
	}
	subject := sanitizeHeaderValue(payload.Subject)

	m := gomail.NewMessage(gomail.SetCharset("UTF-8"), gomail.SetEncoding(gomail.QuotedPrintable))
	m.SetAddressHeader("From", from, "")
	m.SetAddressHeader("To", to, "")
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", "<"+id+">")
	m.SetDateHeader("Date", now)
	m.SetBody(contentTypeText, normalizeBody(payload.Body))

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("email: render message: %w", err)
	}

	return &Message{
		ID:      id,
		From:    from,
		To:      to,
		Subject: subject,
		raw:     buf.Bytes(),
	}, nil
}

func normalizeBody(body string) string {
	if body == "" {
		return ""
	}
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

func sanitizeHeaderValue(value string) string {
	clean := strings.ReplaceAll(value, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return strings.TrimSpace(clean)
}
