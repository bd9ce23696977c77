package email_test

import (
	"strings"
	"testing"
	"time"

	emailprovider "github.com/example/recipient-mailer/internal/providers/email"
)

func TestBuildMessageRendersPlaintext(t *testing.T) {
	now := time.Date(2025, time.October, 11, 10, 0, 0, 0, time.UTC)
	msg, err := emailprovider.BuildMessage(&emailprovider.Payload{
		MessageID: "<fixed-id@example.com>",
		From:      " sender@example.com ",
		To:        "user@example.org",
		Subject:   "This is a test email",
		Body:      "line one\nline two",
	}, now)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	if msg.ID != "fixed-id@example.com" {
		t.Fatalf("unexpected message id %q", msg.ID)
	}
	if msg.From != "sender@example.com" || msg.To != "user@example.org" {
		t.Fatalf("unexpected envelope %s -> %s", msg.From, msg.To)
	}

	raw := string(msg.Bytes())
	for _, want := range []string{
		"From: sender@example.com\r\n",
		"To: user@example.org\r\n",
		"Subject: This is a test email\r\n",
		"Message-ID: <fixed-id@example.com>\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"line one\r\nline two",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected rendered message to contain %q, got:\n%s", want, raw)
		}
	}
}

func TestBuildMessageGeneratesID(t *testing.T) {
	msg, err := emailprovider.BuildMessage(&emailprovider.Payload{
		From: "sender@Example.COM",
		To:   "user@example.org",
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if !strings.HasSuffix(msg.ID, "@example.com") {
		t.Fatalf("expected generated id under sender domain, got %q", msg.ID)
	}
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg, err := emailprovider.BuildMessage(&emailprovider.Payload{
		From:    "sender@example.com",
		To:      "user@example.org",
		Subject: "hello\r\nBcc: victim@example.net",
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if strings.Contains(string(msg.Bytes()), "\r\nBcc:") {
		t.Fatalf("expected subject line breaks to be removed")
	}
	if msg.Subject != "hello  Bcc: victim@example.net" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
}

func TestBuildMessageRejectsInvalidAddresses(t *testing.T) {
	tests := []struct {
		name    string
		payload *emailprovider.Payload
	}{
		{name: "nil payload", payload: nil},
		{name: "bad from", payload: &emailprovider.Payload{From: "not-an-address", To: "user@example.org"}},
		{name: "bad to", payload: &emailprovider.Payload{From: "sender@example.com", To: ""}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := emailprovider.BuildMessage(tc.payload, time.Now()); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}
