package message

import (
	"testing"
	"time"
)

const fullMessage = "From: Alice Example <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Hello there\r\n" +
	"Date: Fri, 15 Mar 2024 09:30:00 +0000\r\n" +
	"Message-ID: <abc123@mail.example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Just checking in.\r\n"

func TestParse_FullMessage(t *testing.T) {
	p, err := Parser{}.Parse([]byte(fullMessage))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if p.Sender != "alice@example.com" {
		t.Errorf("Sender = %q", p.Sender)
	}
	if p.Subject != "Hello there" {
		t.Errorf("Subject = %q", p.Subject)
	}
	if p.MessageID != "abc123@mail.example.com" {
		t.Errorf("MessageID = %q", p.MessageID)
	}

	want := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	if !p.SentAt.Equal(want) {
		t.Errorf("SentAt = %v, want %v", p.SentAt, want)
	}
}

func TestParse_MissingHeaders(t *testing.T) {
	raw := "To: bob@example.com\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"No sender, subject, date or id.\r\n"

	p, err := Parser{}.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if p.Sender != "" {
		t.Errorf("Sender = %q, want empty", p.Sender)
	}
	if p.Subject != "" {
		t.Errorf("Subject = %q, want empty", p.Subject)
	}
	if p.MessageID != "" {
		t.Errorf("MessageID = %q, want empty", p.MessageID)
	}
	if !p.SentAt.IsZero() {
		t.Errorf("SentAt = %v, want zero", p.SentAt)
	}
}
