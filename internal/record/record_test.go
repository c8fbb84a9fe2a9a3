package record

import (
	"strings"
	"testing"
	"time"

	"github.com/quailyard/mailharvest/internal/message"
)

var sent = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func TestResolveID_NativeIDUnchanged(t *testing.T) {
	id := ResolveID("abc123@mail.example.com", "a@example.com", "Hi", sent)
	if id != "abc123@mail.example.com" {
		t.Errorf("expected native id returned unchanged, got %q", id)
	}
}

func TestResolveID_SyntheticIsDeterministic(t *testing.T) {
	a := ResolveID("", "a@example.com", "Hi", sent)
	b := ResolveID("", "a@example.com", "Hi", sent)
	if a != b {
		t.Errorf("same inputs produced different ids: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "sha256:") {
		t.Errorf("synthetic id missing sha256 prefix: %q", a)
	}
}

func TestResolveID_SyntheticDiffersOnInputs(t *testing.T) {
	base := ResolveID("", "a@example.com", "Hi", sent)

	if got := ResolveID("", "b@example.com", "Hi", sent); got == base {
		t.Error("different senders collided")
	}
	if got := ResolveID("", "a@example.com", "Bye", sent); got == base {
		t.Error("different subjects collided")
	}
	if got := ResolveID("", "a@example.com", "Hi", sent.Add(time.Second)); got == base {
		t.Error("different sent times collided")
	}
}

func TestFromParsed_FullMessage(t *testing.T) {
	resolvedAt := time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC)
	parsed := &message.Parsed{
		Sender:    "alice@example.com",
		Subject:   "Quarterly report",
		SentAt:    sent,
		MessageID: "q1@mail.example.com",
	}

	rec := FromParsed(parsed, resolvedAt)

	if rec.MessageID != "q1@mail.example.com" {
		t.Errorf("MessageID = %q", rec.MessageID)
	}
	if rec.Sender != "alice@example.com" {
		t.Errorf("Sender = %q", rec.Sender)
	}
	if rec.Subject != "Quarterly report" {
		t.Errorf("Subject = %q", rec.Subject)
	}
	if !rec.Timestamp.Equal(sent) {
		t.Errorf("Timestamp = %v, want sent date %v", rec.Timestamp, sent)
	}
	if !rec.ProcessedAt.Equal(resolvedAt) {
		t.Errorf("ProcessedAt = %v", rec.ProcessedAt)
	}
	if !rec.LastUpdated.Equal(resolvedAt) {
		t.Errorf("LastUpdated = %v", rec.LastUpdated)
	}
}

func TestFromParsed_Defaults(t *testing.T) {
	resolvedAt := time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC)

	rec := FromParsed(&message.Parsed{}, resolvedAt)

	if rec.Sender != UnknownSender {
		t.Errorf("Sender = %q, want %q", rec.Sender, UnknownSender)
	}
	if rec.Subject != NoSubject {
		t.Errorf("Subject = %q, want %q", rec.Subject, NoSubject)
	}
	if !rec.Timestamp.Equal(resolvedAt) {
		t.Errorf("Timestamp = %v, want resolution time fallback", rec.Timestamp)
	}
}

func TestFromParsed_SyntheticIDIgnoresResolutionTime(t *testing.T) {
	parsed := &message.Parsed{
		Sender:  "alice@example.com",
		Subject: "no message-id here",
		SentAt:  sent,
	}

	first := FromParsed(parsed, time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC))
	second := FromParsed(parsed, time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC))

	if first.MessageID != second.MessageID {
		t.Errorf("re-ingesting the same id-less message changed identity: %q vs %q",
			first.MessageID, second.MessageID)
	}
}
