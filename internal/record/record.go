package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/quailyard/mailharvest/internal/message"
)

// Sentinel values stored when a message omits the corresponding header.
const (
	UnknownSender = "unknown"
	NoSubject     = "[No subject]"
)

// EmailRecord is the document persisted for each ingested message.
// message_id carries a unique index; writes are upserts keyed on it.
type EmailRecord struct {
	MessageID   string    `bson:"message_id"`
	Sender      string    `bson:"sender"`
	Subject     string    `bson:"subject"`
	Timestamp   time.Time `bson:"timestamp"`
	ProcessedAt time.Time `bson:"processed_at"`
	LastUpdated time.Time `bson:"last_updated"`
}

// ResolveID derives the stable identity for a message. A non-empty
// native Message-ID is returned unchanged. Otherwise the id is a
// digest over sender, subject and the sent time only — no wall clock
// and no randomness — so re-ingesting the same id-less message always
// collapses to one record.
func ResolveID(nativeID, sender, subject string, sentAt time.Time) string {
	if nativeID != "" {
		return nativeID
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d", sender, subject, sentAt.UnixNano())
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// FromParsed maps a parsed message to its persisted record. resolvedAt
// is the time this pipeline run resolved the message; it fills in for
// a missing sent date and stamps processed_at and last_updated.
func FromParsed(p *message.Parsed, resolvedAt time.Time) EmailRecord {
	sender := p.Sender
	if sender == "" {
		sender = UnknownSender
	}

	subject := p.Subject
	if subject == "" {
		subject = NoSubject
	}

	timestamp := p.SentAt
	if timestamp.IsZero() {
		timestamp = resolvedAt
	}

	return EmailRecord{
		MessageID:   ResolveID(p.MessageID, p.Sender, p.Subject, p.SentAt),
		Sender:      sender,
		Subject:     subject,
		Timestamp:   timestamp,
		ProcessedAt: resolvedAt,
		LastUpdated: resolvedAt,
	}
}
