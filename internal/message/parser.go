package message

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-message/mail"
)

// Parsed holds the normalized header fields extracted from a message.
// Absent headers are left as zero values; defaults are the mapper's job.
type Parsed struct {
	Sender    string
	Subject   string
	SentAt    time.Time
	MessageID string // native Message-ID without angle brackets, if any
}

// Parser extracts Parsed fields from raw RFC 5322 bytes.
type Parser struct{}

// Parse reads the message headers from raw bytes. The body is not
// consumed beyond what header parsing requires.
func (Parser) Parse(raw []byte) (*Parsed, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	p := &Parsed{}

	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		p.Sender = addrs[0].Address
	}
	if subject, err := mr.Header.Subject(); err == nil {
		p.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		p.SentAt = date
	}
	if id, err := mr.Header.MessageID(); err == nil {
		p.MessageID = id
	}

	return p, nil
}
