package mailsource

import (
	"context"
	"fmt"
	"log/slog"

	pop3client "github.com/knadh/go-pop3"
)

// POP3Source fetches messages over POP3S. POP3 has no server-side seen
// flag, so every message in the maildrop counts as unread on each run;
// the keyed upsert downstream is what makes repeated pulls safe.
type POP3Source struct {
	host               string
	port               int
	username           string
	password           string
	insecureSkipVerify bool
	logger             *slog.Logger

	conn *pop3client.Conn
}

// NewPOP3 creates a POP3 source. Connect must be called before any
// other operation.
func NewPOP3(host string, port int, username, password string, insecureSkipVerify bool, logger *slog.Logger) *POP3Source {
	return &POP3Source{
		host:               host,
		port:               port,
		username:           username,
		password:           password,
		insecureSkipVerify: insecureSkipVerify,
		logger:             logger,
	}
}

// Connect opens a TLS connection and authenticates.
func (s *POP3Source) Connect(_ context.Context) error {
	if s.insecureSkipVerify {
		s.logger.Warn("TLS certificate verification disabled", "host", s.host)
	}

	client := pop3client.New(pop3client.Opt{
		Host:          s.host,
		Port:          s.port,
		TLSEnabled:    true,
		TLSSkipVerify: s.insecureSkipVerify,
	})

	conn, err := client.NewConn()
	if err != nil {
		return fmt.Errorf("pop3 connect %s:%d: %w", s.host, s.port, err)
	}

	if err := conn.Auth(s.username, s.password); err != nil {
		_ = conn.Quit()
		return &AuthError{
			Server:  fmt.Sprintf("%s:%d", s.host, s.port),
			Message: fmt.Sprintf("auth as %s: %v", s.username, err),
		}
	}

	s.conn = conn
	return nil
}

// SelectMailbox is a no-op: POP3 exposes a single maildrop.
func (s *POP3Source) SelectMailbox(_ context.Context, name string) error {
	if name != "" && name != "INBOX" {
		s.logger.Warn("pop3 has no mailboxes, using the maildrop", "requested", name)
	}
	return nil
}

// SearchUnread lists the whole maildrop.
func (s *POP3Source) SearchUnread(_ context.Context) ([]uint32, error) {
	msgs, err := s.conn.List(0)
	if err != nil {
		return nil, fmt.Errorf("pop3 list: %w", err)
	}

	handles := make([]uint32, 0, len(msgs))
	for _, msg := range msgs {
		handles = append(handles, uint32(msg.ID))
	}
	return handles, nil
}

// FetchRaw retrieves the full raw bytes of one message.
func (s *POP3Source) FetchRaw(_ context.Context, handle uint32) ([]byte, error) {
	buf, err := s.conn.RetrRaw(int(handle))
	if err != nil {
		return nil, fmt.Errorf("pop3 retr %d: %w", handle, err)
	}
	return buf.Bytes(), nil
}

// MarkSeen is a no-op: POP3 has no read state to set.
func (s *POP3Source) MarkSeen(_ context.Context, _ uint32) error {
	return nil
}

// Close sends QUIT and drops the connection.
func (s *POP3Source) Close() error {
	if s.conn == nil {
		return nil
	}

	conn := s.conn
	s.conn = nil
	return conn.Quit()
}
