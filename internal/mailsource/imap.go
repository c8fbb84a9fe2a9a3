package mailsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPSource fetches unread messages over IMAPS.
type IMAPSource struct {
	host               string
	port               int
	username           string
	password           string
	insecureSkipVerify bool
	logger             *slog.Logger

	client *imapclient.Client
}

// NewIMAP creates an IMAP source. Connect must be called before any
// other operation.
func NewIMAP(host string, port int, username, password string, insecureSkipVerify bool, logger *slog.Logger) *IMAPSource {
	return &IMAPSource{
		host:               host,
		port:               port,
		username:           username,
		password:           password,
		insecureSkipVerify: insecureSkipVerify,
		logger:             logger,
	}
}

// Connect dials the server over TLS and logs in. Certificates are
// verified unless insecure_skip_verify was set explicitly.
func (s *IMAPSource) Connect(_ context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))

	tlsConfig := &tls.Config{ServerName: s.host}
	if s.insecureSkipVerify {
		s.logger.Warn("TLS certificate verification disabled", "host", s.host)
		tlsConfig.InsecureSkipVerify = true
	}

	client, err := imapclient.DialTLS(addr, &imapclient.Options{TLSConfig: tlsConfig})
	if err != nil {
		return fmt.Errorf("imap connect %s: %w", addr, err)
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Close()
		return &AuthError{
			Server:  addr,
			Message: fmt.Sprintf("login as %s: %v", s.username, err),
		}
	}

	s.client = client
	return nil
}

// SelectMailbox opens the mailbox read-write so flag changes are
// possible later.
func (s *IMAPSource) SelectMailbox(_ context.Context, name string) error {
	if _, err := s.client.Select(name, nil).Wait(); err != nil {
		return fmt.Errorf("imap select %s: %w", name, err)
	}
	return nil
}

// SearchUnread returns the UIDs of messages without the \Seen flag.
func (s *IMAPSource) SearchUnread(_ context.Context) ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search unseen: %w", err)
	}

	uids := data.AllUIDs()
	handles := make([]uint32, len(uids))
	for i, uid := range uids {
		handles[i] = uint32(uid)
	}
	return handles, nil
}

// FetchRaw retrieves the full raw bytes of one message. The fetch
// peeks, so it does not set \Seen itself.
func (s *IMAPSource) FetchRaw(_ context.Context, handle uint32) ([]byte, error) {
	uidSet := imap.UIDSetNum(imap.UID(handle))
	bodySection := &imap.FetchItemBodySection{Peek: true}

	fetchCmd := s.client.Fetch(uidSet, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", handle)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collect message %d: %w", handle, err)
	}

	raw := buf.FindBodySection(bodySection)
	if len(raw) == 0 {
		return nil, fmt.Errorf("message %d has no body", handle)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch message %d: %w", handle, err)
	}
	return raw, nil
}

// MarkSeen adds the \Seen flag to a message.
func (s *IMAPSource) MarkSeen(_ context.Context, handle uint32) error {
	uidSet := imap.UIDSetNum(imap.UID(handle))

	return s.client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close()
}

// Close logs out and drops the connection.
func (s *IMAPSource) Close() error {
	if s.client == nil {
		return nil
	}

	client := s.client
	s.client = nil

	if err := client.Logout().Wait(); err != nil {
		return client.Close()
	}
	return nil
}
