package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quailyard/mailharvest/internal/message"
	"github.com/quailyard/mailharvest/internal/record"
	"github.com/quailyard/mailharvest/internal/store"
)

// MailSource is the remote mailbox the pipeline drains. The session is
// not assumed to be safe for concurrent commands; the pipeline issues
// all source calls from a single goroutine.
type MailSource interface {
	Connect(ctx context.Context) error
	SelectMailbox(ctx context.Context, name string) error
	SearchUnread(ctx context.Context) ([]uint32, error)
	FetchRaw(ctx context.Context, handle uint32) ([]byte, error)
	MarkSeen(ctx context.Context, handle uint32) error
	Close() error
}

// MessageParser turns raw RFC 5322 bytes into normalized fields.
type MessageParser interface {
	Parse(raw []byte) (*message.Parsed, error)
}

// RecordStore persists records keyed on message_id. Upsert must be
// safe to call concurrently for different keys.
type RecordStore interface {
	Upsert(ctx context.Context, rec record.EmailRecord) error
}

// Report summarizes one run. Seen = Stored + Skipped always holds by
// the time Run returns.
type Report struct {
	Seen          int
	Stored        int
	Skipped       int
	SkippedByKind map[Kind]int
}

func newReport() *Report {
	return &Report{SkippedByKind: make(map[Kind]int)}
}

// Options tunes a Pipeline.
type Options struct {
	Mailbox  string // defaults to INBOX
	MarkSeen bool   // set \Seen on messages after a successful store
	Workers  int    // parse/store fan-out, defaults to 4
}

// Pipeline fetches unread messages, parses them, and upserts one
// record per message. Re-running it against the same mailbox never
// produces duplicate records.
type Pipeline struct {
	source   MailSource
	parser   MessageParser
	store    RecordStore
	mailbox  string
	markSeen bool
	workers  int
	logger   *slog.Logger

	now func() time.Time
}

// New creates a Pipeline.
func New(src MailSource, parser MessageParser, st RecordStore, opts Options, logger *slog.Logger) *Pipeline {
	mailbox := opts.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}

	return &Pipeline{
		source:   src,
		parser:   parser,
		store:    st,
		mailbox:  mailbox,
		markSeen: opts.MarkSeen,
		workers:  workers,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes one batch: connect, select the mailbox, search unread,
// fetch each message and hand it to the workers, then wait for every
// dispatched message before reporting. Failures on individual messages
// are counted and logged, never fatal to the batch; failures before
// the search completes abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	started := p.now()

	if err := p.source.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect mail source: %w", err)
	}
	defer func() {
		if err := p.source.Close(); err != nil {
			p.logger.Warn("closing mail source", "error", err)
		}
	}()

	if err := p.source.SelectMailbox(ctx, p.mailbox); err != nil {
		return nil, fmt.Errorf("select mailbox %s: %w", p.mailbox, err)
	}

	handles, err := p.source.SearchUnread(ctx)
	if err != nil {
		return nil, fmt.Errorf("search unread: %w", err)
	}

	rep := newReport()
	rep.Seen = len(handles)

	if len(handles) == 0 {
		p.logger.Info("no unread messages", "mailbox", p.mailbox)
		return rep, nil
	}

	p.logger.Info("processing unread messages",
		"mailbox", p.mailbox,
		"count", len(handles),
	)

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, p.workers)
		stored []uint32
	)

	skip := func(kind Kind, handle uint32, id string, err error) {
		mu.Lock()
		rep.Skipped++
		rep.SkippedByKind[kind]++
		mu.Unlock()

		p.logger.Error("message skipped",
			"handle", handle,
			"message_id", id,
			"kind", string(kind),
			"error", err,
		)
	}

	// Raw fetches stay on this goroutine because the mail session is
	// single-tracked; everything after the bytes are in hand fans out.
	for _, handle := range handles {
		raw, err := p.source.FetchRaw(ctx, handle)
		if err != nil {
			kind := KindFetch
			if ctx.Err() != nil {
				kind = KindTransport
			}
			skip(kind, handle, "", err)
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(handle uint32, raw []byte) {
			defer wg.Done()
			defer func() { <-sem }()

			id, kind, err := p.process(ctx, handle, raw)
			if err != nil {
				skip(kind, handle, id, err)
				return
			}

			mu.Lock()
			rep.Stored++
			stored = append(stored, handle)
			mu.Unlock()

			p.logger.Info("message stored", "handle", handle, "message_id", id)
		}(handle, raw)
	}

	// Drain before declaring the run complete.
	wg.Wait()

	if p.markSeen {
		p.markStored(ctx, stored)
	}

	p.logger.Info("run complete",
		"mailbox", p.mailbox,
		"seen", rep.Seen,
		"stored", rep.Stored,
		"skipped", rep.Skipped,
		"duration", p.now().Sub(started),
	)
	return rep, nil
}

// process parses, maps and upserts one message. On failure it returns
// the identity attempted so far (may be empty) and the skip kind.
func (p *Pipeline) process(ctx context.Context, handle uint32, raw []byte) (string, Kind, error) {
	parsed, err := p.parser.Parse(raw)
	if err != nil {
		return "", KindParse, fmt.Errorf("parse message %d: %w", handle, err)
	}

	rec := record.FromParsed(parsed, p.now())

	if err := p.store.Upsert(ctx, rec); err != nil {
		kind := KindStore
		if errors.Is(err, store.ErrIdentityConflict) {
			kind = KindIdentity
		}
		return rec.MessageID, kind, err
	}

	return rec.MessageID, "", nil
}

// markStored flags successfully stored messages as seen, sequentially
// on the dispatch goroutine. A failed flag only means the message is
// re-examined next run, which the upsert absorbs.
func (p *Pipeline) markStored(ctx context.Context, handles []uint32) {
	for _, handle := range handles {
		if err := p.source.MarkSeen(ctx, handle); err != nil {
			p.logger.Warn("mark seen failed", "handle", handle, "error", err)
		}
	}
}
