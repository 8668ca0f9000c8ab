// Package scanner implements the scan-and-dispatch pass: it joins
// fetched tender entries against keyword subscriptions and dedup
// records, drives summarization and delivery, and advances watermarks.
package scanner

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tenderbot/internal/bot"
	"tenderbot/internal/keyword"
	"tenderbot/internal/model"
	"tenderbot/internal/storage"
)

// Fetcher retrieves the normalized feed entries for one pass.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.FeedEntry, error)
}

// Summarizer produces a summary for an entry's text. It never fails.
type Summarizer interface {
	Summarize(ctx context.Context, raw string) string
}

// Notifier delivers a rendered notification to a chat.
type Notifier interface {
	SendNotification(chatID int64, text, tenderID string) error
}

// Storage is the subset of persistence the scanner needs.
type Storage interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	AdvanceWatermark(ctx context.Context, chatID int64, keyword string, ts time.Time) error
	MarkSent(ctx context.Context, chatID int64, tenderID string) error
	WasSent(ctx context.Context, chatID int64, tenderID string) (bool, error)
}

// Scanner periodically scans the tender feed and dispatches
// notifications. At most one pass runs at a time; a trigger that
// arrives while a pass is running is dropped, not queued.
type Scanner struct {
	store      Storage
	fetcher    Fetcher
	summarizer Summarizer
	notifier   Notifier
	matcher    *keyword.Matcher
	log        *slog.Logger
	tick       time.Duration
	running    atomic.Bool
}

// New creates a Scanner with the default 10-minute scan interval.
func New(store Storage, f Fetcher, s Summarizer, n Notifier, log *slog.Logger) *Scanner {
	return &Scanner{
		store:      store,
		fetcher:    f,
		summarizer: s,
		notifier:   n,
		matcher:    keyword.NewMatcher(),
		log:        log,
		tick:       10 * time.Minute,
	}
}

// SetTickInterval overrides the default scan interval.
func (s *Scanner) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scan loop, blocking until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	s.scan(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// scan executes one pass. The single-flight guard is released on every
// exit path; an overlapping trigger is a no-op.
func (s *Scanner) scan(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("scan already running, skipping")
		return
	}
	defer s.running.Store(false)

	entries, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.log.Error("fetch feed", "error", err)
		return
	}

	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		s.log.Error("list subscriptions", "error", err)
		return
	}

	s.log.Debug("scan pass", "entries", len(entries), "subscriptions", len(subs))

	for _, sub := range subs {
		for i := range entries {
			if ctx.Err() != nil {
				return
			}
			s.processPair(ctx, sub, entries[i])
		}
	}
}

// processPair runs all checks for one (subscription, entry) pair and
// dispatches when they pass. A failure here is isolated to the pair:
// the pass continues with the next one.
func (s *Scanner) processPair(ctx context.Context, sub model.Subscription, e model.FeedEntry) {
	if !s.matcher.Matches(e.Title, sub.Keyword) && !s.matcher.Matches(e.Summary, sub.Keyword) {
		return
	}

	ts, ok := entryTime(e)
	if !ok {
		return
	}
	if !ts.After(sub.LastSeen) {
		return
	}

	sent, err := s.store.WasSent(ctx, sub.ChatID, e.ID)
	if err != nil {
		s.log.Error("check sent", "chat", maskChatID(sub.ChatID), "tender_id", e.ID, "error", err)
		return
	}
	if sent {
		return
	}

	summ := s.summarizer.Summarize(ctx, e.Summary)
	msg := bot.BuildNotification(e, summ, sub.Keyword, e.UpdatedAt != nil)

	if err := s.notifier.SendNotification(sub.ChatID, msg, e.ID); err != nil {
		s.log.Error("send notification", "chat", maskChatID(sub.ChatID), "tender_id", e.ID, "error", err)
		return
	}

	if err := s.store.MarkSent(ctx, sub.ChatID, e.ID); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.log.Debug("duplicate sent record", "chat", maskChatID(sub.ChatID), "tender_id", e.ID)
		} else {
			s.log.Error("mark sent", "chat", maskChatID(sub.ChatID), "tender_id", e.ID, "error", err)
		}
	}

	if err := s.store.AdvanceWatermark(ctx, sub.ChatID, sub.Keyword, ts); err != nil {
		s.log.Error("advance watermark", "chat", maskChatID(sub.ChatID), "keyword", sub.Keyword, "error", err)
	}
}

// entryTime picks the entry's best timestamp, preferring updated over
// published. Entries without any usable timestamp are not considered.
func entryTime(e model.FeedEntry) (time.Time, bool) {
	if e.UpdatedAt != nil {
		return *e.UpdatedAt, true
	}
	if e.PublishedAt != nil {
		return *e.PublishedAt, true
	}
	return time.Time{}, false
}

// maskChatID hides chat identifiers in logs.
func maskChatID(chatID int64) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%d", chatID)))
	return hex.EncodeToString(h[:])[:6]
}
