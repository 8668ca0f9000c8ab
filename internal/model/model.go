// Package model defines the domain types used across the application.
package model

import "time"

// FeedEntry is a normalized tender announcement taken from the feed.
// Optional timestamps are nil when the source carries no value.
type FeedEntry struct {
	ID          string
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}

// Subscription binds a chat to a keyword with a delivery watermark.
// LastSeen marks the newest entry timestamp already delivered to this
// subscription; it only ever moves forward.
type Subscription struct {
	ChatID    int64
	Keyword   string
	LastSeen  time.Time
	CreatedAt time.Time
}

// Feedback verdicts recorded from inline buttons.
const (
	VerdictRelevant   = "relevant"
	VerdictIrrelevant = "irrelevant"
)

// Feedback is a subscriber's relevance verdict on a delivered tender.
type Feedback struct {
	ChatID    int64
	TenderID  string
	Verdict   string
	CreatedAt time.Time
}
