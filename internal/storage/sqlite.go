package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"tenderbot/internal/model"
	"tenderbot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateUser registers a chat. Returns ErrAlreadyExists if the chat is
// already registered.
func (s *SQLite) CreateUser(ctx context.Context, chatID int64) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (chat_id, joined_at) VALUES (?, ?)`,
		chatID, now,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return requireInserted(res)
}

// AddSubscription creates a subscription with an epoch-zero watermark.
// Returns ErrAlreadyExists if the chat already watches the keyword.
func (s *SQLite) AddSubscription(ctx context.Context, chatID int64, keyword string) error {
	now := time.Now().UTC().Format(timeLayout)
	epoch := time.Unix(0, 0).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscriptions (chat_id, keyword, last_seen, created_at)
		 VALUES (?, ?, ?, ?)`,
		chatID, keyword, epoch, now,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return requireInserted(res)
}

// RemoveSubscription deletes a subscription and reports whether it existed.
func (s *SQLite) RemoveSubscription(ctx context.Context, chatID int64, keyword string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE chat_id = ? AND keyword = ?`, chatID, keyword,
	)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListKeywords returns the keywords a chat is subscribed to.
func (s *SQLite) ListKeywords(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword FROM subscriptions WHERE chat_id = ? ORDER BY keyword`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// ClearSubscriptions removes all subscriptions of a chat.
func (s *SQLite) ClearSubscriptions(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE chat_id = ?`, chatID,
	); err != nil {
		return fmt.Errorf("clear subscriptions: %w", err)
	}
	return nil
}

// ListSubscriptions returns every subscription in a stable order.
func (s *SQLite) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, keyword, last_seen, created_at
		 FROM subscriptions ORDER BY chat_id, keyword`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var lastSeen, created string
		if err := rows.Scan(&sub.ChatID, &sub.Keyword, &lastSeen, &created); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.LastSeen, _ = time.Parse(timeLayout, lastSeen)
		sub.CreatedAt, _ = time.Parse(timeLayout, created)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// AdvanceWatermark moves a subscription's watermark forward to ts.
// The guard in SQL keeps the watermark monotonically non-decreasing
// regardless of caller ordering.
func (s *SQLite) AdvanceWatermark(ctx context.Context, chatID int64, keyword string, ts time.Time) error {
	v := ts.UTC().Format(timeLayout)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET last_seen = ?
		 WHERE chat_id = ? AND keyword = ? AND last_seen < ?`,
		v, chatID, keyword, v,
	); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

// MarkSent records a delivered (chat, tender) pair exactly once.
// Returns ErrAlreadyExists if the pair is already recorded.
func (s *SQLite) MarkSent(ctx context.Context, chatID int64, tenderID string) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_notices (chat_id, tender_id, sent_at) VALUES (?, ?, ?)`,
		chatID, tenderID, now,
	)
	if err != nil {
		return fmt.Errorf("insert sent notice: %w", err)
	}
	return requireInserted(res)
}

// WasSent checks whether a (chat, tender) pair has already been delivered.
func (s *SQLite) WasSent(ctx context.Context, chatID int64, tenderID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_notices WHERE chat_id = ? AND tender_id = ?`,
		chatID, tenderID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent notice: %w", err)
	}
	return count > 0, nil
}

// AddFeedback stores a relevance verdict.
func (s *SQLite) AddFeedback(ctx context.Context, fb model.Feedback) error {
	created := fb.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (chat_id, tender_id, verdict, created_at) VALUES (?, ?, ?, ?)`,
		fb.ChatID, fb.TenderID, fb.Verdict, created.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// requireInserted maps a no-op INSERT OR IGNORE to ErrAlreadyExists.
func requireInserted(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}
