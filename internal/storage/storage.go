// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"tenderbot/internal/model"
)

// ErrAlreadyExists signals a unique-constraint conflict on insert,
// distinct from any other storage failure. Callers treat it as a
// benign race where appropriate.
var ErrAlreadyExists = errors.New("already exists")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateUser(ctx context.Context, chatID int64) error

	AddSubscription(ctx context.Context, chatID int64, keyword string) error
	RemoveSubscription(ctx context.Context, chatID int64, keyword string) (bool, error)
	ListKeywords(ctx context.Context, chatID int64) ([]string, error)
	ClearSubscriptions(ctx context.Context, chatID int64) error
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	AdvanceWatermark(ctx context.Context, chatID int64, keyword string, ts time.Time) error

	MarkSent(ctx context.Context, chatID int64, tenderID string) error
	WasSent(ctx context.Context, chatID int64, tenderID string) (bool, error)

	AddFeedback(ctx context.Context, fb model.Feedback) error

	Close() error
}
