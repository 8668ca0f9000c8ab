package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tenderbot/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUserDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.CreateUser(ctx, 100); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := s.CreateUser(ctx, 100); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second create = %v, want ErrAlreadyExists", err)
	}
	if err := s.CreateUser(ctx, 200); err != nil {
		t.Errorf("different chat must register: %v", err)
	}
}

func TestAddSubscriptionDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddSubscription(ctx, 100, "roadworks"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := s.AddSubscription(ctx, 100, "roadworks"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate add = %v, want ErrAlreadyExists", err)
	}
	// same keyword, different chat is a distinct subscription
	if err := s.AddSubscription(ctx, 200, "roadworks"); err != nil {
		t.Errorf("add for another chat: %v", err)
	}
}

func TestRemoveSubscription(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddSubscription(ctx, 100, "roadworks"); err != nil {
		t.Fatal(err)
	}

	ok, err := s.RemoveSubscription(ctx, 100, "roadworks")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !ok {
		t.Error("expected removal of an existing subscription")
	}

	ok, err = s.RemoveSubscription(ctx, 100, "roadworks")
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if ok {
		t.Error("removing a missing subscription must report false")
	}
}

func TestListKeywordsSorted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, kw := range []string{"roadworks", "bridges", "catering"} {
		if err := s.AddSubscription(ctx, 100, kw); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AddSubscription(ctx, 200, "cleaning"); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListKeywords(ctx, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"bridges", "catering", "roadworks"}, got); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestClearSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddSubscription(ctx, 100, "roadworks"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddSubscription(ctx, 200, "bridges"); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearSubscriptions(ctx, 100); err != nil {
		t.Fatalf("clear: %v", err)
	}

	kws, err := s.ListKeywords(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(kws) != 0 {
		t.Errorf("expected no keywords after clear, got %v", kws)
	}

	other, err := s.ListKeywords(ctx, 200)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"bridges"}, other); diff != "" {
		t.Errorf("other chat must be untouched (-want +got):\n%s", diff)
	}
}

func TestListSubscriptionsStartsAtEpoch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddSubscription(ctx, 100, "roadworks"); err != nil {
		t.Fatal(err)
	}

	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	if !subs[0].LastSeen.Equal(time.Unix(0, 0)) {
		t.Errorf("fresh watermark = %v, want epoch", subs[0].LastSeen)
	}
}

func TestAdvanceWatermarkMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddSubscription(ctx, 100, "roadworks"); err != nil {
		t.Fatal(err)
	}

	newer := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	if err := s.AdvanceWatermark(ctx, 100, "roadworks", newer); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// an out-of-order older timestamp must not regress the watermark
	if err := s.AdvanceWatermark(ctx, 100, "roadworks", older); err != nil {
		t.Fatalf("advance with older ts: %v", err)
	}

	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !subs[0].LastSeen.Equal(newer) {
		t.Errorf("watermark = %v, want %v", subs[0].LastSeen, newer)
	}
}

func TestMarkSentAndWasSent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sent, err := s.WasSent(ctx, 100, "notice-1001")
	if err != nil {
		t.Fatal(err)
	}
	if sent {
		t.Error("unrecorded pair must report not sent")
	}

	if err := s.MarkSent(ctx, 100, "notice-1001"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := s.MarkSent(ctx, 100, "notice-1001"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate mark = %v, want ErrAlreadyExists", err)
	}

	sent, err = s.WasSent(ctx, 100, "notice-1001")
	if err != nil {
		t.Fatal(err)
	}
	if !sent {
		t.Error("recorded pair must report sent")
	}

	// scoped per chat
	sent, err = s.WasSent(ctx, 200, "notice-1001")
	if err != nil {
		t.Fatal(err)
	}
	if sent {
		t.Error("dedup records must be scoped to the chat")
	}
}

func TestAddFeedback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fb := model.Feedback{
		ChatID:   100,
		TenderID: "notice-1001",
		Verdict:  model.VerdictRelevant,
	}
	if err := s.AddFeedback(ctx, fb); err != nil {
		t.Fatalf("add feedback: %v", err)
	}
	// repeated verdicts accumulate rather than conflict
	fb.Verdict = model.VerdictIrrelevant
	if err := s.AddFeedback(ctx, fb); err != nil {
		t.Fatalf("second feedback: %v", err)
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE chat_id = ? AND tender_id = ?`,
		100, "notice-1001",
	).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(2, count); diff != "" {
		t.Errorf("feedback row count mismatch (-want +got):\n%s", diff)
	}

	var verdict, created string
	err = s.db.QueryRowContext(ctx,
		`SELECT verdict, created_at FROM feedback ORDER BY rowid LIMIT 1`,
	).Scan(&verdict, &created)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(model.VerdictRelevant, verdict); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
	if _, err := time.Parse(timeLayout, created); err != nil {
		t.Errorf("created_at %q not in the storage layout: %v", created, err)
	}
}
