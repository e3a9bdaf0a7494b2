package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	logx "elearnbot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetFingerprintIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	changed, err := s.SetFingerprint(ctx, "sub-a", "item-1", "d1", KindCourse)
	if err != nil {
		t.Fatalf("first set: %v", err)
	}
	if !changed {
		t.Fatal("first observation must report changed")
	}

	changed, err = s.SetFingerprint(ctx, "sub-a", "item-1", "d1", KindCourse)
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if changed {
		t.Fatal("same digest must report unchanged")
	}

	got, err := s.GetFingerprint(ctx, "sub-a", "item-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "d1" {
		t.Fatalf("stored digest = %q, want d1", got)
	}
}

func TestSetFingerprintOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SetFingerprint(ctx, "sub-a", "item-1", "d1", KindSection); err != nil {
		t.Fatal(err)
	}
	changed, err := s.SetFingerprint(ctx, "sub-a", "item-1", "d2", KindSection)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("new digest must report changed")
	}
	got, _ := s.GetFingerprint(ctx, "sub-a", "item-1")
	if got != "d2" {
		t.Fatalf("stored digest = %q, want d2", got)
	}
}

func TestFingerprintIsolationBetweenSubscribers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SetFingerprint(ctx, "sub-a", "item-1", "da", KindCourse); err != nil {
		t.Fatal(err)
	}
	// Same item key under a different subscriber: independent history.
	changed, err := s.SetFingerprint(ctx, "sub-b", "item-1", "db", KindCourse)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("subscriber B's first observation must report changed")
	}
	if got, _ := s.GetFingerprint(ctx, "sub-a", "item-1"); got != "da" {
		t.Fatalf("subscriber A digest = %q, want da", got)
	}
	if got, _ := s.GetFingerprint(ctx, "sub-b", "item-1"); got != "db" {
		t.Fatalf("subscriber B digest = %q, want db", got)
	}
}

func TestGetFingerprintNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetFingerprint(context.Background(), "nobody", "nothing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnsureSubscriberCreatesOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureSubscriber(ctx, 100)
	if err != nil {
		t.Fatalf("EnsureSubscriber: %v", err)
	}
	if !first.Active {
		t.Fatal("new subscriber should be active by default")
	}
	if len(first.ID) != 36 {
		t.Fatalf("expected UUID id, got %q", first.ID)
	}

	again, err := s.EnsureSubscriber(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Fatalf("second EnsureSubscriber created a new row: %s vs %s", again.ID, first.ID)
	}
}

func TestListSubscribersFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, _ := s.EnsureSubscriber(ctx, 1)
	b, _ := s.EnsureSubscriber(ctx, 2)
	c, _ := s.EnsureSubscriber(ctx, 3)

	b.Active = false
	if err := s.UpdateSubscriber(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBlocked(ctx, c.ID, true); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		filter ListFilter
		want   int
	}{
		{FilterAll, 3},
		{FilterActive, 2},
		{FilterInactive, 1},
		{FilterBlocked, 1},
		{FilterUnblocked, 2},
	}
	for _, tc := range cases {
		got, err := s.ListSubscribers(ctx, tc.filter)
		if err != nil {
			t.Fatalf("filter %s: %v", tc.filter, err)
		}
		if len(got) != tc.want {
			t.Fatalf("filter %s: got %d, want %d", tc.filter, len(got), tc.want)
		}
	}

	// Eligible excludes blocked even when active.
	elig, err := s.Eligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, sub := range elig {
		if sub.ID == c.ID {
			t.Fatal("blocked subscriber must never be eligible")
		}
	}
	if len(elig) != 1 || elig[0].ID != a.ID {
		t.Fatalf("eligible = %d subscribers, want only A", len(elig))
	}
}

func TestListSubscribersUnknownFilter(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ListSubscribers(context.Background(), ListFilter("bogus")); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}
