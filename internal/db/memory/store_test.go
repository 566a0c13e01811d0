package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/recommender/internal/db"
)

func TestStore_SetGet(t *testing.T) {
	s := NewStore(10, 0)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("expected v, got %q", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore(10, 0)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStore_SetWithTTL_Expires(t *testing.T) {
	s := NewStore(10, 0)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("expected entry before TTL, got %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after TTL, got %v", err)
	}
}

func TestStore_SetWithTTL_Overwrites(t *testing.T) {
	s := NewStore(10, 0)
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "k", []byte("old"), time.Hour)
	_ = s.SetWithTTL(ctx, "k", []byte("new"), time.Hour)

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected new, got %q", got)
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	s := NewStore(2, 0)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"))
	_ = s.Set(ctx, "b", []byte("2"))
	_ = s.Set(ctx, "c", []byte("3"))

	if _, err := s.Get(ctx, "a"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected a to be evicted, got %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", s.Len())
	}
}

func TestStore_ValuesAreCopied(t *testing.T) {
	s := NewStore(10, 0)
	ctx := context.Background()

	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'

	got, _ := s.Get(ctx, "k")
	got[1] = 'y'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestStore_Del(t *testing.T) {
	s := NewStore(10, 0)
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"))
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("deleting a missing key should not fail: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStore_Ping(t *testing.T) {
	if err := NewStore(1, 0).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
