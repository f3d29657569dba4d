package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/dmsharma/researcher/internal/research"
)

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := NewStore(time.Hour)
	run := research.Run{ID: "r1", Query: "ev trends", Status: research.StatusRunning}
	if err := s.Save(context.Background(), run); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Get(context.Background(), "r1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Query != "ev trends" || got.Status != research.StatusRunning {
		t.Fatalf("unexpected run: %+v", got)
	}
}

func TestGetMissingRun(t *testing.T) {
	s := NewStore(time.Hour)
	_, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	s := NewStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	if err := s.Save(context.Background(), research.Run{ID: "r1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok, _ := s.Get(context.Background(), "r1"); ok {
		t.Fatalf("expected expired entry to be invisible")
	}
}
