package eventpublisher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{{ID: "evt-1", EventType: domain.EventTypeMatchConfirmed}},
	}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents failed: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.published))
	}
	if len(repo.marked) != 1 || repo.marked[0] != "evt-1" {
		t.Fatalf("expected event to be marked published, got %#v", repo.marked)
	}
}

func TestProcessEventsContinuesOnPublishError(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", EventType: domain.EventTypeMatchConfirmed},
			{ID: "evt-2", EventType: domain.EventTypeMatchReleased},
		},
	}
	pub := &stubPublisher{
		errorsByID: map[string]error{"evt-1": errors.New("fail")},
	}
	ep := newTestPublisher(repo, pub)

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents returned error: %v", err)
	}

	if len(pub.published) != 1 || pub.published[0].ID != "evt-2" {
		t.Fatalf("expected only evt-2 to be published, got %#v", pub.published)
	}
	if len(repo.marked) != 1 || repo.marked[0] != "evt-2" {
		t.Fatalf("expected only evt-2 to be marked, got %#v", repo.marked)
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	repo := &stubOutboxRepo{}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)
	ep.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ep.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}

func TestCacheInvalidatorDropsUnmatchedListings(t *testing.T) {
	cache := &stubCache{}
	inv := NewCacheInvalidator(&stubPublisher{}, cache)

	tests := []struct {
		eventType  string
		wantDelete bool
	}{
		{domain.EventTypeMatchConfirmed, true},
		{domain.EventTypeMatchReleased, true},
		{domain.EventTypeImportFinished, true},
		{"unrelated.event", false},
	}

	for _, tt := range tests {
		cache.deleted = nil

		err := inv.Publish(context.Background(), &domain.OutboxEvent{ID: "evt", EventType: tt.eventType})
		if err != nil {
			t.Fatalf("%s: publish failed: %v", tt.eventType, err)
		}

		if tt.wantDelete {
			if len(cache.deleted) != 1 || !strings.HasPrefix(cache.deleted[0], "unmatched:") {
				t.Fatalf("%s: expected unmatched prefix invalidation, got %#v", tt.eventType, cache.deleted)
			}
		} else if len(cache.deleted) != 0 {
			t.Fatalf("%s: expected no invalidation, got %#v", tt.eventType, cache.deleted)
		}
	}
}

func TestCacheInvalidatorSkipsInvalidationOnPublishError(t *testing.T) {
	cache := &stubCache{}
	inv := NewCacheInvalidator(&stubPublisher{
		errorsByID: map[string]error{"evt": errors.New("fail")},
	}, cache)

	err := inv.Publish(context.Background(), &domain.OutboxEvent{
		ID:        "evt",
		EventType: domain.EventTypeMatchConfirmed,
	})
	if err == nil {
		t.Fatal("expected publish error to surface")
	}
	if len(cache.deleted) != 0 {
		t.Fatalf("expected no invalidation on failure, got %#v", cache.deleted)
	}
}

func newTestPublisher(repo *stubOutboxRepo, pub *stubPublisher) *EventPublisher {
	return NewEventPublisher(Config{
		OutboxRepo: repo,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
		BatchSize:  10,
		Interval:   5 * time.Millisecond,
	})
}

type stubOutboxRepo struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
	marked []string
}

func (s *stubOutboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return nil
}

func (s *stubOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) <= limit {
		return append([]*domain.OutboxEvent(nil), s.events...), nil
	}
	return append([]*domain.OutboxEvent(nil), s.events[:limit]...), nil
}

func (s *stubOutboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubOutboxRepo) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

type stubPublisher struct {
	published  []*domain.OutboxEvent
	errorsByID map[string]error
}

func (s *stubPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.published = append(s.published, event)
	return nil
}

type stubCache struct {
	deleted []string
}

func (s *stubCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("miss")
}

func (s *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (s *stubCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (s *stubCache) DeletePrefix(ctx context.Context, prefix string) error {
	s.deleted = append(s.deleted, prefix)
	return nil
}
