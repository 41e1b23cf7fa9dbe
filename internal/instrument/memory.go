package instrument

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemorySink keeps the most recent events in memory. It backs the event
// endpoints when no database is configured.
type MemorySink struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

var _ EventSink = (*MemorySink)(nil)

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemorySink{capacity: capacity}
}

func (m *MemorySink) InsertEvents(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	if over := len(m.events) - m.capacity; over > 0 {
		m.events = append([]Event(nil), m.events[over:]...)
	}
	return nil
}

func (m *MemorySink) ListEvents(_ context.Context, filter EventFilter) ([]Event, int, error) {
	m.mu.RLock()
	matched := make([]Event, 0)
	for _, e := range m.events {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if filter.Ascending {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []Event{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *MemorySink) DeleteEventsOlderThan(_ context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var deleted int64
	for _, e := range m.events {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}
