package workspace

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"corisa-backend/internal/store"
)

// SnapshotStore persists committed revisions. *store.Store implements it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *store.Snapshot) error
	LatestSnapshot(ctx context.Context) (*store.Snapshot, error)
	GetSnapshot(ctx context.Context, revision int) (*store.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]store.Snapshot, error)
}

var _ SnapshotStore = (*store.Store)(nil)

// memorySnapshots keeps the most recent revisions when no database is configured.
type memorySnapshots struct {
	mu       sync.RWMutex
	snaps    []store.Snapshot
	capacity int
}

func newMemorySnapshots(capacity int) *memorySnapshots {
	return &memorySnapshots{capacity: capacity}
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, snap *store.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.snaps {
		if existing.Revision == snap.Revision {
			return store.ErrUniqueViolation
		}
	}
	m.snaps = append(m.snaps, *snap)
	sort.Slice(m.snaps, func(i, j int) bool { return m.snaps[i].Revision < m.snaps[j].Revision })
	if over := len(m.snaps) - m.capacity; over > 0 {
		m.snaps = append([]store.Snapshot(nil), m.snaps[over:]...)
	}
	return nil
}

func (m *memorySnapshots) LatestSnapshot(_ context.Context) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.snaps) == 0 {
		return nil, store.ErrNotFound
	}
	snap := m.snaps[len(m.snaps)-1]
	return &snap, nil
}

func (m *memorySnapshots) GetSnapshot(_ context.Context, revision int) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, snap := range m.snaps {
		if snap.Revision == revision {
			found := snap
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memorySnapshots) ListSnapshots(_ context.Context, limit int) ([]store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]store.Snapshot, 0, len(m.snaps))
	for i := len(m.snaps) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		snap := m.snaps[i]
		snap.Document = nil
		result = append(result, snap)
	}
	return result, nil
}
