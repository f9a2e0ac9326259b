package progress

import (
	"context"
	"sync"

	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/session"
)

// MemoryStore is the in-process SnapshotStore used by tests and by runs
// without Redis configured.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]session.Snapshot
}

var _ session.SnapshotStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]session.Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, snap session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snapshotKey(snap.UserID, snap.Category, snap.Phase)] = snap
	return nil
}

func (s *MemoryStore) FindLatestForUser(_ context.Context, userID string, phase question.Phase) (*session.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *session.Snapshot
	for key, snap := range s.snaps {
		if key != snapshotKey(userID, snap.Category, phase) {
			continue
		}
		if !restorable(snap) {
			continue
		}
		if best == nil || snap.UpdatedAt > best.UpdatedAt {
			copied := snap
			best = &copied
		}
	}
	return best, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, snapshotKey(userID, category, question.PhasePre))
	delete(s.snaps, snapshotKey(userID, category, question.PhasePost))
	return nil
}
