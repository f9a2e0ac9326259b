package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/session"
)

// RedisStore persists one snapshot per (user, starter category, phase).
// Restore scans a user's keys for a phase and returns the newest usable
// snapshot, so an abandoned run in one category never shadows a fresher run
// in another.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ session.SnapshotStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "progress_store").Logger(),
	}
}

func snapshotKey(userID, category string, phase question.Phase) string {
	return fmt.Sprintf("quiz:progress:%s:%s:%s", userID, question.Slug(category), phase)
}

func (s *RedisStore) Save(ctx context.Context, snap session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := snapshotKey(snap.UserID, snap.Category, snap.Phase)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// FindLatestForUser returns the newest restorable snapshot for a user and
// phase, or nil when none exists. Snapshots with no questions or a foreign
// schema version are skipped rather than surfaced as errors.
func (s *RedisStore) FindLatestForUser(ctx context.Context, userID string, phase question.Phase) (*session.Snapshot, error) {
	pattern := fmt.Sprintf("quiz:progress:%s:*:%s", userID, phase)

	var best *session.Snapshot
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", iter.Val(), err)
		}

		var snap session.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			s.logger.Warn().Err(err).Str("key", iter.Val()).Msg("skipping undecodable snapshot")
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
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	return best, nil
}

// Clear drops both phase snapshots for the category so a fresh run cannot
// restore into stale state.
func (s *RedisStore) Clear(ctx context.Context, userID, category string) error {
	keys := []string{
		snapshotKey(userID, category, question.PhasePre),
		snapshotKey(userID, category, question.PhasePost),
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

func restorable(snap session.Snapshot) bool {
	return snap.SchemaVersion == session.SnapshotSchemaVersion && len(snap.Questions) > 0
}
