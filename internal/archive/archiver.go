package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/session"
)

// Archiver copies finished sessions into Postgres for the study team's
// offline analysis. Archival is best effort; callers log and move on when
// it fails.
type Archiver struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewArchiver(pool *pgxpool.Pool, logger zerolog.Logger) *Archiver {
	return &Archiver{
		pool:   pool,
		logger: logger.With().Str("component", "archiver").Logger(),
	}
}

const insertSessionSQL = `
INSERT INTO quiz_sessions (user_id, category, phase, attempt, level, overall, weakest_category, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, to_timestamp($8), now())
RETURNING id`

const insertResultSQL = `
INSERT INTO quiz_results (session_id, question_id, category, question_type, score, selected_id, correct_id, answer, scored_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, to_timestamp($9))`

// ArchiveSession stores the session header and every scored result in one
// transaction.
func (a *Archiver) ArchiveSession(ctx context.Context, snap session.Snapshot, summary session.Summary) error {
	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var sessionID int64
	err = tx.QueryRow(ctx, insertSessionSQL,
		snap.UserID,
		snap.Category,
		string(snap.Phase),
		snap.Attempt,
		string(snap.Level),
		summary.Overall,
		summary.Weakest,
		snap.StartedAt,
	).Scan(&sessionID)
	if err != nil {
		return fmt.Errorf("insert session row: %w", err)
	}

	batch := &pgx.Batch{}
	for _, r := range snap.Results {
		batch.Queue(insertResultSQL,
			sessionID,
			r.QuestionID,
			r.Category,
			string(r.Type),
			r.Score,
			nullable(r.SelectedID),
			r.CorrectID,
			nullable(r.Answer),
			r.ScoredAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range snap.Results {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert result row: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close result batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	a.logger.Info().
		Str("user_id", snap.UserID).
		Int64("session_id", sessionID).
		Int("results", len(snap.Results)).
		Msg("session archived")
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
