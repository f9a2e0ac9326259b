package session

import (
	"context"
	"errors"

	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/scoring"
)

// State is the session lifecycle phase. Transitions only move forward;
// LoadingBranchBatches is entered at most once per session.
type State string

const (
	StateNotStarted             State = "NOT_STARTED"
	StateLoadingStarter         State = "LOADING_STARTER"
	StateInStarter              State = "IN_STARTER"
	StateAwaitingBranchDecision State = "AWAITING_BRANCH_DECISION"
	StateLoadingBranchBatches   State = "LOADING_BRANCH_BATCHES"
	StateInBranch               State = "IN_BRANCH"
	StateFinalizing             State = "FINALIZING"
	StateFinished               State = "FINISHED"
)

// Level is the difficulty band derived from the starter-batch average.
type Level string

const (
	LevelLow  Level = "low"
	LevelMid  Level = "mid"
	LevelHigh Level = "high"
)

// LevelFor maps a starter average to its band. Boundaries are inclusive on
// the high side: 4.5 is mid, 7.5 is high.
func LevelFor(avg float64) Level {
	switch {
	case avg < 4.5:
		return LevelLow
	case avg >= 7.5:
		return LevelHigh
	default:
		return LevelMid
	}
}

// Result is the scored record for one answered question.
type Result struct {
	QuestionID string            `json:"question_id"`
	Category   string            `json:"category"`
	Type       question.Type     `json:"type"`
	Answer     string            `json:"answer,omitempty"`
	SelectedID string            `json:"selected_id,omitempty"`
	CorrectID  *string           `json:"correct_id,omitempty"`
	Correct    *bool             `json:"correct,omitempty"`
	// Score is nil when the backend acknowledged the answer without a
	// numeric score. Averages skip nil; the branch decision counts it as 0.
	Score      *float64          `json:"score"`
	Coaching   *scoring.Coaching `json:"coaching,omitempty"`
	AnswerID   string            `json:"answer_id,omitempty"`
	ScoredAt   int64             `json:"scored_at"`
}

// Snapshot is the full persisted session state. One snapshot is written on
// every mutation; restore picks the newest one for a user and phase.
type Snapshot struct {
	SchemaVersion int                 `json:"schema_version"`
	UserID        string              `json:"user_id"`
	Category      string              `json:"category"`
	Phase         question.Phase      `json:"phase"`
	Attempt       int                 `json:"attempt"`
	State         State               `json:"state"`
	Questions     []question.Question `json:"questions"`
	Results       []Result            `json:"results"`
	Index         int                 `json:"index"`
	Branched      bool                `json:"branched"`
	Level         Level               `json:"level,omitempty"`
	StartedAt     int64               `json:"started_at"`
	UpdatedAt     int64               `json:"updated_at"`
}

// SnapshotSchemaVersion guards restores across incompatible layout changes.
const SnapshotSchemaVersion = 1

// SnapshotStore persists session snapshots. Save failures are swallowed by
// the engine so persistence never interrupts a run.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	FindLatestForUser(ctx context.Context, userID string, phase question.Phase) (*Snapshot, error)
	Clear(ctx context.Context, userID, category string) error
}

// BatchLoader fetches one 4-question bundle for a category and phase.
type BatchLoader interface {
	FetchBatch(ctx context.Context, category string, phase question.Phase, attempt int) ([]question.Question, error)
}

// ScoreGateway scores a single answer through the scoring backend.
type ScoreGateway interface {
	ScoreOpen(ctx context.Context, req scoring.OpenRequest) (*scoring.Outcome, error)
	ScoreChoice(ctx context.Context, req scoring.ChoiceRequest) (*scoring.Outcome, error)
}

var (
	// ErrNoSnapshot reports that no restorable snapshot exists.
	ErrNoSnapshot = errors.New("no snapshot for user")
	// ErrFinished rejects mutation of a finished session.
	ErrFinished = errors.New("session already finished")
	// ErrNotStarted rejects operations on a session that was never started.
	ErrNotStarted = errors.New("session not started")
	// ErrAlreadyStarted rejects a second start of the same session.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrScoringInFlight rejects a second scoring request while one runs.
	ErrScoringInFlight = errors.New("scoring already in progress")
	// ErrQuestionUnscored blocks forward navigation past an unscored question.
	ErrQuestionUnscored = errors.New("current question must be scored before continuing")
	// ErrStarterUnscored blocks leaving the last starter question unscored.
	ErrStarterUnscored = errors.New("score the final starter question to unlock the remaining categories")
	// ErrAnswerTooShort rejects open answers under the minimum length.
	ErrAnswerTooShort = errors.New("answer is too short to score")
	// ErrNoOptionSelected rejects scoring a choice question with no selection.
	ErrNoOptionSelected = errors.New("select an option before scoring")
	// ErrAlreadyScored rejects re-scoring a question that has a result.
	ErrAlreadyScored = errors.New("question already scored")
	// ErrBranchIncomplete reports that only part of the branch batches loaded.
	ErrBranchIncomplete = errors.New("branch batches loaded partially")
	// ErrAtFirstQuestion rejects navigating before the first question.
	ErrAtFirstQuestion = errors.New("already at the first question")
	// ErrAtLastQuestion rejects navigating past the final question.
	ErrAtLastQuestion = errors.New("already at the last question")
	// ErrNotAtLastQuestion rejects finishing before the final question.
	ErrNotAtLastQuestion = errors.New("finish is only available at the last question")
)
