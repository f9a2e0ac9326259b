package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/scoring"
)

type stubLoader struct {
	mu      sync.Mutex
	fetched []string
	failOn  map[string]error
}

func (l *stubLoader) FetchBatch(_ context.Context, category string, _ question.Phase, _ int) ([]question.Question, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.failOn[category]; ok {
		return nil, err
	}
	l.fetched = append(l.fetched, category)
	correct := "a"
	return []question.Question{
		{ID: category + "-mc1", Category: category, Type: question.TypeChoice, Prompt: "pick", Options: []question.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}}, CorrectID: &correct},
		{ID: category + "-mc2", Category: category, Type: question.TypeChoice, Prompt: "pick", Options: []question.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}}, CorrectID: &correct},
		{ID: category + "-o1", Category: category, Type: question.TypeOpen, Prompt: "describe"},
		{ID: category + "-o2", Category: category, Type: question.TypeOpen, Prompt: "explain"},
	}, nil
}

type stubGateway struct {
	mu      sync.Mutex
	score   float64
	err     error
	entered chan struct{}
	block   chan struct{}
	scored  int
}

func (g *stubGateway) outcome() (*scoring.Outcome, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.scored++
	s := g.score
	return &scoring.Outcome{Score: &s, AnswerID: fmt.Sprintf("ans-%d", g.scored)}, nil
}

func (g *stubGateway) ScoreOpen(context.Context, scoring.OpenRequest) (*scoring.Outcome, error) {
	return g.outcome()
}

func (g *stubGateway) ScoreChoice(context.Context, scoring.ChoiceRequest) (*scoring.Outcome, error) {
	return g.outcome()
}

type stubStore struct {
	mu      sync.Mutex
	saves   []Snapshot
	cleared []string
	latest  *Snapshot
	errOut  error
}

func (s *stubStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errOut != nil {
		return s.errOut
	}
	s.saves = append(s.saves, snap)
	return nil
}

func (s *stubStore) FindLatestForUser(context.Context, string, question.Phase) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, nil
}

func (s *stubStore) Clear(_ context.Context, userID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, userID+"/"+category)
	return nil
}

func (s *stubStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func newTestEngine(t *testing.T, loader *stubLoader, store *stubStore, gw *stubGateway) *Engine {
	t.Helper()
	e := NewEngine(Options{
		Loader:  loader,
		Store:   store,
		Gateway: gw,
		Config:  Config{SecondsPerQuestion: 600, OpenAnswerMinLen: 20},
		Logger:  zerolog.New(io.Discard),
	})
	t.Cleanup(e.Close)
	return e
}

const longAnswer = "this answer is clearly long enough to score"

// scoreCurrent fills in whatever input the current question needs and scores it.
func scoreCurrent(t *testing.T, e *Engine) *Result {
	t.Helper()
	ctx := context.Background()
	cur, ok := e.Current()
	require.True(t, ok)
	if cur.Type == question.TypeOpen {
		require.NoError(t, e.SaveAnswer(ctx, longAnswer))
	} else {
		require.NoError(t, e.SelectOption(ctx, "a"))
	}
	res, err := e.Score(ctx)
	require.NoError(t, err)
	return res
}

func startSession(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Start(context.Background(), "stu_p1", "Leadership", question.PhasePre, 1))
}

func TestStartLoadsStarterBatch(t *testing.T) {
	store := &stubStore{}
	e := newTestEngine(t, &stubLoader{}, store, &stubGateway{score: 5})
	startSession(t, e)

	snap := e.Snapshot()
	assert.Equal(t, StateInStarter, snap.State)
	assert.Len(t, snap.Questions, 4)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, "Leadership", snap.Category)
	assert.Positive(t, store.saveCount())
	assert.Equal(t, []string{"stu_p1/Leadership"}, store.cleared)
}

func TestStartFailureAllowsRetry(t *testing.T) {
	loader := &stubLoader{failOn: map[string]error{"Leadership": errors.New("source down")}}
	e := newTestEngine(t, loader, &stubStore{}, &stubGateway{score: 5})

	err := e.Start(context.Background(), "stu_p1", "Leadership", question.PhasePre, 1)
	require.Error(t, err)
	assert.Equal(t, StateNotStarted, e.Snapshot().State)

	loader.mu.Lock()
	delete(loader.failOn, "Leadership")
	loader.mu.Unlock()
	startSession(t, e)
	assert.Equal(t, StateInStarter, e.Snapshot().State)
}

func TestStartTwiceRejected(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	err := e.Start(context.Background(), "stu_p1", "Teamwork", question.PhasePre, 1)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStarterNavigatesFreelyUntilLastQuestion(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	ctx := context.Background()

	require.NoError(t, e.Next(ctx))
	require.NoError(t, e.Next(ctx))
	require.NoError(t, e.Next(ctx))
	assert.Equal(t, 3, e.Snapshot().Index)

	err := e.Next(ctx)
	assert.ErrorIs(t, err, ErrStarterUnscored)

	require.NoError(t, e.Prev(ctx))
	assert.Equal(t, 2, e.Snapshot().Index)
}

func TestPrevAtFirstQuestionRefused(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	assert.ErrorIs(t, e.Prev(context.Background()), ErrAtFirstQuestion)
}

func TestScoringFourthStarterQuestionBranches(t *testing.T) {
	loader := &stubLoader{}
	e := newTestEngine(t, loader, &stubStore{}, &stubGateway{score: 8})
	startSession(t, e)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		scoreCurrent(t, e)
		if i < 3 {
			require.NoError(t, e.Next(ctx))
		}
	}

	snap := e.Snapshot()
	assert.True(t, snap.Branched)
	assert.Equal(t, StateInBranch, snap.State)
	assert.Equal(t, LevelHigh, snap.Level)
	assert.Len(t, snap.Questions, 16)
	assert.Equal(t, []string{"Leadership", "Communication", "Teamwork", "Problem Solving"}, loader.fetched)
}

func TestBranchPartialFailureKeepsLoadedPrefix(t *testing.T) {
	loader := &stubLoader{failOn: map[string]error{"Problem Solving": errors.New("source down")}}
	e := newTestEngine(t, loader, &stubStore{}, &stubGateway{score: 3})
	startSession(t, e)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		scoreCurrent(t, e)
		require.NoError(t, e.Next(ctx))
	}

	cur, _ := e.Current()
	require.Equal(t, question.TypeOpen, cur.Type)
	require.NoError(t, e.SaveAnswer(ctx, longAnswer))
	res, err := e.Score(ctx)
	assert.ErrorIs(t, err, ErrBranchIncomplete)
	require.NotNil(t, res)

	snap := e.Snapshot()
	assert.True(t, snap.Branched)
	assert.Equal(t, StateInBranch, snap.State)
	assert.Equal(t, LevelLow, snap.Level)
	// starter plus the two categories that loaded before the failure
	assert.Len(t, snap.Questions, 12)

	// a later score must not retry the branch
	require.NoError(t, e.Next(ctx))
	scoreCurrent(t, e)
	assert.Len(t, e.Snapshot().Questions, 12)
}

func TestNextAfterBranchRequiresScoredQuestion(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		scoreCurrent(t, e)
		if i < 3 {
			require.NoError(t, e.Next(ctx))
		}
	}

	require.NoError(t, e.Next(ctx)) // question 4 was scored by the branch trigger
	assert.ErrorIs(t, e.Next(ctx), ErrQuestionUnscored)

	scoreCurrent(t, e)
	require.NoError(t, e.Next(ctx))
}

func TestScoreOpenRequiresMinimumLength(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	ctx := context.Background()

	require.NoError(t, e.Next(ctx))
	require.NoError(t, e.Next(ctx)) // index 2 is open
	require.NoError(t, e.SaveAnswer(ctx, "too short"))
	_, err := e.Score(ctx)
	assert.ErrorIs(t, err, ErrAnswerTooShort)
}

func TestScoreChoiceRequiresSelection(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	_, err := e.Score(context.Background())
	assert.ErrorIs(t, err, ErrNoOptionSelected)
}

func TestScoreTwiceRejected(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	scoreCurrent(t, e)
	_, err := e.Score(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyScored)
}

func TestConcurrentScoringRejected(t *testing.T) {
	gw := &stubGateway{score: 5, entered: make(chan struct{}, 1), block: make(chan struct{})}
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, gw)
	startSession(t, e)
	ctx := context.Background()
	require.NoError(t, e.SelectOption(ctx, "a"))

	done := make(chan error, 1)
	go func() {
		_, err := e.Score(ctx)
		done <- err
	}()

	// wait for the first score to reach the gateway
	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first score never reached the gateway")
	}

	_, err := e.Score(ctx)
	assert.ErrorIs(t, err, ErrScoringInFlight)

	close(gw.block)
	require.NoError(t, <-done)
}

func TestSnapshotSaveFailureDoesNotInterrupt(t *testing.T) {
	store := &stubStore{errOut: errors.New("redis down")}
	e := newTestEngine(t, &stubLoader{}, store, &stubGateway{score: 5})
	startSession(t, e)

	res := scoreCurrent(t, e)
	require.NotNil(t, res.Score)
	assert.Equal(t, 5.0, *res.Score)
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	err := e.Restore(context.Background(), "stu_p1", question.PhasePre)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRestoreResumesMidSession(t *testing.T) {
	stored := Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		UserID:        "stu_p1",
		Category:      "Teamwork",
		Phase:         question.PhasePre,
		State:         StateInStarter,
		Questions: []question.Question{
			{ID: "q1", Category: "Teamwork", Type: question.TypeOpen, Prompt: "a", Scored: true},
			{ID: "q2", Category: "Teamwork", Type: question.TypeOpen, Prompt: "b"},
		},
		Index:     1,
		UpdatedAt: 100,
	}
	store := &stubStore{latest: &stored}
	e := newTestEngine(t, &stubLoader{}, store, &stubGateway{score: 5})

	require.NoError(t, e.Restore(context.Background(), "stu_p1", question.PhasePre))
	snap := e.Snapshot()
	assert.Equal(t, StateInStarter, snap.State)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, "Teamwork", snap.Category)
}

func TestRestoreFinishedSessionIsReadOnly(t *testing.T) {
	stored := Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		UserID:        "stu_p1",
		State:         StateFinished,
		Questions:     []question.Question{{ID: "q1", Type: question.TypeOpen, Scored: true}},
		Results:       []Result{{QuestionID: "q1", Category: "Teamwork", Score: scorePtr(7)}},
	}
	store := &stubStore{latest: &stored}
	e := newTestEngine(t, &stubLoader{}, store, &stubGateway{score: 5})

	require.NoError(t, e.Restore(context.Background(), "stu_p1", question.PhasePre))
	assert.ErrorIs(t, e.Next(context.Background()), ErrFinished)

	summary, err := e.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7.0, summary.PerCategory["Teamwork"])
}

func TestFinishIsIdempotent(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 6})
	startSession(t, e)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		scoreCurrent(t, e)
		if i < 3 {
			require.NoError(t, e.Next(ctx))
		}
	}
	// walk the branch bundle to the end
	for e.Snapshot().Index < len(e.Snapshot().Questions)-1 {
		require.NoError(t, e.Next(ctx))
		scoreCurrent(t, e)
	}

	first, err := e.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFinished, e.Snapshot().State)

	second, err := e.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Overall, second.Overall)
	assert.Equal(t, first.PerCategory, second.PerCategory)

	assert.ErrorIs(t, e.Next(ctx), ErrFinished)
}

func TestFinishRequiresScoredCurrentQuestion(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Next(ctx))
	}
	_, err := e.Finish(ctx)
	assert.ErrorIs(t, err, ErrQuestionUnscored)
}

func TestFinishRequiresLastQuestion(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)

	// one scored answer must not be enough to close the whole session
	scoreCurrent(t, e)
	_, err := e.Finish(context.Background())
	assert.ErrorIs(t, err, ErrNotAtLastQuestion)
	assert.Equal(t, StateInStarter, e.Snapshot().State)
}

func TestRestoreDuringScoringRejected(t *testing.T) {
	stored := Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		UserID:        "stu_p1",
		Category:      "Teamwork",
		Phase:         question.PhasePre,
		State:         StateInStarter,
		Questions:     []question.Question{{ID: "q1", Category: "Teamwork", Type: question.TypeOpen, Prompt: "a"}},
		UpdatedAt:     100,
	}
	gw := &stubGateway{score: 5, entered: make(chan struct{}, 1), block: make(chan struct{})}
	store := &stubStore{latest: &stored}
	e := newTestEngine(t, &stubLoader{}, store, gw)
	startSession(t, e)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Next(ctx))
	}
	require.NoError(t, e.SaveAnswer(ctx, longAnswer))

	done := make(chan error, 1)
	go func() {
		_, err := e.Score(ctx)
		done <- err
	}()

	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("score never reached the gateway")
	}

	// swapping in a shorter bundle here would leave the returning score
	// pointing past the end of the questions
	err := e.Restore(ctx, "stu_p1", question.PhasePre)
	assert.ErrorIs(t, err, ErrScoringInFlight)

	close(gw.block)
	require.NoError(t, <-done)
	assert.Len(t, e.Snapshot().Questions, 16)
}

func TestStaleTimerExpiryIgnored(t *testing.T) {
	e := newTestEngine(t, &stubLoader{}, &stubStore{}, &stubGateway{score: 5})
	startSession(t, e)
	ctx := context.Background()

	scoreCurrent(t, e)
	require.NoError(t, e.Next(ctx))
	scoreCurrent(t, e)

	e.mu.Lock()
	stale := e.timerGen
	e.mu.Unlock()

	// revisiting starts a fresh countdown and supersedes the old one
	require.NoError(t, e.Prev(ctx))
	e.onTimerExpired(stale)
	assert.Equal(t, 0, e.Snapshot().Index)

	e.mu.Lock()
	current := e.timerGen
	e.mu.Unlock()
	e.onTimerExpired(current)
	assert.Equal(t, 1, e.Snapshot().Index)
}
