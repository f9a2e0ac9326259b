package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/scoring"
)

// Events receives timer notifications for one session. Implementations must
// not block; the websocket layer fans these out to connected clients.
type Events interface {
	TimerTick(remaining int)
	TimerExpired(scored bool)
}

type noopEvents struct{}

func (noopEvents) TimerTick(int)     {}
func (noopEvents) TimerExpired(bool) {}

// Config carries the per-question runtime limits.
type Config struct {
	SecondsPerQuestion int
	OpenAnswerMinLen   int
}

// Options configures an Engine.
type Options struct {
	Loader  BatchLoader
	Store   SnapshotStore
	Gateway ScoreGateway
	Events  Events
	Config  Config
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Engine drives one participant session through the adaptive flow: starter
// batch, branch decision after the fourth score, three more category
// batches, then finalization. All methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	loader  BatchLoader
	store   SnapshotStore
	gateway ScoreGateway
	events  Events
	logger  zerolog.Logger
	now     func() time.Time

	snap     Snapshot
	inflight bool
	timer    *Timer
	timerGen uint64
}

func NewEngine(opts Options) *Engine {
	if opts.Events == nil {
		opts.Events = noopEvents{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Config.SecondsPerQuestion <= 0 {
		opts.Config.SecondsPerQuestion = 180
	}
	if opts.Config.OpenAnswerMinLen <= 0 {
		opts.Config.OpenAnswerMinLen = 20
	}

	e := &Engine{
		cfg:     opts.Config,
		loader:  opts.Loader,
		store:   opts.Store,
		gateway: opts.Gateway,
		events:  opts.Events,
		logger:  opts.Logger.With().Str("component", "session_engine").Logger(),
		now:     opts.Now,
		snap:    Snapshot{SchemaVersion: SnapshotSchemaVersion, State: StateNotStarted},
	}
	e.timer = NewTimer(e.events.TimerTick, e.onTimerExpired)
	return e
}

// Snapshot returns a copy of the current session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copySnapshot()
}

func (e *Engine) copySnapshot() Snapshot {
	snap := e.snap
	snap.Questions = append([]question.Question(nil), e.snap.Questions...)
	snap.Results = append([]Result(nil), e.snap.Results...)
	return snap
}

// Current returns the question at the cursor.
func (e *Engine) Current() (question.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap.Index < 0 || e.snap.Index >= len(e.snap.Questions) {
		return question.Question{}, false
	}
	return e.snap.Questions[e.snap.Index], true
}

// Start loads the starter batch for the chosen category and opens the
// session at the first question. A load failure leaves the session
// startable again.
func (e *Engine) Start(ctx context.Context, userID, category string, phase question.Phase, attempt int) error {
	e.mu.Lock()
	if e.snap.State != StateNotStarted {
		e.mu.Unlock()
		return fmt.Errorf("start from state %s: %w", e.snap.State, ErrAlreadyStarted)
	}
	e.snap.State = StateLoadingStarter
	e.mu.Unlock()

	// drop stale snapshots for this category so a reload cannot restore
	// into the run being replaced
	if err := e.store.Clear(ctx, userID, category); err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("stale progress clear failed")
	}

	batch, err := e.loader.FetchBatch(ctx, category, phase, attempt)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.snap.State = StateNotStarted
		return fmt.Errorf("load starter batch: %w", err)
	}

	now := e.now().Unix()
	e.snap = Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		UserID:        userID,
		Category:      category,
		Phase:         phase,
		Attempt:       attempt,
		State:         StateInStarter,
		Questions:     batch,
		Index:         0,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	e.persist(ctx)
	e.startTimer()
	return nil
}

// Restore adopts the newest persisted snapshot for the user and phase. A
// finished snapshot restores read-only; anything else resumes with a fresh
// question timer.
func (e *Engine) Restore(ctx context.Context, userID string, phase question.Phase) error {
	snap, err := e.store.FindLatestForUser(ctx, userID, phase)
	if err != nil {
		return fmt.Errorf("find snapshot: %w", err)
	}
	if snap == nil {
		return ErrNoSnapshot
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// a restore must not swap the bundle out from under an in-flight score
	if e.inflight {
		return ErrScoringInFlight
	}
	e.snap = *snap
	if e.snap.Index < 0 {
		e.snap.Index = 0
	}
	if e.snap.Index >= len(e.snap.Questions) {
		e.snap.Index = len(e.snap.Questions) - 1
	}
	// a snapshot taken mid-load resumes at the last stable state
	switch e.snap.State {
	case StateLoadingStarter:
		e.snap.State = StateInStarter
	case StateLoadingBranchBatches, StateFinalizing:
		e.snap.State = StateInBranch
	}
	if e.snap.State != StateFinished {
		e.startTimer()
	}
	return nil
}

// SaveAnswer stores the draft text for the current open question.
func (e *Engine) SaveAnswer(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable(); err != nil {
		return err
	}
	q := &e.snap.Questions[e.snap.Index]
	if q.Type != question.TypeOpen {
		return fmt.Errorf("question %s is not open-text", q.ID)
	}
	q.Answer = strings.TrimSpace(text)
	e.persist(ctx)
	return nil
}

// SelectOption stores the chosen option for the current choice question.
func (e *Engine) SelectOption(ctx context.Context, optionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable(); err != nil {
		return err
	}
	q := &e.snap.Questions[e.snap.Index]
	if q.Type != question.TypeChoice {
		return fmt.Errorf("question %s is not multiple-choice", q.ID)
	}
	q.SelectedID = &optionID
	e.persist(ctx)
	return nil
}

// Next advances the cursor. Within the unbranched starter the first three
// questions navigate freely; the fourth must be scored, which is also what
// triggers the branch. After branching every question must be scored before
// moving past it.
func (e *Engine) Next(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable(); err != nil {
		return err
	}

	cur := e.snap.Questions[e.snap.Index]
	if e.snap.Index == len(e.snap.Questions)-1 {
		if !e.snap.Branched {
			return ErrStarterUnscored
		}
		return ErrAtLastQuestion
	}
	if e.snap.Branched && !cur.Scored {
		return ErrQuestionUnscored
	}

	e.snap.Index++
	e.persist(ctx)
	e.startTimer()
	return nil
}

// Prev moves the cursor back one question. Revisiting is always allowed.
func (e *Engine) Prev(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable(); err != nil {
		return err
	}
	if e.snap.Index == 0 {
		return ErrAtFirstQuestion
	}
	e.snap.Index--
	e.persist(ctx)
	e.startTimer()
	return nil
}

// Score scores the current question through the gateway. Scoring the fourth
// starter question also decides the level band and loads the remaining
// category batches exactly once. A partial branch load keeps the loaded
// prefix and reports ErrBranchIncomplete alongside the recorded result.
func (e *Engine) Score(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if err := e.mutable(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if e.inflight {
		e.mu.Unlock()
		return nil, ErrScoringInFlight
	}

	idx := e.snap.Index
	q := e.snap.Questions[idx]
	if q.Scored {
		e.mu.Unlock()
		return nil, ErrAlreadyScored
	}
	if q.Type == question.TypeOpen && len(q.Answer) < e.cfg.OpenAnswerMinLen {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: need at least %d characters", ErrAnswerTooShort, e.cfg.OpenAnswerMinLen)
	}
	if q.Type == question.TypeChoice && (q.SelectedID == nil || *q.SelectedID == "") {
		e.mu.Unlock()
		return nil, ErrNoOptionSelected
	}

	e.inflight = true
	userID, category, phase, attempt := e.snap.UserID, e.snap.Category, e.snap.Phase, e.snap.Attempt
	e.mu.Unlock()

	out, err := e.scoreQuestion(ctx, q, userID, phase, attempt)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight = false
	if err != nil {
		return nil, fmt.Errorf("score question %s: %w", q.ID, err)
	}

	res := Result{
		QuestionID: q.ID,
		Category:   q.Category,
		Type:       q.Type,
		Answer:     q.Answer,
		CorrectID:  q.CorrectID,
		Correct:    out.Correct,
		Score:      out.Score,
		Coaching:   out.Coaching,
		AnswerID:   out.AnswerID,
		ScoredAt:   e.now().Unix(),
	}
	if q.SelectedID != nil {
		res.SelectedID = *q.SelectedID
	}

	// the cursor may have moved during the network call; score against the
	// question we captured
	scored := &e.snap.Questions[idx]
	scored.Scored = true
	scored.ServerAnswerID = out.AnswerID
	e.snap.Results = append(e.snap.Results, res)
	e.persist(ctx)

	if !e.snap.Branched && idx == 3 && e.snap.State == StateInStarter {
		if err := e.branch(ctx, category, phase, attempt); err != nil {
			return &res, err
		}
	}
	return &res, nil
}

func (e *Engine) scoreQuestion(ctx context.Context, q question.Question, userID string, phase question.Phase, attempt int) (*scoring.Outcome, error) {
	if q.Type == question.TypeOpen {
		return e.gateway.ScoreOpen(ctx, scoring.OpenRequest{
			UserID:     userID,
			Category:   q.Category,
			QuestionID: q.ID,
			Answer:     q.Answer,
			Phase:      phase,
			Attempt:    attempt,
		})
	}
	selected := ""
	if q.SelectedID != nil {
		selected = *q.SelectedID
	}
	return e.gateway.ScoreChoice(ctx, scoring.ChoiceRequest{
		UserID:     userID,
		Category:   q.Category,
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		Options:    q.Options,
		SelectedID: selected,
		CorrectID:  q.CorrectID,
		Phase:      phase,
		Attempt:    attempt,
	})
}

// branch runs the one-time expansion into the remaining categories. It is
// marked done before loading so a failure can never trigger a second
// branch; whatever batches loaded before the failure stay in the bundle.
func (e *Engine) branch(ctx context.Context, starterCategory string, phase question.Phase, attempt int) error {
	e.snap.Level = LevelFor(StarterAverage(e.snap.Results))
	e.snap.Branched = true
	e.snap.State = StateLoadingBranchBatches
	e.persist(ctx)

	var loadErr error
	for _, cat := range question.BranchCategories(starterCategory) {
		batch, err := e.loader.FetchBatch(ctx, cat, phase, attempt)
		if err != nil {
			loadErr = fmt.Errorf("%w: category %s: %v", ErrBranchIncomplete, cat, err)
			break
		}
		e.snap.Questions = append(e.snap.Questions, batch...)
	}

	e.snap.State = StateInBranch
	e.persist(ctx)
	e.startTimer()
	return loadErr
}

// Finish closes the session and returns the summary. It is only available
// with the cursor on the last question of the bundle and that question
// scored. Finishing twice returns the same summary without error.
func (e *Engine) Finish(ctx context.Context) (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snap.State == StateNotStarted {
		return Summary{}, ErrNotStarted
	}
	if e.snap.State == StateFinished {
		return Summarize(e.snap.Results), nil
	}
	if e.snap.Index != len(e.snap.Questions)-1 {
		return Summary{}, ErrNotAtLastQuestion
	}
	if cur := e.snap.Questions[e.snap.Index]; !cur.Scored {
		return Summary{}, ErrQuestionUnscored
	}

	e.snap.State = StateFinalizing
	e.persist(ctx)

	summary := Summarize(e.snap.Results)
	e.timer.Stop()
	e.snap.State = StateFinished
	e.persist(ctx)
	return summary, nil
}

// Close stops the timer without touching persisted state.
func (e *Engine) Close() {
	e.timer.Stop()
}

func (e *Engine) mutable() error {
	switch e.snap.State {
	case StateNotStarted, StateLoadingStarter:
		return ErrNotStarted
	case StateFinished:
		return ErrFinished
	}
	if len(e.snap.Questions) == 0 {
		return ErrNotStarted
	}
	return nil
}

// persist writes a snapshot and never fails the caller; a dead store must
// not interrupt a running session.
func (e *Engine) persist(ctx context.Context) {
	e.snap.UpdatedAt = e.now().Unix()
	if err := e.store.Save(ctx, e.copySnapshot()); err != nil {
		e.logger.Warn().Err(err).Str("user_id", e.snap.UserID).Msg("snapshot save failed")
	}
}

// startTimer begins a fresh countdown for the question at the cursor.
// Callers must hold e.mu.
func (e *Engine) startTimer() {
	e.timerGen = e.timer.Start(e.cfg.SecondsPerQuestion)
}

// onTimerExpired advances past a scored question when its time runs out.
// An unscored question stays put so the participant can still submit. An
// expiry from a countdown that was superseded while the callback waited
// for the lock is dropped.
func (e *Engine) onTimerExpired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.timerGen {
		return
	}
	if e.mutable() != nil {
		return
	}

	cur := e.snap.Questions[e.snap.Index]
	e.events.TimerExpired(cur.Scored)
	if !cur.Scored {
		return
	}
	if e.snap.Index < len(e.snap.Questions)-1 {
		e.snap.Index++
		e.persist(context.Background())
		e.startTimer()
	}
}
