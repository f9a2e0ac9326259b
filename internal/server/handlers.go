package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/archive"
	"github.com/softskillslab/quiz-engine/internal/export"
	"github.com/softskillslab/quiz-engine/internal/identity"
	"github.com/softskillslab/quiz-engine/internal/metrics"
	"github.com/softskillslab/quiz-engine/internal/plan"
	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/session"
	httperrors "github.com/softskillslab/quiz-engine/pkg/http/errors"
	"github.com/softskillslab/quiz-engine/pkg/http/ws"
)

// SessionHandler provides the REST endpoints driving the assessment flow.
type SessionHandler struct {
	manager  *Manager
	resolver *identity.Resolver
	store    session.SnapshotStore
	plans    *plan.Service
	archiver *archive.Archiver // nil when the results archive is not configured
	hub      *ws.Hub
	logger   zerolog.Logger

	mu        sync.Mutex
	finished  map[string]*finishedSession
	finishing map[string]*sync.Mutex
}

// finishedSession caches the finalized outcome so finishing twice and the
// export downloads reuse one report instead of re-calling the backend.
type finishedSession struct {
	snapshot session.Snapshot
	summary  session.Summary
	report   plan.FinalReport
}

func NewSessionHandler(manager *Manager, resolver *identity.Resolver, store session.SnapshotStore, plans *plan.Service, archiver *archive.Archiver, hub *ws.Hub, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:   manager,
		resolver:  resolver,
		store:     store,
		plans:     plans,
		archiver:  archiver,
		hub:       hub,
		logger:    logger,
		finished:  make(map[string]*finishedSession),
		finishing: make(map[string]*sync.Mutex),
	}
}

type startRequest struct {
	ClientKey  string `json:"client_key"`
	StudyToken string `json:"study_token,omitempty"`
	Category   string `json:"category"`
	Phase      string `json:"phase,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`
}

type restoreRequest struct {
	ClientKey  string `json:"client_key"`
	StudyToken string `json:"study_token,omitempty"`
	Phase      string `json:"phase,omitempty"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type answerRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type selectRequest struct {
	UserID   string `json:"user_id"`
	OptionID string `json:"option_id"`
}

type clearRequest struct {
	UserID   string `json:"user_id"`
	Category string `json:"category"`
}

// sessionView is the client-facing projection of a snapshot: lifecycle
// state, the cursor, and the question under it.
type sessionView struct {
	UserID        string             `json:"user_id"`
	State         session.State      `json:"state"`
	Category      string             `json:"category"`
	Phase         question.Phase     `json:"phase"`
	Attempt       int                `json:"attempt"`
	Level         session.Level      `json:"level,omitempty"`
	Branched      bool               `json:"branched"`
	Index         int                `json:"index"`
	QuestionCount int                `json:"question_count"`
	Question      *question.Question `json:"question,omitempty"`
}

func viewOf(snap session.Snapshot) sessionView {
	v := sessionView{
		UserID:        snap.UserID,
		State:         snap.State,
		Category:      snap.Category,
		Phase:         snap.Phase,
		Attempt:       snap.Attempt,
		Level:         snap.Level,
		Branched:      snap.Branched,
		Index:         snap.Index,
		QuestionCount: len(snap.Questions),
	}
	if snap.Index >= 0 && snap.Index < len(snap.Questions) {
		q := snap.Questions[snap.Index]
		v.Question = &q
	}
	return v
}

type scoreResponse struct {
	Result           *session.Result `json:"result"`
	BranchIncomplete bool            `json:"branch_incomplete,omitempty"`
	Session          sessionView     `json:"session"`
}

type finishResponse struct {
	Summary session.Summary  `json:"summary"`
	Level   session.Level    `json:"level"`
	Report  plan.FinalReport `json:"report"`
}

// HandleStart handles POST /v1/sessions/start
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	category := question.Label(req.Category)
	if !knownCategory(category) {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "unknown category", "category")
		return
	}
	attempt := req.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	phase, err := resolvePhase(req.Phase, attempt)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "phase")
		return
	}

	userID := h.resolver.Resolve(r.Context(), req.ClientKey, req.StudyToken)
	eng := h.manager.GetOrCreate(userID)

	if err := eng.Start(r.Context(), userID, category, phase, attempt); err != nil {
		if errors.Is(err, session.ErrAlreadyStarted) {
			h.respondEngineError(w, err)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Str("category", category).Msg("starter batch load failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLoadFailed, "question source unavailable")
		return
	}

	metrics.SessionsStarted.WithLabelValues(string(phase)).Inc()
	h.respondJSON(w, http.StatusCreated, viewOf(eng.Snapshot()))
}

// HandleRestore handles POST /v1/sessions/restore
func (h *SessionHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	phase, err := resolvePhase(req.Phase, 1)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "phase")
		return
	}

	userID := h.resolver.Resolve(r.Context(), req.ClientKey, req.StudyToken)
	eng := h.manager.GetOrCreate(userID)

	if err := eng.Restore(r.Context(), userID, phase); err != nil {
		if errors.Is(err, session.ErrNoSnapshot) {
			h.respondEngineError(w, err)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("snapshot restore failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "snapshot store unavailable")
		return
	}

	metrics.SessionsRestored.Inc()
	h.respondJSON(w, http.StatusOK, viewOf(eng.Snapshot()))
}

// HandleCurrent handles GET /v1/sessions/current
func (h *SessionHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	eng, ok := h.engineFor(w, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, viewOf(eng.Snapshot()))
}

// HandleAnswer handles POST /v1/sessions/answer
func (h *SessionHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	eng, ok := h.decodeSessionRequest(w, r, &req, func() string { return req.UserID })
	if !ok {
		return
	}
	if err := eng.SaveAnswer(r.Context(), req.Text); err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, viewOf(eng.Snapshot()))
}

// HandleSelect handles POST /v1/sessions/select
func (h *SessionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	eng, ok := h.decodeSessionRequest(w, r, &req, func() string { return req.UserID })
	if !ok {
		return
	}
	if req.OptionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "option_id is required", "option_id")
		return
	}
	if err := eng.SelectOption(r.Context(), req.OptionID); err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, viewOf(eng.Snapshot()))
}

// HandleNext handles POST /v1/sessions/next
func (h *SessionHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	eng, ok := h.decodeSessionRequest(w, r, &req, func() string { return req.UserID })
	if !ok {
		return
	}
	if err := eng.Next(r.Context()); err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, viewOf(eng.Snapshot()))
}

// HandlePrev handles POST /v1/sessions/prev
func (h *SessionHandler) HandlePrev(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	eng, ok := h.decodeSessionRequest(w, r, &req, func() string { return req.UserID })
	if !ok {
		return
	}
	if err := eng.Prev(r.Context()); err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, viewOf(eng.Snapshot()))
}

// HandleScore handles POST /v1/sessions/score
func (h *SessionHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	eng, ok := h.decodeSessionRequest(w, r, &req, func() string { return req.UserID })
	if !ok {
		return
	}

	pre := eng.Snapshot()
	qType := ""
	if pre.Index >= 0 && pre.Index < len(pre.Questions) {
		qType = string(pre.Questions[pre.Index].Type)
	}

	started := time.Now()
	res, err := eng.Score(r.Context())
	if res != nil {
		metrics.ScoringDuration.WithLabelValues(qType).Observe(time.Since(started).Seconds())
	}

	branchIncomplete := errors.Is(err, session.ErrBranchIncomplete)
	if err != nil && !branchIncomplete {
		metrics.QuestionsScored.WithLabelValues(qType, "error").Inc()
		h.respondEngineError(w, err)
		return
	}
	metrics.QuestionsScored.WithLabelValues(qType, "ok").Inc()

	post := eng.Snapshot()
	if post.Branched && !pre.Branched {
		outcome := "complete"
		if branchIncomplete {
			outcome = "partial"
			h.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("branch batches loaded partially")
		}
		metrics.BranchLoads.WithLabelValues(outcome).Inc()
		h.notifyBranchLoaded(req.UserID, post, !branchIncomplete)
	}

	h.respondJSON(w, http.StatusOK, scoreResponse{
		Result:           res,
		BranchIncomplete: branchIncomplete,
		Session:          viewOf(post),
	})
}

// HandleFinish handles POST /v1/sessions/finish
func (h *SessionHandler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	eng, ok := h.decodeSessionRequest(w, r, &req, func() string { return req.UserID })
	if !ok {
		return
	}

	// the per-user lock spans the whole finalize path so two concurrent
	// finish requests cannot both run it; the loser replays the cache
	lock := h.finishLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	h.mu.Lock()
	rec, done := h.finished[req.UserID]
	h.mu.Unlock()
	if done {
		h.respondJSON(w, http.StatusOK, finishResponse{
			Summary: rec.summary,
			Level:   rec.snapshot.Level,
			Report:  rec.report,
		})
		return
	}

	summary, err := eng.Finish(r.Context())
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	snap := eng.Snapshot()
	metrics.SessionsFinished.WithLabelValues(string(snap.Phase)).Inc()

	report := h.plans.Finalize(r.Context(), req.UserID, snap.Phase, snap.Level, summary, snap.Results)

	if h.archiver != nil {
		if err := h.archiver.ArchiveSession(r.Context(), snap, summary); err != nil {
			metrics.ArchiveFailures.Inc()
			h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("session archive failed")
		}
	}

	h.mu.Lock()
	h.finished[req.UserID] = &finishedSession{snapshot: snap, summary: summary, report: report}
	h.mu.Unlock()

	if payload, err := json.Marshal(ws.SessionFinishedPayload{Overall: summary.Overall, Weakest: summary.Weakest}); err == nil {
		_ = h.hub.SendToUser(req.UserID, ws.Message{Type: ws.TypeSessionFinished, Payload: payload})
	}

	h.respondJSON(w, http.StatusOK, finishResponse{
		Summary: summary,
		Level:   snap.Level,
		Report:  report,
	})
}

// HandleClear handles POST /v1/sessions/clear
func (h *SessionHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.UserID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "user_id is required", "user_id")
		return
	}
	category := question.Label(req.Category)
	if !knownCategory(category) {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "unknown category", "category")
		return
	}

	if err := h.store.Clear(r.Context(), req.UserID, category); err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("snapshot clear failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "snapshot store unavailable")
		return
	}
	h.manager.Remove(req.UserID)
	h.mu.Lock()
	delete(h.finished, req.UserID)
	delete(h.finishing, req.UserID)
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// HandleResultsExport handles GET /v1/exports/results
func (h *SessionHandler) HandleResultsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	rec, ok := h.finishedFor(w, r)
	if !ok {
		return
	}

	data := export.ResultsCSV(rec.snapshot.UserID, rec.snapshot.Results)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ResultsCSVFileName(rec.snapshot.UserID)))
	_, _ = w.Write(data)
}

// HandlePlanExport handles GET /v1/exports/plan
func (h *SessionHandler) HandlePlanExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	rec, ok := h.finishedFor(w, r)
	if !ok {
		return
	}

	snap := rec.snapshot
	data := export.PlanTXT(snap.UserID, snap.Phase, snap.Attempt, snap.Level, rec.summary, rec.report)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.PlanTXTFileName(snap.UserID, snap.Attempt)))
	_, _ = w.Write(data)
}

// HandleWebSocket handles GET /ws/sessions
func (h *SessionHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "user_id is required", "user_id")
		return
	}

	conn, err := WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := ws.NewConnection(conn, h.logger)
	h.hub.Register(userID, c)
	go c.WritePump()

	c.ReadPump(func(msg ws.Message) error {
		if msg.Type == ws.TypePing {
			return c.Send(ws.Message{Type: ws.TypePong})
		}
		payload, err := json.Marshal(ws.ErrorPayload{
			Code:    httperrors.ErrCodeUnknownMessageType,
			Message: fmt.Sprintf("unsupported message type %q", msg.Type),
		})
		if err != nil {
			return err
		}
		return c.Send(ws.Message{Type: ws.TypeError, Payload: payload})
	})

	h.hub.Unregister(userID, c)
}

// decodeSessionRequest handles the shared preamble of every mutation
// endpoint: method check, JSON decode and engine lookup by user id.
func (h *SessionHandler) decodeSessionRequest(w http.ResponseWriter, r *http.Request, req any, userID func() string) (*session.Engine, bool) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return nil, false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return nil, false
	}
	return h.engineFor(w, userID())
}

func (h *SessionHandler) engineFor(w http.ResponseWriter, userID string) (*session.Engine, bool) {
	if userID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "user_id is required", "user_id")
		return nil, false
	}
	eng, ok := h.manager.Get(userID)
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "no active session for user")
		return nil, false
	}
	return eng, true
}

// finishLock returns the mutex serializing finalization for one user.
func (h *SessionHandler) finishLock(userID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.finishing[userID]
	if !ok {
		lock = &sync.Mutex{}
		h.finishing[userID] = lock
	}
	return lock
}

// finishedFor returns the finalized record for the export endpoints. A
// finished session restored after a process restart is re-finalized on
// first download.
func (h *SessionHandler) finishedFor(w http.ResponseWriter, r *http.Request) (*finishedSession, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "user_id is required", "user_id")
		return nil, false
	}

	lock := h.finishLock(userID)
	lock.Lock()
	defer lock.Unlock()

	h.mu.Lock()
	rec, ok := h.finished[userID]
	h.mu.Unlock()
	if ok {
		return rec, true
	}

	eng, ok := h.manager.Get(userID)
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "no active session for user")
		return nil, false
	}
	snap := eng.Snapshot()
	if snap.State != session.StateFinished {
		httperrors.RespondConflict(w, httperrors.ErrCodeConflict, "session is not finished")
		return nil, false
	}

	summary := session.Summarize(snap.Results)
	report := h.plans.Finalize(r.Context(), userID, snap.Phase, snap.Level, summary, snap.Results)
	rec = &finishedSession{snapshot: snap, summary: summary, report: report}

	h.mu.Lock()
	h.finished[userID] = rec
	h.mu.Unlock()
	return rec, true
}

func (h *SessionHandler) notifyBranchLoaded(userID string, snap session.Snapshot, complete bool) {
	payload, err := json.Marshal(ws.BranchLoadedPayload{
		Level:         string(snap.Level),
		QuestionCount: len(snap.Questions),
		Complete:      complete,
	})
	if err != nil {
		return
	}
	_ = h.hub.SendToUser(userID, ws.Message{Type: ws.TypeBranchLoaded, Payload: payload})
}

// respondEngineError maps engine sentinels onto HTTP statuses and the
// standard error body.
func (h *SessionHandler) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoSnapshot):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "no resumable session")
	case errors.Is(err, session.ErrNotStarted):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "session not started")
	case errors.Is(err, session.ErrFinished):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionFinished, "session already finished")
	case errors.Is(err, session.ErrAlreadyStarted):
		httperrors.RespondConflict(w, httperrors.ErrCodeConflict, "session already started")
	case errors.Is(err, session.ErrScoringInFlight):
		httperrors.RespondConflict(w, httperrors.ErrCodeScoringInFlight, "scoring already in progress")
	case errors.Is(err, session.ErrAlreadyScored):
		httperrors.RespondConflict(w, httperrors.ErrCodeConflict, "question already scored")
	case errors.Is(err, session.ErrAnswerTooShort):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeAnswerTooShort, err.Error())
	case errors.Is(err, session.ErrNoOptionSelected):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeNoOptionSelected, err.Error())
	case errors.Is(err, session.ErrStarterUnscored):
		httperrors.RespondConflict(w, httperrors.ErrCodeStarterUnscored, err.Error())
	case errors.Is(err, session.ErrQuestionUnscored):
		httperrors.RespondConflict(w, httperrors.ErrCodeQuestionUnscored, err.Error())
	case errors.Is(err, session.ErrNotAtLastQuestion):
		httperrors.RespondConflict(w, httperrors.ErrCodeNavigationRefused, err.Error())
	case errors.Is(err, session.ErrAtFirstQuestion), errors.Is(err, session.ErrAtLastQuestion):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeNavigationRefused, err.Error())
	default:
		h.logger.Error().Err(err).Msg("session operation failed")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, err.Error())
	}
}

func (h *SessionHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func knownCategory(label string) bool {
	for _, c := range question.AllCategories {
		if c == label {
			return true
		}
	}
	return false
}

// resolvePhase accepts an explicit PRE/POST value or derives it from the
// attempt number: the first attempt is PRE, everything after is POST.
func resolvePhase(raw string, attempt int) (question.Phase, error) {
	switch question.Phase(raw) {
	case question.PhasePre, question.PhasePost:
		return question.Phase(raw), nil
	case "":
		if attempt >= 2 {
			return question.PhasePost, nil
		}
		return question.PhasePre, nil
	default:
		return "", fmt.Errorf("phase must be %s or %s", question.PhasePre, question.PhasePost)
	}
}
