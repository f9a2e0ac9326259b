package server

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/session"
	"github.com/softskillslab/quiz-engine/pkg/http/ws"
)

// Manager owns one session engine per participant. Engines are created
// lazily on start or restore and live until the session is cleared, so an
// in-flight run survives between HTTP requests.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*session.Engine

	loader  session.BatchLoader
	store   session.SnapshotStore
	gateway session.ScoreGateway
	cfg     session.Config
	hub     *ws.Hub
	logger  zerolog.Logger
}

func NewManager(loader session.BatchLoader, store session.SnapshotStore, gateway session.ScoreGateway, cfg session.Config, hub *ws.Hub, logger zerolog.Logger) *Manager {
	return &Manager{
		engines: make(map[string]*session.Engine),
		loader:  loader,
		store:   store,
		gateway: gateway,
		cfg:     cfg,
		hub:     hub,
		logger:  logger,
	}
}

// Get returns the live engine for a participant, if any.
func (m *Manager) Get(userID string) (*session.Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eng, ok := m.engines[userID]
	return eng, ok
}

// GetOrCreate returns the live engine for a participant, building one with
// hub-backed timer events when none exists yet.
func (m *Manager) GetOrCreate(userID string) *session.Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eng, ok := m.engines[userID]; ok {
		return eng
	}
	eng := session.NewEngine(session.Options{
		Loader:  m.loader,
		Store:   m.store,
		Gateway: m.gateway,
		Events:  hubEvents{hub: m.hub, userID: userID},
		Config:  m.cfg,
		Logger:  m.logger,
	})
	m.engines[userID] = eng
	return eng
}

// Remove stops and drops a participant's engine.
func (m *Manager) Remove(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if eng, ok := m.engines[userID]; ok {
		eng.Close()
		delete(m.engines, userID)
	}
}

// CloseAll stops every engine's timer. Snapshots stay in the store, so a
// restarted process can restore each session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, eng := range m.engines {
		eng.Close()
	}
	m.engines = make(map[string]*session.Engine)
}

// hubEvents forwards engine timer events to the participant's WebSocket
// connection. Delivery is fire-and-forget: a disconnected client just
// misses ticks.
type hubEvents struct {
	hub    *ws.Hub
	userID string
}

func (h hubEvents) TimerTick(remaining int) {
	h.send(ws.TypeQuestionTick, ws.QuestionTickPayload{RemainingSeconds: remaining})
}

func (h hubEvents) TimerExpired(scored bool) {
	h.send(ws.TypeTimeExpired, ws.TimeExpiredPayload{Scored: scored, Advanced: scored})
}

func (h hubEvents) send(msgType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = h.hub.SendToUser(h.userID, ws.Message{Type: msgType, Payload: raw})
}
