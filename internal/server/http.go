package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/config"
	"github.com/softskillslab/quiz-engine/internal/metrics"
)

// WSUpgrader handles WebSocket upgrades. The quiz frontend is served from
// a different origin, so cross-origin upgrades are allowed.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewHTTPServer wires the session, export and operational routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, sessions *SessionHandler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/v1/sessions/start", sessions.HandleStart)
	mux.HandleFunc("/v1/sessions/restore", sessions.HandleRestore)
	mux.HandleFunc("/v1/sessions/current", sessions.HandleCurrent)
	mux.HandleFunc("/v1/sessions/answer", sessions.HandleAnswer)
	mux.HandleFunc("/v1/sessions/select", sessions.HandleSelect)
	mux.HandleFunc("/v1/sessions/next", sessions.HandleNext)
	mux.HandleFunc("/v1/sessions/prev", sessions.HandlePrev)
	mux.HandleFunc("/v1/sessions/score", sessions.HandleScore)
	mux.HandleFunc("/v1/sessions/finish", sessions.HandleFinish)
	mux.HandleFunc("/v1/sessions/clear", sessions.HandleClear)

	mux.HandleFunc("/v1/exports/results", sessions.HandleResultsExport)
	mux.HandleFunc("/v1/exports/plan", sessions.HandlePlanExport)

	mux.HandleFunc("/ws/sessions", sessions.HandleWebSocket)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}
