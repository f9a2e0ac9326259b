package ws

import "encoding/json"

// MessageType constants for the session WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypePong            = "pong"
	TypeQuestionTick    = "question_tick"
	TypeTimeExpired     = "time_expired"
	TypeBranchLoaded    = "branch_loaded"
	TypeSessionFinished = "session_finished"
	TypeError           = "error"
)

// Message wraps all WebSocket payloads with a type tag.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// QuestionTickPayload carries the countdown for the current question.
type QuestionTickPayload struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

// TimeExpiredPayload tells the client what happened when time ran out:
// a scored question auto-advances, an unscored one stays put.
type TimeExpiredPayload struct {
	Scored   bool `json:"scored"`
	Advanced bool `json:"advanced"`
}

// BranchLoadedPayload announces the expanded bundle after the branch.
type BranchLoadedPayload struct {
	Level         string `json:"level"`
	QuestionCount int    `json:"question_count"`
	Complete      bool   `json:"complete"`
}

// SessionFinishedPayload closes the stream with the overall outcome.
type SessionFinishedPayload struct {
	Overall float64 `json:"overall"`
	Weakest string  `json:"weakest_category"`
}

// ErrorPayload reports a protocol-level problem to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
