package question

// Type discriminates open-text and multiple-choice questions.
type Type string

const (
	TypeOpen   Type = "open"
	TypeChoice Type = "mc"
)

// Phase is the assessment phase. PRE is the first attempt of the
// instrument, POST the second.
type Phase string

const (
	PhasePre  Phase = "PRE"
	PhasePost Phase = "POST"
)

// Option is a normalized multiple-choice option.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question represents the normalized item delivered to the session engine.
// Answer/SelectedID/Scored/ServerAnswerID are the mutable participant-facing
// fields; everything else is fixed at load time.
type Question struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Type           Type     `json:"type"`
	Prompt         string   `json:"prompt"`
	Options        []Option `json:"options,omitempty"`
	CorrectID      *string  `json:"correct_id"`
	Answer         string   `json:"answer,omitempty"`
	SelectedID     *string  `json:"selected_id,omitempty"`
	Scored         bool     `json:"scored"`
	ServerAnswerID string   `json:"server_answer_id,omitempty"`
}
