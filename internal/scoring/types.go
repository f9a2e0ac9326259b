package scoring

import "github.com/softskillslab/quiz-engine/internal/question"

// Measures are the text features produced by the first scoring pass. They
// are forwarded verbatim into the evaluation call.
type Measures struct {
	Clarity         float64 `json:"clarity"`
	Coherence       float64 `json:"coherence"`
	TopicRelevance  float64 `json:"topic_relevance"`
	VocabularyRange float64 `json:"vocabulary_range"`
}

// Coaching is the normalized advice block shown after scoring. Any field
// may be empty when the backend omitted it.
type Coaching struct {
	Keep   string `json:"keep,omitempty"`
	Change string `json:"change,omitempty"`
	Action string `json:"action,omitempty"`
	Drill  string `json:"drill,omitempty"`
}

// Outcome is the normalized scoring result regardless of which backend
// shape produced it.
type Outcome struct {
	// Score is nil when no numeric score could be extracted.
	Score    *float64  `json:"score"`
	Coaching *Coaching `json:"coaching,omitempty"`
	AnswerID string    `json:"answer_id,omitempty"`
	Correct  *bool     `json:"correct,omitempty"`
}

// OpenRequest scores one open-text answer.
type OpenRequest struct {
	UserID     string
	Category   string // display label, e.g. "Problem Solving"
	QuestionID string
	Answer     string
	Phase      question.Phase
	Attempt    int
}

// ChoiceRequest scores one multiple-choice answer.
type ChoiceRequest struct {
	UserID     string
	Category   string // display label
	QuestionID string
	Prompt     string
	Options    []question.Option
	SelectedID string
	CorrectID  *string
	Phase      question.Phase
	Attempt    int
}
