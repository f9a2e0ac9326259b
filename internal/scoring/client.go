package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/softskillslab/quiz-engine/internal/question"
)

// Client talks to the scoring backend. It only shapes requests and
// normalizes responses; retry and flow policy live in the Gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type openScoreRequest struct {
	Category   string `json:"category"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	UserID     string `json:"user_id"`
}

type openScoreResponse struct {
	Measures *rawMeasures `json:"measures"`
	rawMeasures
}

// flexNumber tolerates numbers sent as JSON strings.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

type rawMeasures struct {
	Clarity         flexNumber `json:"clarity"`
	Coherence       flexNumber `json:"coherence"`
	TopicRelevance  flexNumber `json:"topic_relevance"`
	VocabularyRange flexNumber `json:"vocabulary_range"`
}

// ScoreOpenText runs the first scoring pass over an open answer and returns
// the text measures. The numeric score of this pass is not what the
// participant sees, so it is discarded here.
func (c *Client) ScoreOpenText(ctx context.Context, categoryLabel, questionID, text, userID string) (Measures, error) {
	body, err := c.postJSON(ctx, "/score-open?save=false&force_llm=true", openScoreRequest{
		Category:   categoryLabel,
		QuestionID: questionID,
		Text:       text,
		UserID:     userID,
	})
	if err != nil {
		return Measures{}, err
	}

	var resp openScoreResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Measures{}, fmt.Errorf("decode measures: %w", err)
	}
	raw := resp.rawMeasures
	if resp.Measures != nil {
		raw = *resp.Measures
	}
	return Measures{
		Clarity:         float64(raw.Clarity),
		Coherence:       float64(raw.Coherence),
		TopicRelevance:  float64(raw.TopicRelevance),
		VocabularyRange: float64(raw.VocabularyRange),
	}, nil
}

type evaluateMeta struct {
	UserID     string   `json:"userId"`
	AnswerID   string   `json:"answerId"`
	Category   string   `json:"category"`
	Modalities []string `json:"modalities"`
}

type evaluateText struct {
	Measures
	Raw string `json:"raw"`
}

type evaluateRequest struct {
	Meta evaluateMeta `json:"meta"`
	Text evaluateText `json:"text"`
}

// EvaluateAndSave runs the evaluation pass. Its score is the one the
// participant sees. The category travels as a slug here, unlike the other
// scoring endpoints.
func (c *Client) EvaluateAndSave(ctx context.Context, userID, questionID, categorySlug string, measures Measures, rawText string) (Outcome, error) {
	body, err := c.postJSON(ctx, "/glmp/evaluate-and-save", evaluateRequest{
		Meta: evaluateMeta{
			UserID:     userID,
			AnswerID:   questionID,
			Category:   categorySlug,
			Modalities: []string{"text"},
		},
		Text: evaluateText{Measures: measures, Raw: rawText},
	})
	if err != nil {
		return Outcome{}, err
	}
	return ParseOutcome(body)
}

type syncScoreRequest struct {
	UserID     string  `json:"user_id"`
	Category   string  `json:"category"`
	QuestionID string  `json:"question_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SyncOpenScore writes the evaluation score back to the rating store so the
// rater tooling sees the same number the participant saw.
func (c *Client) SyncOpenScore(ctx context.Context, userID, categoryLabel, questionID, text string, score float64) error {
	_, err := c.postJSON(ctx, "/score-open-from-glmp?save=true", syncScoreRequest{
		UserID:     userID,
		Category:   categoryLabel,
		QuestionID: questionID,
		Text:       text,
		Score:      score,
	})
	return err
}

type choiceScoreRequest struct {
	UserID       string            `json:"user_id"`
	Category     string            `json:"category"`
	QuestionID   string            `json:"question_id"`
	QuestionText string            `json:"question_text"`
	Options      []question.Option `json:"options"`
	SelectedID   string            `json:"selected_id"`
	CorrectID    *string           `json:"correct_id"`
}

// ScoreChoiceAnswer records a multiple-choice answer and returns the
// backend's scoring outcome.
func (c *Client) ScoreChoiceAnswer(ctx context.Context, req ChoiceRequest) (Outcome, error) {
	options := req.Options
	if options == nil {
		options = []question.Option{}
	}
	body, err := c.postJSON(ctx, "/score-mc?save=true&force_llm=true", choiceScoreRequest{
		UserID:       req.UserID,
		Category:     question.Slug(req.Category),
		QuestionID:   req.QuestionID,
		QuestionText: req.Prompt,
		Options:      options,
		SelectedID:   req.SelectedID,
		CorrectID:    req.CorrectID,
	})
	if err != nil {
		return Outcome{}, err
	}
	return ParseOutcome(body)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scoring backend non-200 on %s: %d", path, resp.StatusCode)
	}
	return body, nil
}
