package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/softskillslab/quiz-engine/internal/session"
)

// Client calls the completion sink and the session-plan service.
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

type completeRequest struct {
	UserID  string         `json:"userId"`
	Phase   string         `json:"phase"`
	Results map[string]int `json:"results"`
}

// PostCompletion reports the per-category percentages to the completion
// sink and returns whatever levels or materials it sends back.
func (c *Client) PostCompletion(ctx context.Context, userID, phase string, percentages map[string]int) (*CompletionResponse, error) {
	body, err := c.postJSON(ctx, "/quiz/complete", completeRequest{
		UserID:  userID,
		Phase:   phase,
		Results: percentages,
	})
	if err != nil {
		return nil, err
	}
	var resp CompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	return &resp, nil
}

type planMeta struct {
	UserID          string             `json:"userId"`
	Level           string             `json:"level"`
	Overall         float64            `json:"overall"`
	PerCategory     map[string]float64 `json:"perCategory"`
	WeakestCategory string             `json:"weakestCategory,omitempty"`
}

type planAnswer struct {
	QuestionID string   `json:"questionId"`
	Category   string   `json:"category"`
	Type       string   `json:"type"`
	Score      *float64 `json:"score"`
	SelectedID *string  `json:"selected_id"`
	CorrectID  *string  `json:"correct_id"`
	Text       string   `json:"text"`
}

type planRequest struct {
	Meta    planMeta     `json:"meta"`
	Answers []planAnswer `json:"answers"`
}

// FetchPlan asks the plan service for a personalized study plan built from
// the summary and the full answer history.
func (c *Client) FetchPlan(ctx context.Context, userID string, level session.Level, summary session.Summary, results []session.Result) (*Plan, error) {
	answers := make([]planAnswer, 0, len(results))
	for _, r := range results {
		a := planAnswer{
			QuestionID: r.QuestionID,
			Category:   r.Category,
			Type:       string(r.Type),
			Score:      r.Score,
			CorrectID:  r.CorrectID,
			Text:       r.Answer,
		}
		if r.SelectedID != "" {
			selected := r.SelectedID
			a.SelectedID = &selected
		}
		answers = append(answers, a)
	}

	body, err := c.postJSON(ctx, "/glmp/session-plan", planRequest{
		Meta: planMeta{
			UserID:          userID,
			Level:           string(level),
			Overall:         summary.Overall,
			PerCategory:     summary.PerCategory,
			WeakestCategory: summary.Weakest,
		},
		Answers: answers,
	})
	if err != nil {
		return nil, err
	}

	var p Plan
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
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
		return nil, fmt.Errorf("plan backend non-200 on %s: %d", path, resp.StatusCode)
	}
	return body, nil
}
