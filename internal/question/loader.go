package question

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Fixed batch composition: every fetch returns 2 open + 2 multiple-choice.
const (
	batchOpenCount   = 2
	batchChoiceCount = 2
)

// Loader fetches question bundles from the question source and normalizes
// the heterogeneous response shapes into []Question. Errors propagate to the
// caller untouched; the flow controller owns user-visible reporting.
type Loader struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewLoader(baseURL, apiKey string, httpClient *http.Client) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 6 * time.Second}
	}
	return &Loader{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// flexID decodes a JSON string or number into a plain string. The question
// backend has shipped both over time.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(b)
	return nil
}

type openItem struct {
	ID   flexID `json:"id"`
	Text string `json:"text"`
}

type choiceItem struct {
	ID      flexID          `json:"id"`
	Text    string          `json:"text"`
	Options json.RawMessage `json:"options"`
	Choices []string        `json:"choices"`
	Correct *flexID         `json:"correct"`
	// later backend versions send correct_id instead of correct
	CorrectID *flexID `json:"correct_id"`
}

type bundleResponse struct {
	Open []openItem   `json:"open"`
	MC   []choiceItem `json:"mc"`
}

// FetchBatch requests one 4-question bundle for a category/phase/attempt.
// Multiple-choice questions are always returned before open questions,
// regardless of the order received from the source.
func (l *Loader) FetchBatch(ctx context.Context, category string, phase Phase, attempt int) ([]Question, error) {
	values := url.Values{}
	values.Set("category", category)
	values.Set("n_open", strconv.Itoa(batchOpenCount))
	values.Set("n_mc", strconv.Itoa(batchChoiceCount))
	values.Set("phase", string(phase))
	values.Set("attempt", strconv.Itoa(attempt))
	values.Set("include_correct", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/questions/bundle?%s", l.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if l.apiKey != "" {
		req.Header.Set("x-api-key", l.apiKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("question source non-200: %d", resp.StatusCode)
	}

	var payload bundleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	batch := make([]Question, 0, batchOpenCount+batchChoiceCount)
	for i, item := range payload.MC {
		if i >= batchChoiceCount {
			break
		}
		batch = append(batch, normalizeChoice(item, category))
	}
	for i, item := range payload.Open {
		if i >= batchOpenCount {
			break
		}
		batch = append(batch, Question{
			ID:       string(item.ID),
			Category: category,
			Type:     TypeOpen,
			Prompt:   item.Text,
		})
	}
	return batch, nil
}

func normalizeChoice(item choiceItem, category string) Question {
	return Question{
		ID:        string(item.ID),
		Category:  category,
		Type:      TypeChoice,
		Prompt:    item.Text,
		Options:   normalizeOptions(item),
		CorrectID: normalizeCorrect(item),
	}
}

// normalizeOptions accepts both option shapes the backend has used:
// an array of {id, text} objects, or a bare array of strings (indexes
// become ids).
func normalizeOptions(item choiceItem) []Option {
	if len(item.Options) > 0 {
		var objects []struct {
			ID   flexID `json:"id"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(item.Options, &objects); err == nil {
			out := make([]Option, 0, len(objects))
			for _, o := range objects {
				out = append(out, Option{ID: string(o.ID), Text: o.Text})
			}
			return out
		}
		var strs []string
		if err := json.Unmarshal(item.Options, &strs); err == nil {
			return indexedOptions(strs)
		}
	}
	if len(item.Choices) > 0 {
		return indexedOptions(item.Choices)
	}
	return nil
}

func indexedOptions(texts []string) []Option {
	out := make([]Option, 0, len(texts))
	for i, t := range texts {
		out = append(out, Option{ID: strconv.Itoa(i), Text: t})
	}
	return out
}

func normalizeCorrect(item choiceItem) *string {
	for _, v := range []*flexID{item.Correct, item.CorrectID} {
		if v != nil && *v != "" {
			s := string(*v)
			return &s
		}
	}
	return nil
}
