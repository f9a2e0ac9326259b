package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The scoring backend has shipped several response layouts over time. The
// helpers below probe the known field aliases in a fixed priority order so
// every layout normalizes to the same Outcome.

// ParseOutcome decodes a raw scoring response into a normalized Outcome.
func ParseOutcome(raw []byte) (Outcome, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Outcome{}, fmt.Errorf("decode scoring response: %w", err)
	}
	return outcomeFromMap(payload), nil
}

func outcomeFromMap(payload map[string]any) Outcome {
	return Outcome{
		Score:    pickScore(payload),
		Coaching: pickCoaching(payload),
		AnswerID: pickAnswerID(payload),
	}
}

func nestedMap(payload map[string]any, key string) map[string]any {
	if m, ok := payload[key].(map[string]any); ok {
		return m
	}
	return nil
}

// pickScore probes score, auto_score and result.score in that order.
func pickScore(payload map[string]any) *float64 {
	if v, ok := asNumber(payload["score"]); ok {
		return &v
	}
	if v, ok := asNumber(payload["auto_score"]); ok {
		return &v
	}
	if result := nestedMap(payload, "result"); result != nil {
		if v, ok := asNumber(result["score"]); ok {
			return &v
		}
	}
	return nil
}

// pickAnswerID probes answer_id, result.answer_id and id in that order.
func pickAnswerID(payload map[string]any) string {
	if s := asString(payload["answer_id"]); s != "" {
		return s
	}
	if result := nestedMap(payload, "result"); result != nil {
		if s := asString(result["answer_id"]); s != "" {
			return s
		}
	}
	return asString(payload["id"])
}

// pickCoaching locates the advice block under coaching, result.coaching or
// an object-valued feedback field, then resolves each advice slot through
// its aliases.
func pickCoaching(payload map[string]any) *Coaching {
	coach := nestedMap(payload, "coaching")
	if coach == nil {
		if result := nestedMap(payload, "result"); result != nil {
			coach = nestedMap(result, "coaching")
		}
	}
	if coach == nil {
		coach = nestedMap(payload, "feedback")
	}
	if coach == nil {
		return nil
	}

	c := &Coaching{
		Keep:   firstAlias(coach, "keep", "advice_keep", "positive", "strengths"),
		Change: firstAlias(coach, "change", "advice_change", "negative", "weaknesses", "improve"),
		Action: firstAlias(coach, "action", "next_steps", "plan", "suggested_action"),
		Drill:  firstAlias(coach, "drill", "practice", "exercise", "resources"),
	}
	if c.Keep == "" && c.Change == "" && c.Action == "" && c.Drill == "" {
		return nil
	}
	return c
}

func firstAlias(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := asString(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
