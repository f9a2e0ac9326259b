package scoring

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/question"
)

// Gateway orchestrates the multi-call scoring flows. Open answers take two
// mandatory passes plus a best-effort write-back; multiple-choice answers
// take one call with correctness computed locally.
type Gateway struct {
	client *Client
	logger zerolog.Logger
}

func NewGateway(client *Client, logger zerolog.Logger) *Gateway {
	return &Gateway{
		client: client,
		logger: logger.With().Str("component", "scoring_gateway").Logger(),
	}
}

// ScoreOpen scores an open-text answer. The measures pass and the
// evaluation pass must both succeed; the write-back of the evaluation score
// to the rating store is best effort and never fails the flow.
func (g *Gateway) ScoreOpen(ctx context.Context, req OpenRequest) (*Outcome, error) {
	measures, err := g.client.ScoreOpenText(ctx, req.Category, req.QuestionID, req.Answer, req.UserID)
	if err != nil {
		return nil, err
	}

	out, err := g.client.EvaluateAndSave(ctx, req.UserID, req.QuestionID, question.Slug(req.Category), measures, req.Answer)
	if err != nil {
		return nil, err
	}

	if out.Score != nil {
		if err := g.client.SyncOpenScore(ctx, req.UserID, req.Category, req.QuestionID, req.Answer, *out.Score); err != nil {
			g.logger.Warn().Err(err).
				Str("question_id", req.QuestionID).
				Msg("failed to sync evaluation score to rating store")
		}
	}
	return &out, nil
}

// ScoreChoice scores a multiple-choice answer. Correctness is decided
// locally against the known correct option; an unknown correct option
// counts as incorrect.
func (g *Gateway) ScoreChoice(ctx context.Context, req ChoiceRequest) (*Outcome, error) {
	correct := req.CorrectID != nil && req.SelectedID == *req.CorrectID

	out, err := g.client.ScoreChoiceAnswer(ctx, req)
	if err != nil {
		return nil, err
	}
	out.Correct = &correct
	return &out, nil
}
