package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/softskillslab/quiz-engine/internal/question"
)

func scorePtr(v float64) *float64 { return &v }

func scoredResult(category string, score *float64) Result {
	return Result{
		QuestionID: "q",
		Category:   category,
		Type:       question.TypeOpen,
		Score:      score,
	}
}

func TestSummarizeAveragesAndWeakest(t *testing.T) {
	s := Summarize([]Result{
		scoredResult("Leadership", scorePtr(8)),
		scoredResult("Leadership", scorePtr(6)),
		scoredResult("Teamwork", scorePtr(3)),
	})

	assert.Equal(t, 7.0, s.PerCategory["Leadership"])
	assert.Equal(t, 3.0, s.PerCategory["Teamwork"])
	assert.Equal(t, 5.67, s.Overall)
	assert.Equal(t, "Teamwork", s.Weakest)
	assert.Equal(t, []string{"Leadership", "Teamwork"}, s.CategoryOrder)
}

func TestSummarizeSkipsMissingScores(t *testing.T) {
	s := Summarize([]Result{
		scoredResult("Leadership", scorePtr(9)),
		scoredResult("Leadership", nil),
		scoredResult("Teamwork", nil),
	})

	assert.Equal(t, 9.0, s.PerCategory["Leadership"])
	assert.Equal(t, 0.0, s.PerCategory["Teamwork"])
	assert.Equal(t, 9.0, s.Overall)
	assert.Equal(t, "Teamwork", s.Weakest)
}

func TestSummarizeWeakestTieKeepsFirstSeen(t *testing.T) {
	s := Summarize([]Result{
		scoredResult("Communication", scorePtr(4)),
		scoredResult("Teamwork", scorePtr(4)),
	})
	assert.Equal(t, "Communication", s.Weakest)
}

func TestSummarizeEmptyResults(t *testing.T) {
	s := Summarize(nil)
	assert.Empty(t, s.PerCategory)
	assert.Equal(t, 0.0, s.Overall)
	assert.Empty(t, s.Weakest)
}

func TestStarterAverageCountsMissingAsZero(t *testing.T) {
	avg := StarterAverage([]Result{
		scoredResult("Leadership", scorePtr(8)),
		scoredResult("Leadership", nil),
		scoredResult("Leadership", scorePtr(6)),
		scoredResult("Leadership", scorePtr(2)),
		scoredResult("Teamwork", scorePtr(10)), // beyond the first four
	})
	assert.Equal(t, 4.0, avg)
}

func TestStarterAverageEmpty(t *testing.T) {
	assert.Equal(t, 0.0, StarterAverage(nil))
}

func TestLevelForBandBoundaries(t *testing.T) {
	assert.Equal(t, LevelLow, LevelFor(4.49))
	assert.Equal(t, LevelMid, LevelFor(4.5))
	assert.Equal(t, LevelMid, LevelFor(7.49))
	assert.Equal(t, LevelHigh, LevelFor(7.5))
	assert.Equal(t, LevelLow, LevelFor(0))
	assert.Equal(t, LevelHigh, LevelFor(10))
}
