package question

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBatchNormalizesObjectOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Leadership", r.URL.Query().Get("category"))
		assert.Equal(t, "PRE", r.URL.Query().Get("phase"))
		assert.Equal(t, "1", r.URL.Query().Get("attempt"))
		assert.Equal(t, "true", r.URL.Query().Get("include_correct"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"open": [
				{"id": "o1", "text": "Describe a conflict you resolved."},
				{"id": "o2", "text": "How do you delegate?"}
			],
			"mc": [
				{"id": "m1", "text": "Pick one.", "options": [{"id": "a", "text": "Alpha"}, {"id": "b", "text": "Beta"}], "correct_id": "b"},
				{"id": "m2", "text": "Pick another.", "options": [{"id": "x", "text": "X"}, {"id": "y", "text": "Y"}], "correct_id": "x"}
			]
		}`))
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL, "", srv.Client())
	batch, err := loader.FetchBatch(context.Background(), "Leadership", PhasePre, 1)
	require.NoError(t, err)
	require.Len(t, batch, 4)

	// MC questions always come before open ones.
	assert.Equal(t, TypeChoice, batch[0].Type)
	assert.Equal(t, TypeChoice, batch[1].Type)
	assert.Equal(t, TypeOpen, batch[2].Type)
	assert.Equal(t, TypeOpen, batch[3].Type)

	require.NotNil(t, batch[0].CorrectID)
	assert.Equal(t, "b", *batch[0].CorrectID)
	assert.Equal(t, []Option{{ID: "a", Text: "Alpha"}, {ID: "b", Text: "Beta"}}, batch[0].Options)
	assert.Equal(t, "Leadership", batch[2].Category)
}

func TestFetchBatchNormalizesStringChoicesAndNumericCorrect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"open": [{"id": 11, "text": "Open?"}, {"id": 12, "text": "Open again?"}],
			"mc": [
				{"id": 7, "text": "Legacy shape.", "choices": ["First", "Second", "Third"], "correct": 1},
				{"id": 8, "text": "No correct field.", "choices": ["A", "B"]}
			]
		}`))
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL, "", srv.Client())
	batch, err := loader.FetchBatch(context.Background(), "Teamwork", PhasePre, 1)
	require.NoError(t, err)
	require.Len(t, batch, 4)

	assert.Equal(t, "7", batch[0].ID)
	assert.Equal(t, []Option{{ID: "0", Text: "First"}, {ID: "1", Text: "Second"}, {ID: "2", Text: "Third"}}, batch[0].Options)
	require.NotNil(t, batch[0].CorrectID)
	assert.Equal(t, "1", *batch[0].CorrectID)

	assert.Nil(t, batch[1].CorrectID)
	assert.Equal(t, "11", batch[2].ID)
}

func TestFetchBatchPropagatesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL, "", srv.Client())
	_, err := loader.FetchBatch(context.Background(), "Leadership", PhasePre, 1)
	assert.Error(t, err)
}

func TestBranchCategoriesKeepsFixedOrder(t *testing.T) {
	assert.Equal(t, []string{"Communication", "Teamwork", "Problem Solving"}, BranchCategories("Leadership"))
	assert.Equal(t, []string{"Teamwork", "Leadership", "Problem Solving"}, BranchCategories("Communication"))
}

func TestSlugAndLabelRoundTrip(t *testing.T) {
	assert.Equal(t, "problem_solving", Slug("Problem Solving"))
	assert.Equal(t, "Problem Solving", Label("problem_solving"))
	assert.Equal(t, "negotiation", Slug("Negotiation"))
}
