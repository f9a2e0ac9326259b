package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softskillslab/quiz-engine/internal/plan"
	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/session"
)

func scorePtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func TestResultsCSVLayout(t *testing.T) {
	results := []session.Result{
		{
			QuestionID: "q1",
			Category:   "Leadership",
			Type:       question.TypeOpen,
			Answer:     "line one\nline  two \"quoted\"",
			Score:      scorePtr(7.5),
		},
		{
			QuestionID: "m1",
			Category:   "Teamwork",
			Type:       question.TypeChoice,
			SelectedID: "b",
			CorrectID:  strPtr("a"),
			Score:      nil,
		},
	}

	raw := string(ResultsCSV("stu_p1", results))

	require.True(t, strings.HasPrefix(raw, "\uFEFF"), "missing UTF-8 BOM")
	body := strings.TrimPrefix(raw, "\uFEFF")
	require.True(t, strings.HasSuffix(body, "\r\n"))

	lines := strings.Split(strings.TrimSuffix(body, "\r\n"), "\r\n")
	require.Len(t, lines, 3)

	assert.Equal(t, `"user_id";"category";"question_id";"type";"score";"selected_id";"correct_id";"text"`, lines[0])
	// newlines and whitespace runs collapse, inner quotes double
	assert.Equal(t, `"stu_p1";"Leadership";"q1";"open";"7.5";"";"";"line one line two ""quoted"""`, lines[1])
	// a missing score exports as an empty field
	assert.Equal(t, `"stu_p1";"Teamwork";"m1";"mc";"";"b";"a";""`, lines[2])
}

func TestResultsCSVFileName(t *testing.T) {
	assert.Equal(t, "softskills_results_stu_p1.csv", ResultsCSVFileName("stu_p1"))
}

func planReport() plan.FinalReport {
	return plan.FinalReport{
		Plan: plan.Plan{
			Title:   "Πλάνο 2 εβδομάδων (personalized)",
			Summary: "Σύνοψη πλάνου.",
			Steps:   []string{"Βήμα ένα.", "Βήμα δύο."},
		},
		Materials: []plan.Material{
			{Category: "leadership", Level: "high", URL: "/pdf/leadership_high.pdf"},
		},
		CoursePack: []plan.CoursePackSuggestion{
			{Category: "Leadership", Band: "high", PDF: "Α. Τεχνική συγγραφή και Μηχανικοί", Pages: "11–15", Note: "Σημείωση."},
		},
	}
}

func testSummary() session.Summary {
	return session.Summary{
		PerCategory:   map[string]float64{"Leadership": 8.25},
		CategoryOrder: []string{"Leadership"},
		Weakest:       "Leadership",
		Overall:       8.25,
	}
}

func TestPlanTXTFirstAttemptIncludesMaterials(t *testing.T) {
	txt := string(PlanTXT("stu_p1", question.PhasePre, 1, session.LevelHigh, testSummary(), planReport()))

	lines := strings.Split(txt, "\r\n")
	assert.Equal(t, "Soft Skills Quiz – Ατομικό Πλάνο Μάθησης", lines[0])
	assert.Contains(t, txt, "Χρήστης: stu_p1")
	assert.Contains(t, txt, "Attempt: 1 (Αρχικό τεστ (PRE))")
	assert.Contains(t, txt, "Συνολικός μέσος όρος: 8.25 / 10")
	assert.Contains(t, txt, "Level: HIGH")
	assert.Contains(t, txt, "- Leadership: 8.25 / 10")
	assert.Contains(t, txt, "1. Βήμα ένα.")
	assert.Contains(t, txt, "- Leadership [high]: /pdf/leadership_high.pdf")
	assert.Contains(t, txt, "Προτεινόμενες σελίδες από το υλικό μαθήματος:")
	assert.Contains(t, txt, "   Σελίδες: 11–15")
	assert.NotContains(t, txt, "\n\r")
}

func TestPlanTXTPostAttemptOmitsMaterials(t *testing.T) {
	txt := string(PlanTXT("stu_p1", question.PhasePost, 2, session.LevelMid, testSummary(), planReport()))

	assert.Contains(t, txt, "Attempt: 2 (Τελικό τεστ (POST))")
	assert.NotContains(t, txt, "Προτεινόμενα PDFs")
	assert.NotContains(t, txt, "υλικό μαθήματος")
	assert.Contains(t, txt, "Τίτλος πλάνου: Πλάνο 2 εβδομάδων (personalized)")
}

func TestPlanTXTFileName(t *testing.T) {
	assert.Equal(t, "softskills_plan_stu_p1_attempt2.txt", PlanTXTFileName("stu_p1", 2))
}
