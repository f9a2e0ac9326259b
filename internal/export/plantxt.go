package export

import (
	"fmt"
	"strings"

	"github.com/softskillslab/quiz-engine/internal/plan"
	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/session"
)

// prettyCategory maps a slug back to its display label for the TXT export.
func prettyCategory(labelOrSlug string) string {
	return question.Label(labelOrSlug)
}

// PlanTXT renders the study plan, the per-category averages and, on the
// first attempt, the recommended PDFs and course-pack pages as a plain-text
// document with CRLF line endings.
func PlanTXT(userID string, phase question.Phase, attempt int, level session.Level, summary session.Summary, report plan.FinalReport) []byte {
	var lines []string
	push := func(l string) { lines = append(lines, l) }

	phaseLabel := "Αρχικό τεστ (PRE)"
	if phase == question.PhasePost {
		phaseLabel = "Τελικό τεστ (POST)"
	}

	push("Soft Skills Quiz – Ατομικό Πλάνο Μάθησης")
	push(fmt.Sprintf("Χρήστης: %s", userID))
	push(fmt.Sprintf("Attempt: %d (%s)", attempt, phaseLabel))
	push("")
	push(fmt.Sprintf("Συνολικός μέσος όρος: %.2f / 10", summary.Overall))
	push(fmt.Sprintf("Level: %s", strings.ToUpper(string(level))))
	push("")

	push("Μέσοι όροι ανά κατηγορία:")
	for _, cat := range summary.CategoryOrder {
		push(fmt.Sprintf("- %s: %.2f / 10", cat, summary.PerCategory[cat]))
	}
	push("")

	p := report.Plan
	push(fmt.Sprintf("Τίτλος πλάνου: %s", p.Title))
	push("")
	push("Σύνοψη:")
	push(p.Summary)
	push("")

	if len(p.Steps) > 0 {
		push("Βήματα (2 εβδομάδες):")
		for i, step := range p.Steps {
			push(fmt.Sprintf("%d. %s", i+1, step))
		}
		push("")
	}

	if phase == question.PhasePre {
		if len(report.Materials) > 0 {
			push("Προτεινόμενα PDFs για μελέτη:")
			for _, m := range report.Materials {
				push(fmt.Sprintf("- %s [%s]: %s", prettyCategory(m.Category), m.Level, m.URL))
			}
			push("")
		}
		if len(report.CoursePack) > 0 {
			push("Προτεινόμενες σελίδες από το υλικό μαθήματος:")
			for i, s := range report.CoursePack {
				push(fmt.Sprintf("%d. Κατηγορία: %s (level: %s)", i+1, s.Category, s.Band))
				push(fmt.Sprintf("   PDF: %s", s.PDF))
				push(fmt.Sprintf("   Σελίδες: %s", s.Pages))
				if s.Note != "" {
					push(fmt.Sprintf("   Σχόλιο: %s", s.Note))
				}
			}
			push("")
		}
	}

	push("Σημείωση: Αυτό το πλάνο βασίζεται στις απαντήσεις σου στο συγκεκριμένο attempt του quiz και μπορείς να το χρησιμοποιήσεις ως οδηγό για στοχευμένη μελέτη.")

	return []byte(strings.Join(lines, "\r\n"))
}

// PlanTXTFileName names the download after the participant and attempt.
func PlanTXTFileName(userID string, attempt int) string {
	return fmt.Sprintf("softskills_plan_%s_attempt%d.txt", userID, attempt)
}
