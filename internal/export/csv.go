package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/softskillslab/quiz-engine/internal/session"
)

// Results CSV uses semicolons and a UTF-8 BOM so Greek text opens cleanly
// in Excel on Windows.
const (
	csvSeparator = ";"
	csvEOL       = "\r\n"
	utf8BOM      = "\uFEFF"
)

var csvHeaders = []string{
	"user_id", "category", "question_id", "type", "score", "selected_id", "correct_id", "text",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ResultsCSV renders the scored results as a downloadable CSV document.
func ResultsCSV(userID string, results []session.Result) []byte {
	var b strings.Builder
	b.WriteString(utf8BOM)
	writeRow(&b, csvHeaders)

	for _, r := range results {
		score := ""
		if r.Score != nil {
			score = strconv.FormatFloat(*r.Score, 'f', -1, 64)
		}
		correctID := ""
		if r.CorrectID != nil {
			correctID = *r.CorrectID
		}
		writeRow(&b, []string{
			userID,
			r.Category,
			r.QuestionID,
			string(r.Type),
			score,
			r.SelectedID,
			correctID,
			r.Answer,
		})
	}
	return []byte(b.String())
}

// ResultsCSVFileName names the download after the participant.
func ResultsCSVFileName(userID string) string {
	return fmt.Sprintf("softskills_results_%s.csv", userID)
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(csvSeparator)
		}
		b.WriteString(quoteField(f))
	}
	b.WriteString(csvEOL)
}

// quoteField collapses newlines and whitespace runs into single spaces and
// doubles inner quotes, then wraps the value in quotes.
func quoteField(v string) string {
	cleaned := strings.TrimSpace(whitespaceRun.ReplaceAllString(v, " "))
	return `"` + strings.ReplaceAll(cleaned, `"`, `""`) + `"`
}
