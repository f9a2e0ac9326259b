package plan

import (
	"fmt"
	"strings"

	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/session"
)

// PDFURL builds the static path of a study PDF for a category and band.
func PDFURL(categorySlug string, level session.Level) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(categorySlug)), " ", "_")
	return fmt.Sprintf("/pdf/%s_%s.pdf", slug, strings.ToLower(string(level)))
}

// MaterialsFromSummary derives the study PDFs from the per-category
// averages. This is the fallback when the completion sink returned nothing.
func MaterialsFromSummary(summary session.Summary) []Material {
	out := make([]Material, 0, len(summary.CategoryOrder))
	for _, label := range summary.CategoryOrder {
		level := session.LevelFor(summary.PerCategory[label])
		slug := question.Slug(label)
		out = append(out, Material{
			Category: slug,
			Level:    string(level),
			URL:      PDFURL(slug, level),
		})
	}
	return out
}

// MaterialsFromLevels builds materials out of the level map the completion
// sink may return instead of ready-made materials.
func MaterialsFromLevels(levels map[string]string) []Material {
	out := make([]Material, 0, len(levels))
	for _, label := range question.AllCategories {
		slug := question.Slug(label)
		raw, ok := levels[slug]
		if !ok {
			continue
		}
		level := session.Level(strings.ToLower(strings.TrimSpace(raw)))
		out = append(out, Material{
			Category: label,
			Level:    string(level),
			URL:      PDFURL(slug, level),
		})
	}
	return out
}
