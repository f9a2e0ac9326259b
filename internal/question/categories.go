package question

import "strings"

// AllCategories is the fixed ordering used for branch-batch loading. The
// order matters: branch batches are appended in this sequence.
var AllCategories = []string{
	"Communication",
	"Teamwork",
	"Leadership",
	"Problem Solving",
}

var labelToSlug = map[string]string{
	"Communication":   "communication",
	"Teamwork":        "teamwork",
	"Leadership":      "leadership",
	"Problem Solving": "problem_solving",
}

var slugToLabel = map[string]string{
	"communication":   "Communication",
	"teamwork":        "Teamwork",
	"leadership":      "Leadership",
	"problem_solving": "Problem Solving",
}

// Slug converts a display label into the scorer's category key.
func Slug(label string) string {
	if s, ok := labelToSlug[label]; ok {
		return s
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// Label converts a category slug back into its display label.
func Label(slug string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(slug)), " ", "_")
	if l, ok := slugToLabel[key]; ok {
		return l
	}
	return slug
}

// BranchCategories returns every category except the starter, in the fixed
// AllCategories order.
func BranchCategories(starter string) []string {
	out := make([]string, 0, len(AllCategories)-1)
	for _, c := range AllCategories {
		if c != starter {
			out = append(out, c)
		}
	}
	return out
}
