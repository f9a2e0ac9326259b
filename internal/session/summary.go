package session

import "math"

// Summary is the end-of-session rollup. Categories keep first-seen order so
// repeated runs over the same results render identically.
type Summary struct {
	PerCategory   map[string]float64 `json:"per_category"`
	CategoryOrder []string           `json:"category_order"`
	Weakest       string             `json:"weakest_category"`
	Overall       float64            `json:"overall"`
}

// Summarize folds scored results into per-category averages. Results with
// no numeric score are skipped from every average; a category whose scores
// are all missing averages to 0. The weakest category is the first one with
// the strictly lowest unrounded average.
func Summarize(results []Result) Summary {
	perCategory := make(map[string][]float64)
	var order []string
	var all []float64

	for _, r := range results {
		cat := r.Category
		if cat == "" {
			cat = "General"
		}
		if _, seen := perCategory[cat]; !seen {
			order = append(order, cat)
			perCategory[cat] = nil
		}
		if r.Score != nil {
			perCategory[cat] = append(perCategory[cat], *r.Score)
			all = append(all, *r.Score)
		}
	}

	s := Summary{
		PerCategory:   make(map[string]float64, len(order)),
		CategoryOrder: order,
		Overall:       round2(mean(all)),
	}

	weakestVal := math.Inf(1)
	for _, cat := range order {
		avg := mean(perCategory[cat])
		s.PerCategory[cat] = round2(avg)
		if avg < weakestVal {
			weakestVal = avg
			s.Weakest = cat
		}
	}
	return s
}

// StarterAverage is the branch-decision input: the mean of the first four
// results with missing scores counted as 0.
func StarterAverage(results []Result) float64 {
	n := len(results)
	if n > 4 {
		n = 4
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, r := range results[:n] {
		if r.Score != nil {
			sum += *r.Score
		}
	}
	return sum / float64(n)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
