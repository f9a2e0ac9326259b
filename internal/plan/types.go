package plan

// Material points a participant at a level-matched study PDF.
type Material struct {
	Category string `json:"category"` // slug or label, as delivered
	Level    string `json:"level"`    // low | mid | high
	URL      string `json:"url"`
}

// Resource is an external reference attached to a plan.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Plan is the two-week personalized study plan shown after finishing.
type Plan struct {
	Title     string     `json:"title"`
	Summary   string     `json:"summary"`
	Steps     []string   `json:"steps"`
	Resources []Resource `json:"resources,omitempty"`
}

// CoursePackSuggestion recommends specific pages of the course material.
type CoursePackSuggestion struct {
	Category string `json:"category"`
	Band     string `json:"band"`
	PDF      string `json:"pdf"`
	Pages    string `json:"pages"`
	Note     string `json:"note,omitempty"`
}

// CompletionResponse is what the completion sink returns. Levels is keyed
// by category slug.
type CompletionResponse struct {
	Levels    map[string]string `json:"levels,omitempty"`
	Materials []Material        `json:"materials,omitempty"`
}

// FinalReport bundles everything the finish screen and the exports need.
type FinalReport struct {
	Plan        Plan                   `json:"plan"`
	Materials   []Material             `json:"materials"`
	CoursePack  []CoursePackSuggestion `json:"course_pack"`
	Percentages map[string]int         `json:"percentages"`
}
