package plan

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/session"
)

// Backend is the remote side of finalization, satisfied by Client.
type Backend interface {
	PostCompletion(ctx context.Context, userID, phase string, percentages map[string]int) (*CompletionResponse, error)
	FetchPlan(ctx context.Context, userID string, level session.Level, summary session.Summary, results []session.Result) (*Plan, error)
}

// Service assembles the final report. Both backend calls are best effort:
// a dead completion sink or plan service degrades to client-side fallbacks
// instead of failing the finish.
type Service struct {
	backend Backend
	logger  zerolog.Logger
}

func NewService(backend Backend, logger zerolog.Logger) *Service {
	return &Service{
		backend: backend,
		logger:  logger.With().Str("component", "plan_service").Logger(),
	}
}

// Percentages converts the 0..10 per-category averages to the integer
// scale the completion sink expects, rounding avg*100.
func Percentages(summary session.Summary) map[string]int {
	out := make(map[string]int, len(summary.PerCategory))
	for cat, avg := range summary.PerCategory {
		out[cat] = int(math.Round(avg * 100))
	}
	return out
}

// Finalize reports completion, resolves materials and fetches the study
// plan. Materials and course-pack suggestions are attached on the first
// attempt only; the POST run keeps scores and plan.
func (s *Service) Finalize(ctx context.Context, userID string, phase question.Phase, level session.Level, summary session.Summary, results []session.Result) FinalReport {
	report := FinalReport{Percentages: Percentages(summary)}

	completion, err := s.backend.PostCompletion(ctx, userID, string(phase), report.Percentages)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("completion sink unreachable")
		completion = nil
	}

	if phase == question.PhasePre {
		report.Materials = resolveMaterials(completion, summary)
		report.CoursePack = CoursePackSuggestions(summary)
	}

	if p, err := s.backend.FetchPlan(ctx, userID, level, summary, results); err == nil && p != nil {
		report.Plan = *p
	} else {
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("plan service unreachable, using fallback plan")
		}
		report.Plan = FallbackPlan()
	}
	return report
}

// resolveMaterials prefers what the completion sink sent: ready materials
// first, then its level map, then the local summary-derived fallback.
func resolveMaterials(completion *CompletionResponse, summary session.Summary) []Material {
	if completion != nil {
		if len(completion.Materials) > 0 {
			return completion.Materials
		}
		if len(completion.Levels) > 0 {
			return MaterialsFromLevels(completion.Levels)
		}
	}
	return MaterialsFromSummary(summary)
}

// FallbackPlan is the fixed plan shown when the plan service is down.
func FallbackPlan() Plan {
	return Plan{
		Title:   "Πλάνο 2 εβδομάδων (personalized)",
		Summary: "Η βελτίωση της δομής περιεχομένου είναι κρίσιμη για την αποτελεσματική επικοινωνία.",
		Steps: []string{
			"Αναλύστε τη δομή του περιεχομένου σας και προσδιορίστε τα κύρια σημεία που θέλετε να μεταφέρετε.",
			"Δημιουργήστε ένα μικρό λογικό πλαίσιο για την παρουσίαση (εισαγωγή – κύριο μέρος – συμπέρασμα).",
			"Εξασκηθείτε στην παρουσίαση με τη νέα δομή, εστιάζοντας στη ροή και τη σύνδεση των ιδεών.",
		},
	}
}
