package recommend

import (
	"context"
	"log/slog"

	"quietspot/app/client/llm"
	"quietspot/app/model"
	"quietspot/app/util/geo"

	"github.com/samber/do"
)

// MaxRecommendations bounds every round regardless of the producing tier.
const MaxRecommendations = 5

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeEmpty     Outcome = "empty"
	OutcomeTransient Outcome = "transient_failure"
	OutcomePermanent Outcome = "permanent_failure"
)

// TierResult is what a single tier produced. The cascade only stops on a
// non-empty success.
type TierResult struct {
	Recommendations []model.Recommendation
	Outcome         Outcome
	Err             error
}

func success(recs []model.Recommendation) TierResult {
	if len(recs) == 0 {
		return TierResult{Outcome: OutcomeEmpty}
	}

	return TierResult{Recommendations: recs, Outcome: OutcomeSuccess}
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type tier struct {
	name string
	run  func(ctx context.Context, prefs model.Preferences, userLoc *geo.Point) TierResult
}

type Service struct {
	store     model.Store
	generator Generator
}

func New(di *do.Injector) (*Service, error) {
	return NewWithDeps(
		do.MustInvoke[model.Store](di),
		do.MustInvoke[*llm.Client](di),
	), nil
}

func NewWithDeps(store model.Store, generator Generator) *Service {
	return &Service{
		store:     store,
		generator: generator,
	}
}

// Recommend runs the database, generative and static tiers in order and
// returns the first non-empty result. The static tier always succeeds, so the
// result is never empty.
func (s *Service) Recommend(ctx context.Context, prefs model.Preferences, userLoc *geo.Point) []model.Recommendation {
	tiers := []tier{
		{name: string(model.SourceDatabase), run: s.fromDatabase},
		{name: string(model.SourceGenerative), run: s.fromGenerator},
		{name: string(model.SourceStatic), run: s.fromStatic},
	}

	for _, t := range tiers {
		result := t.run(ctx, prefs, userLoc)

		if result.Outcome == OutcomeSuccess {
			slog.Debug("Recommendation tier succeeded",
				"tier", t.name,
				"count", len(result.Recommendations),
			)

			return capRecommendations(result.Recommendations)
		}

		slog.Info("Recommendation tier fell through",
			"tier", t.name,
			"outcome", result.Outcome,
			"error", result.Err,
		)
	}

	// unreachable while the static tier is last
	return capRecommendations(staticRecommendations(prefs))
}

// IDs returns recommendation ids in order.
func IDs(recs []model.Recommendation) []string {
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}

	return ids
}

func capRecommendations(recs []model.Recommendation) []model.Recommendation {
	if len(recs) > MaxRecommendations {
		return recs[:MaxRecommendations]
	}

	return recs
}
