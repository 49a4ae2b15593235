package recommend

import (
	"context"
	"errors"

	"quietspot/app/model"
	"quietspot/app/service/scoring"
	"quietspot/app/util/geo"

	"github.com/elliotchance/pie/v2"
)

const (
	minQuietRating     = 70
	quietMaxNoiseLevel = 45
)

func (s *Service) fromDatabase(ctx context.Context, prefs model.Preferences, userLoc *geo.Point) TierResult {
	filter := model.VenueFilter{
		MinQuietRating: minQuietRating,
		Category:       prefs.Category,
	}
	if prefs.Quiet() {
		filter.MaxNoiseLevel = quietMaxNoiseLevel
	}

	venues, err := s.store.ScanVenues(ctx, filter)
	if err != nil {
		if errors.Is(err, model.ErrStoreUnavailable) || ctx.Err() != nil {
			return TierResult{Outcome: OutcomeTransient, Err: err}
		}

		return TierResult{Outcome: OutcomePermanent, Err: err}
	}

	return success(rankVenues(venues, prefs, userLoc))
}

// rankVenues scores every candidate before truncating, so the best venues
// win regardless of scan order.
func rankVenues(venues []model.Venue, prefs model.Preferences, userLoc *geo.Point) []model.Recommendation {
	recs := pie.Map(venues, func(v model.Venue) model.Recommendation {
		return fromVenue(v, scoring.Score(v, prefs, userLoc))
	})

	recs = pie.SortUsing(recs, func(a, b model.Recommendation) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}

		return a.Name < b.Name
	})

	return pie.Top(recs, MaxRecommendations)
}

func fromVenue(v model.Venue, result scoring.Result) model.Recommendation {
	var imageURL *string
	if v.ImageURL != "" {
		imageURL = &v.ImageURL
	}

	return model.Recommendation{
		ID:           v.ID,
		Name:         v.Name,
		Score:        result.Score,
		MatchReasons: result.MatchReasons,
		Category:     v.Category,
		Rating:       v.Rating,
		QuietRating:  v.QuietRating,
		NoiseLevel:   v.Noise(),
		Location: model.Location{
			Lat:        v.Lat,
			Lng:        v.Lng,
			DistanceKm: result.DistanceKm,
			Address:    v.District,
		},
		Description: v.Description,
		ImageURL:    imageURL,
		Source:      model.SourceDatabase,
	}
}
