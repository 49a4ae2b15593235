package recommend

import (
	"context"
	"fmt"

	"quietspot/app/model"
	"quietspot/app/util/geo"
)

const staticScore = 0.8

type staticTemplate struct {
	suffix      string
	category    string
	description string
}

var staticTemplates = []staticTemplate{
	{suffix: "조용한 카페", category: "카페", description: "조용하고 아늑한 분위기의 카페"},
	{suffix: "도서관", category: "도서관", description: "공부하기 좋은 조용한 환경"},
	{suffix: "공원", category: "공원", description: "자연 속에서 휴식할 수 있는 곳"},
}

func (s *Service) fromStatic(_ context.Context, prefs model.Preferences, _ *geo.Point) TierResult {
	return success(staticRecommendations(prefs))
}

func staticRecommendations(prefs model.Preferences) []model.Recommendation {
	category, location, _ := promptValues(prefs)

	recs := make([]model.Recommendation, 0, len(staticTemplates))
	for i, t := range staticTemplates {
		recs = append(recs, model.Recommendation{
			ID:           fmt.Sprintf("static-%d", i+1),
			Name:         location + " " + t.suffix,
			Score:        staticScore,
			MatchReasons: []string{category + " 추천", "기본 추천"},
			Category:     t.category,
			Rating:       4.0,
			QuietRating:  80,
			NoiseLevel:   35,
			Location: model.Location{
				Lat: geo.SeoulCityHall.Lat,
				Lng: geo.SeoulCityHall.Lng,
			},
			Description: t.description,
			Source:      model.SourceStatic,
		})
	}

	return recs
}
