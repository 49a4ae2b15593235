package scoring

import (
	"fmt"

	"quietspot/app/model"
	"quietspot/app/util/geo"
)

// Literal weights. They are additive and intentionally not normalized; the
// final score is clamped instead.
const (
	baseScore = 0.5

	veryQuietThreshold = 90
	veryQuietBonus     = 0.3
	quietThreshold     = 80
	quietBonus         = 0.2

	categoryBonus = 0.3

	ratingThreshold = 4.0
	ratingBonus     = 0.2

	distanceRadiusKm = 1.0
	distanceMaxBonus = 0.1
)

const (
	excellentRating = 4.5
	veryLowNoise    = 35
	lowNoise        = 45
)

type Result struct {
	Score        float64
	MatchReasons []string
	// DistanceKm is set only when a user location was supplied.
	DistanceKm *float64
}

// Score rates a venue against the user's preferences and, optionally, the
// user's position.
func Score(venue model.Venue, prefs model.Preferences, userLoc *geo.Point) Result {
	score := baseScore

	switch {
	case venue.QuietRating >= veryQuietThreshold:
		score += veryQuietBonus
	case venue.QuietRating >= quietThreshold:
		score += quietBonus
	}

	if prefs.Category != "" && prefs.Category == venue.Category {
		score += categoryBonus
	}

	if venue.Rating >= ratingThreshold {
		score += ratingBonus
	}

	var distance *float64
	if userLoc != nil {
		d := geo.DistanceKm(*userLoc, geo.Point{Lat: venue.Lat, Lng: venue.Lng})
		if d <= distanceRadiusKm {
			score += distanceMaxBonus * (1 - d/distanceRadiusKm)
		}

		rounded := geo.Round2(d)
		distance = &rounded
	}

	return Result{
		Score:        model.ClampScore(score),
		MatchReasons: MatchReasons(venue, prefs),
		DistanceKm:   distance,
	}
}

// MatchReasons explains a venue in fixed priority order: quietness, rating,
// category, noise, purpose. At most three reasons are kept.
func MatchReasons(venue model.Venue, prefs model.Preferences) []string {
	reasons := make([]string, 0, 5)

	switch {
	case venue.QuietRating >= veryQuietThreshold:
		reasons = append(reasons, fmt.Sprintf("매우 조용한 환경 (조용함 점수: %d점)", venue.QuietRating))
	case venue.QuietRating >= quietThreshold:
		reasons = append(reasons, fmt.Sprintf("조용한 분위기 (조용함 점수: %d점)", venue.QuietRating))
	}

	switch {
	case venue.Rating >= excellentRating:
		reasons = append(reasons, fmt.Sprintf("우수한 평점 (%.1f점)", venue.Rating))
	case venue.Rating >= ratingThreshold:
		reasons = append(reasons, fmt.Sprintf("높은 평점 (%.1f점)", venue.Rating))
	}

	if prefs.Category != "" && prefs.Category == venue.Category {
		reasons = append(reasons, fmt.Sprintf("%s 카테고리 일치", venue.Category))
	}

	switch noise := venue.Noise(); {
	case noise <= veryLowNoise:
		reasons = append(reasons, fmt.Sprintf("매우 낮은 소음 레벨 (%ddB)", noise))
	case noise <= lowNoise:
		reasons = append(reasons, fmt.Sprintf("낮은 소음 레벨 (%ddB)", noise))
	}

	switch {
	case prefs.Purpose == model.PurposeWork && (venue.Category == "카페" || venue.Category == "도서관"):
		reasons = append(reasons, "작업하기 좋은 환경")
	case prefs.Purpose == model.PurposeStudy && venue.Category == "도서관":
		reasons = append(reasons, "공부하기 최적의 장소")
	}

	return model.CapReasons(reasons)
}
