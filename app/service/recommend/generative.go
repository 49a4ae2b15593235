package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"quietspot/app/client/llm"
	"quietspot/app/model"
	"quietspot/app/util/geo"

	"github.com/samber/oops"
)

//go:embed generate_prompt_template.txt
var generatePromptTemplate string

const generatedScore = 0.9

const (
	defaultCategory    = "조용한 장소"
	defaultLocation    = "서울"
	defaultPurpose     = "이용"
	defaultDescription = "조용하고 좋은 장소입니다."

	defaultGeneratedRating      = 4.2
	defaultGeneratedQuietRating = 85
	defaultGeneratedNoiseLevel  = 30
)

var errNoJSONArray = errors.New("response contains no JSON array")

type generatedVenue struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Rating       *float64 `json:"rating"`
	QuietRating  *float64 `json:"quietRating"`
	NoiseLevel   *float64 `json:"noiseLevel"`
	MatchReasons []string `json:"matchReasons"`
	Location     *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

func (s *Service) fromGenerator(ctx context.Context, prefs model.Preferences, userLoc *geo.Point) TierResult {
	if s.generator == nil {
		return TierResult{Outcome: OutcomePermanent, Err: llm.ErrDisabled}
	}

	category, location, purpose := promptValues(prefs)

	templateValues := map[string]any{
		"category": category,
		"location": location,
		"purpose":  purpose,
	}

	prompt := generatePromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		if llm.IsTransient(err) {
			return TierResult{Outcome: OutcomeTransient, Err: err}
		}

		return TierResult{Outcome: OutcomePermanent, Err: err}
	}

	venues, err := parseGenerated(text)
	if err != nil {
		return TierResult{Outcome: OutcomePermanent, Err: err}
	}

	recs := make([]model.Recommendation, 0, min(len(venues), MaxRecommendations))
	for i, v := range venues {
		if i >= MaxRecommendations {
			break
		}

		recs = append(recs, fromGenerated(i, v, category, userLoc))
	}

	return success(recs)
}

// parseGenerated extracts the outermost JSON array from free text.
func parseGenerated(text string) ([]generatedVenue, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, oops.In("recommend").With("response_length", len(text)).Wrap(errNoJSONArray)
	}

	var venues []generatedVenue
	if err := json.Unmarshal([]byte(text[start:end+1]), &venues); err != nil {
		return nil, oops.In("recommend").Wrapf(err, "failed to parse generated venues")
	}

	return venues, nil
}

func fromGenerated(i int, v generatedVenue, category string, userLoc *geo.Point) model.Recommendation {
	rec := model.Recommendation{
		ID:           fmt.Sprintf("generated-%d", i+1),
		Name:         v.Name,
		Score:        generatedScore,
		MatchReasons: model.CapReasons(v.MatchReasons),
		Category:     v.Category,
		Rating:       defaultGeneratedRating,
		QuietRating:  defaultGeneratedQuietRating,
		NoiseLevel:   defaultGeneratedNoiseLevel,
		Location: model.Location{
			Lat: geo.SeoulCityHall.Lat,
			Lng: geo.SeoulCityHall.Lng,
		},
		Description: v.Description,
		Source:      model.SourceGenerative,
	}

	if rec.Name == "" {
		rec.Name = fmt.Sprintf("추천 %s %d", category, i+1)
	}
	if rec.Category == "" {
		rec.Category = category
	}
	if rec.Description == "" {
		rec.Description = defaultDescription
	}
	if len(rec.MatchReasons) == 0 {
		rec.MatchReasons = []string{category + " 추천", "AI 추천"}
	}
	if v.Rating != nil {
		rec.Rating = min(max(*v.Rating, 0), 5)
	}
	if v.QuietRating != nil {
		rec.QuietRating = min(max(int(*v.QuietRating), 0), 100)
	}
	if v.NoiseLevel != nil {
		rec.NoiseLevel = int(*v.NoiseLevel)
	}
	if v.Location != nil {
		rec.Location.Lat = v.Location.Lat
		rec.Location.Lng = v.Location.Lng
	}

	if userLoc != nil {
		d := geo.Round2(geo.DistanceKm(*userLoc, geo.Point{Lat: rec.Location.Lat, Lng: rec.Location.Lng}))
		rec.Location.DistanceKm = &d
	}

	return rec
}

func promptValues(prefs model.Preferences) (category, location, purpose string) {
	category, location, purpose = defaultCategory, defaultLocation, defaultPurpose

	if prefs.Category != "" {
		category = prefs.Category
	}
	if prefs.Location != "" {
		location = prefs.Location
	}
	if prefs.Purpose != "" {
		purpose = string(prefs.Purpose)
	}

	return category, location, purpose
}
