package scoring

import (
	"testing"

	"quietspot/app/model"
	"quietspot/app/util/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func venue(quiet int, rating float64) model.Venue {
	return model.Venue{
		ID:          "v1",
		Name:        "조용한 카페",
		Category:    "카페",
		Rating:      rating,
		QuietRating: quiet,
		NoiseLevel:  50,
		Lat:         37.5,
		Lng:         127.0,
	}
}

func TestScore_Weights(t *testing.T) {
	tests := []struct {
		name  string
		venue model.Venue
		prefs model.Preferences
		want  float64
	}{
		{"base only", venue(70, 3.0), model.Preferences{}, 0.5},
		{"quiet 80", venue(80, 3.0), model.Preferences{}, 0.7},
		{"quiet 90", venue(90, 3.0), model.Preferences{}, 0.8},
		{"rating 4.0", venue(70, 4.0), model.Preferences{}, 0.7},
		{"category match", venue(70, 3.0), model.Preferences{Category: "카페"}, 0.8},
		{"category mismatch", venue(70, 3.0), model.Preferences{Category: "공원"}, 0.5},
		{"everything clamps to one", venue(95, 4.8), model.Preferences{Category: "카페"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.venue, tt.prefs, nil).Score, 1e-9)
		})
	}
}

func TestScore_MonotonicAndBounded(t *testing.T) {
	prefsSet := []model.Preferences{
		{},
		{Category: "카페"},
		{Category: "도서관", Purpose: model.PurposeStudy},
	}
	ratings := []float64{0, 2.5, 3.9, 4.0, 4.5, 5.0}

	for _, prefs := range prefsSet {
		for _, rating := range ratings {
			prev := -1.0
			for quiet := 0; quiet <= 100; quiet += 5 {
				got := Score(venue(quiet, rating), prefs, nil).Score

				assert.GreaterOrEqual(t, got, prev, "quiet=%d rating=%.1f", quiet, rating)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
				prev = got
			}
		}

		for quiet := 0; quiet <= 100; quiet += 10 {
			prev := -1.0
			for _, rating := range ratings {
				got := Score(venue(quiet, rating), prefs, nil).Score

				assert.GreaterOrEqual(t, got, prev, "quiet=%d rating=%.1f", quiet, rating)
				prev = got
			}
		}
	}
}

func TestScore_Distance(t *testing.T) {
	v := venue(70, 3.0)

	t.Run("at the venue gets the full bonus", func(t *testing.T) {
		res := Score(v, model.Preferences{}, &geo.Point{Lat: v.Lat, Lng: v.Lng})

		assert.InDelta(t, 0.6, res.Score, 1e-9)
		require.NotNil(t, res.DistanceKm)
		assert.Equal(t, 0.0, *res.DistanceKm)
	})

	t.Run("bonus decays linearly inside one kilometer", func(t *testing.T) {
		// ~0.5 km north
		res := Score(v, model.Preferences{}, &geo.Point{Lat: v.Lat + 0.0045, Lng: v.Lng})

		assert.InDelta(t, 0.55, res.Score, 0.002)
	})

	t.Run("no bonus beyond one kilometer", func(t *testing.T) {
		res := Score(v, model.Preferences{}, &geo.SeoulCityHall)

		assert.InDelta(t, 0.5, res.Score, 1e-9)
		require.NotNil(t, res.DistanceKm)
		assert.Greater(t, *res.DistanceKm, 1.0)
	})

	t.Run("no location no distance", func(t *testing.T) {
		assert.Nil(t, Score(v, model.Preferences{}, nil).DistanceKm)
	})
}

func TestMatchReasons(t *testing.T) {
	t.Run("priority order and cap", func(t *testing.T) {
		v := model.Venue{Category: "도서관", Rating: 4.6, QuietRating: 92, NoiseLevel: 30}

		reasons := MatchReasons(v, model.Preferences{Category: "도서관", Purpose: model.PurposeStudy})

		assert.Equal(t, []string{
			"매우 조용한 환경 (조용함 점수: 92점)",
			"우수한 평점 (4.6점)",
			"도서관 카테고리 일치",
		}, reasons)
	})

	t.Run("noise and purpose fill remaining slots", func(t *testing.T) {
		v := model.Venue{Category: "카페", Rating: 3.5, QuietRating: 75, NoiseLevel: 42}

		reasons := MatchReasons(v, model.Preferences{Purpose: model.PurposeWork})

		assert.Equal(t, []string{"낮은 소음 레벨 (42dB)", "작업하기 좋은 환경"}, reasons)
	})

	t.Run("missing noise level uses default", func(t *testing.T) {
		v := model.Venue{Category: "공원", Rating: 4.1, QuietRating: 81}

		reasons := MatchReasons(v, model.Preferences{})

		assert.Equal(t, []string{
			"조용한 분위기 (조용함 점수: 81점)",
			"높은 평점 (4.1점)",
			"낮은 소음 레벨 (40dB)",
		}, reasons)
	})
}
