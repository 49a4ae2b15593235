package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"quietspot/app/client/llm"
	"quietspot/app/client/memstore"
	"quietspot/app/model"
	"quietspot/app/util/geo"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

type failingStore struct {
	model.Store
	err error
}

func (f failingStore) ScanVenues(context.Context, model.VenueFilter) ([]model.Venue, error) {
	return nil, f.err
}

func seededStore(t *testing.T, venues ...model.Venue) *memstore.Store {
	t.Helper()

	store := memstore.NewEmpty()
	for _, v := range venues {
		require.NoError(t, store.PutVenue(context.Background(), v))
	}

	return store
}

var gangnamCafe = model.Preferences{Category: "카페", Location: "강남", Purpose: model.PurposeStudy}

func TestRecommend_DatabaseTier(t *testing.T) {
	store := seededStore(t,
		model.Venue{ID: "v1", Name: "A", Category: "카페", Rating: 4.8, QuietRating: 95, NoiseLevel: 30},
		model.Venue{ID: "v2", Name: "B", Category: "카페", Rating: 3.5, QuietRating: 75, NoiseLevel: 40},
		model.Venue{ID: "v3", Name: "C", Category: "도서관", Rating: 4.9, QuietRating: 99},
		model.Venue{ID: "v4", Name: "D", Category: "카페", Rating: 4.8, QuietRating: 60},
	)
	gen := &fakeGenerator{}
	svc := NewWithDeps(store, gen)

	recs := svc.Recommend(context.Background(), gangnamCafe, nil)

	require.Len(t, recs, 2)
	assert.Equal(t, []string{"v1", "v2"}, IDs(recs))
	for _, rec := range recs {
		assert.Equal(t, model.SourceDatabase, rec.Source)
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 1.0)
		assert.LessOrEqual(t, len(rec.MatchReasons), model.MaxMatchReasons)
		assert.Nil(t, rec.Location.DistanceKm)
	}
	assert.Empty(t, gen.prompts)
}

func TestRecommend_RanksBeforeTruncating(t *testing.T) {
	var venues []model.Venue
	for i := range 7 {
		venues = append(venues, model.Venue{
			ID:          fmt.Sprintf("low-%d", i),
			Name:        fmt.Sprintf("low %d", i),
			Category:    "카페",
			Rating:      3.0,
			QuietRating: 71,
		})
	}
	venues = append(venues, model.Venue{ID: "zz-best", Name: "best", Category: "카페", Rating: 4.9, QuietRating: 97})

	svc := NewWithDeps(seededStore(t, venues...), &fakeGenerator{})

	recs := svc.Recommend(context.Background(), gangnamCafe, nil)

	require.Len(t, recs, MaxRecommendations)
	assert.Equal(t, "zz-best", recs[0].ID)
	// equal scores and ratings fall back to name order
	assert.Equal(t, "low-0", recs[1].ID)
}

func TestRecommend_QuietAtmosphereFiltersNoise(t *testing.T) {
	store := seededStore(t,
		model.Venue{ID: "loud", Name: "loud", Category: "카페", Rating: 4.8, QuietRating: 90, NoiseLevel: 50},
		model.Venue{ID: "calm", Name: "calm", Category: "카페", Rating: 4.0, QuietRating: 80, NoiseLevel: 35},
	)
	svc := NewWithDeps(store, &fakeGenerator{})

	prefs := gangnamCafe
	prefs.Atmosphere = []string{model.AtmosphereQuiet}

	recs := svc.Recommend(context.Background(), prefs, nil)

	assert.Equal(t, []string{"calm"}, IDs(recs))
}

func TestRecommend_DistanceReported(t *testing.T) {
	store := seededStore(t,
		model.Venue{ID: "near", Name: "near", Category: "카페", Rating: 4.0, QuietRating: 80, Lat: 37.4979, Lng: 127.0276},
	)
	svc := NewWithDeps(store, &fakeGenerator{})

	recs := svc.Recommend(context.Background(), gangnamCafe, &geo.Point{Lat: 37.4979, Lng: 127.0276})

	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Location.DistanceKm)
	assert.InDelta(t, 0, *recs[0].Location.DistanceKm, 0.001)
}

func TestRecommend_EmptyDatabaseUsesGenerator(t *testing.T) {
	gen := &fakeGenerator{response: "추천 목록입니다:\n```json\n" + `[
		{"name": "조용한 북카페", "description": "책과 커피", "category": "카페", "rating": 4.6, "quietRating": 91, "noiseLevel": 28,
		 "matchReasons": ["a", "b", "c", "d"], "location": {"lat": 37.49, "lng": 127.02}},
		{"name": ""}
	]` + "\n```"}
	svc := NewWithDeps(memstore.NewEmpty(), gen)

	recs := svc.Recommend(context.Background(), gangnamCafe, nil)

	require.Len(t, recs, 2)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "서울 강남 지역의 조용한 카페")
	assert.Contains(t, gen.prompts[0], "study")
	assert.NotContains(t, gen.prompts[0], "{location}")

	first := recs[0]
	assert.Equal(t, "generated-1", first.ID)
	assert.Equal(t, model.SourceGenerative, first.Source)
	assert.Equal(t, 0.9, first.Score)
	assert.Equal(t, 91, first.QuietRating)
	assert.Equal(t, []string{"a", "b", "c"}, first.MatchReasons)
	assert.Equal(t, 37.49, first.Location.Lat)

	second := recs[1]
	assert.Equal(t, "generated-2", second.ID)
	assert.Equal(t, "추천 카페 2", second.Name)
	assert.Equal(t, 4.2, second.Rating)
	assert.Equal(t, 85, second.QuietRating)
	assert.Equal(t, 30, second.NoiseLevel)
	assert.Equal(t, geo.SeoulCityHall.Lat, second.Location.Lat)
	assert.Equal(t, []string{"카페 추천", "AI 추천"}, second.MatchReasons)
}

func TestRecommend_GeneratorOutputCapped(t *testing.T) {
	items := make([]string, 0, 8)
	for i := range 8 {
		items = append(items, fmt.Sprintf(`{"name": "spot %d"}`, i))
	}
	gen := &fakeGenerator{response: "[" + strings.Join(items, ",") + "]"}
	svc := NewWithDeps(memstore.NewEmpty(), gen)

	recs := svc.Recommend(context.Background(), gangnamCafe, nil)

	assert.Len(t, recs, MaxRecommendations)
}

func TestRecommend_FallsBackToStatic(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{name: "no generator", gen: nil},
		{name: "non JSON answer", gen: &fakeGenerator{response: "죄송하지만 추천할 수 없습니다."}},
		{name: "malformed JSON", gen: &fakeGenerator{response: `[{"name": }]`}},
		{name: "empty array", gen: &fakeGenerator{response: "[]"}},
		{name: "disabled model", gen: &fakeGenerator{err: llm.ErrDisabled}},
		{name: "breaker open", gen: &fakeGenerator{err: gobreaker.ErrOpenState}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewWithDeps(memstore.NewEmpty(), tt.gen)

			recs := svc.Recommend(context.Background(), gangnamCafe, nil)

			require.Len(t, recs, 3)
			assert.Equal(t, []string{"static-1", "static-2", "static-3"}, IDs(recs))
			assert.Equal(t, "강남 조용한 카페", recs[0].Name)
			for _, rec := range recs {
				assert.Equal(t, model.SourceStatic, rec.Source)
				assert.Equal(t, 0.8, rec.Score)
			}
		})
	}
}

func TestRecommend_StoreFailureFallsThrough(t *testing.T) {
	store := failingStore{err: fmt.Errorf("%w: timeout", model.ErrStoreUnavailable)}
	svc := NewWithDeps(store, &fakeGenerator{response: `[{"name": "AI 카페"}]`})

	recs := svc.Recommend(context.Background(), gangnamCafe, nil)

	require.Len(t, recs, 1)
	assert.Equal(t, model.SourceGenerative, recs[0].Source)
}

func TestRecommend_EmptyPrimaryNeverDatabase(t *testing.T) {
	for _, gen := range []Generator{nil, &fakeGenerator{response: `[{"name": "x"}]`}} {
		recs := NewWithDeps(memstore.NewEmpty(), gen).Recommend(context.Background(), model.Preferences{}, nil)

		require.NotEmpty(t, recs)
		for _, rec := range recs {
			assert.NotEqual(t, model.SourceDatabase, rec.Source)
		}
	}
}

func TestTierOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("database transient", func(t *testing.T) {
		svc := NewWithDeps(failingStore{err: model.ErrStoreUnavailable}, nil)
		assert.Equal(t, OutcomeTransient, svc.fromDatabase(ctx, gangnamCafe, nil).Outcome)
	})

	t.Run("database permanent", func(t *testing.T) {
		svc := NewWithDeps(failingStore{err: errors.New("bad filter")}, nil)
		assert.Equal(t, OutcomePermanent, svc.fromDatabase(ctx, gangnamCafe, nil).Outcome)
	})

	t.Run("database empty", func(t *testing.T) {
		svc := NewWithDeps(memstore.NewEmpty(), nil)
		assert.Equal(t, OutcomeEmpty, svc.fromDatabase(ctx, gangnamCafe, nil).Outcome)
	})

	t.Run("generator transient", func(t *testing.T) {
		svc := NewWithDeps(memstore.NewEmpty(), &fakeGenerator{err: context.DeadlineExceeded})
		assert.Equal(t, OutcomeTransient, svc.fromGenerator(ctx, gangnamCafe, nil).Outcome)
	})

	t.Run("generator parse failure", func(t *testing.T) {
		svc := NewWithDeps(memstore.NewEmpty(), &fakeGenerator{response: "no list here"})
		result := svc.fromGenerator(ctx, gangnamCafe, nil)
		assert.Equal(t, OutcomePermanent, result.Outcome)
		assert.ErrorIs(t, result.Err, errNoJSONArray)
	})

	t.Run("static always succeeds", func(t *testing.T) {
		svc := NewWithDeps(nil, nil)
		result := svc.fromStatic(ctx, model.Preferences{}, nil)
		assert.Equal(t, OutcomeSuccess, result.Outcome)
		assert.Equal(t, "서울 도서관", result.Recommendations[1].Name)
		assert.Equal(t, []string{"조용한 장소 추천", "기본 추천"}, result.Recommendations[0].MatchReasons)
	})
}
