package memstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quietspot/app/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewEmpty()

	_, err := store.GetSession(ctx, "sess-missing")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	session := &model.Session{
		SessionID: "sess-1",
		UserID:    "anonymous-1",
		Status:    model.SessionStatusActive,
		Context:   model.NewConversationContext(),
		Metadata:  map[string]string{"platform": "web"},
	}
	require.NoError(t, store.PutSession(ctx, session))

	// mutating the caller's copy must not leak into the store
	session.Metadata["platform"] = "changed"
	session.Context.QuestionsAsked = append(session.Context.QuestionsAsked, model.FieldCategory)

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "web", got.Metadata["platform"])
	assert.Empty(t, got.Context.QuestionsAsked)
}

func TestStore_UpdateContext(t *testing.T) {
	ctx := context.Background()
	store := NewEmpty()

	err := store.UpdateContext(ctx, "sess-missing", model.NewConversationContext(), time.Now())
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	require.NoError(t, store.PutSession(ctx, &model.Session{SessionID: "sess-1", Context: model.NewConversationContext()}))

	cc := model.NewConversationContext()
	cc.Stage = model.StagePurposeGathering
	cc.Preferences.Location = "강남"
	updatedAt := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, store.UpdateContext(ctx, "sess-1", cc, updatedAt))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.StagePurposeGathering, got.Context.Stage)
	assert.Equal(t, "강남", got.Context.Preferences.Location)
	assert.Equal(t, updatedAt.Unix(), got.UpdatedAt)
}

func TestStore_PutSessionRequiresID(t *testing.T) {
	err := NewEmpty().PutSession(context.Background(), &model.Session{})
	assert.ErrorIs(t, err, model.ErrSessionIDRequired)
}

func TestStore_QueryMessagesOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewEmpty()

	require.NoError(t, store.PutMessage(ctx, model.Message{SessionID: "sess-1", Timestamp: 20, Content: "second"}))
	require.NoError(t, store.PutMessage(ctx, model.Message{SessionID: "sess-1", Timestamp: 10, Content: "first"}))
	require.NoError(t, store.PutMessage(ctx, model.Message{SessionID: "sess-2", Timestamp: 5, Content: "other"}))

	got, err := store.QueryMessages(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)

	got, err = store.QueryMessages(ctx, "sess-none")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ScanVenues(t *testing.T) {
	ctx := context.Background()
	store := NewEmpty()

	venues := []model.Venue{
		{ID: "a", Category: "카페", QuietRating: 90, NoiseLevel: 30},
		{ID: "b", Category: "카페", QuietRating: 60, NoiseLevel: 30},
		{ID: "c", Category: "도서관", QuietRating: 95, NoiseLevel: 25},
		{ID: "d", Category: "카페", QuietRating: 75, NoiseLevel: 50},
		{ID: "e", Category: "카페", QuietRating: 80},
	}
	for _, v := range venues {
		require.NoError(t, store.PutVenue(ctx, v))
	}

	got, err := store.ScanVenues(ctx, model.VenueFilter{MinQuietRating: 70, Category: "카페"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "e"}, venueIDs(got))

	got, err = store.ScanVenues(ctx, model.VenueFilter{MinQuietRating: 70, Category: "카페", MaxNoiseLevel: 45})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "e"}, venueIDs(got))

	got, err = store.ScanVenues(ctx, model.VenueFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestStore_LoadVenues(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "venues.jsonl")
	content := `{"id":"v1","name":"조용한 북카페","category":"카페","rating":4.7,"quiet_rating":92,"noise_level":32,"lat":37.49,"lng":127.02}

{"id":"v2","name":"평화로운 서재","category":"도서관","rating":4.5,"quiet_rating":95,"lat":37.50,"lng":127.03}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := NewEmpty()
	count, err := store.LoadVenues(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := store.ScanVenues(ctx, model.VenueFilter{Category: "도서관"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 95, got[0].QuietRating)
	assert.Equal(t, 40, got[0].Noise())

	t.Run("malformed line", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.jsonl")
		require.NoError(t, os.WriteFile(bad, []byte("{\"id\":\"x\"}\nnot json\n"), 0o644))

		count, err := NewEmpty().LoadVenues(ctx, bad)
		assert.Error(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewEmpty().LoadVenues(ctx, filepath.Join(dir, "missing.jsonl"))
		assert.Error(t, err)
	})
}

func venueIDs(venues []model.Venue) []string {
	ids := make([]string, 0, len(venues))
	for _, v := range venues {
		ids = append(ids, v.ID)
	}

	return ids
}
