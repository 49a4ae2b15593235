package memstore

import (
	"cmp"
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"quietspot/app/config"
	"quietspot/app/model"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// Store keeps every record in process memory. Records are copied in and out
// so callers never alias stored state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	messages map[string][]model.Message
	venues   map[string]model.Venue
}

var _ model.Store = (*Store)(nil)

func New(di *do.Injector) (*Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	store := NewEmpty()

	if cfg.Store.SeedFile != "" {
		count, err := store.LoadVenues(context.Background(), cfg.Store.SeedFile)
		if err != nil {
			return nil, err
		}

		slog.Info("Venues seeded", "count", count, "file", cfg.Store.SeedFile)
	}

	return store, nil
}

func NewEmpty() *Store {
	return &Store{
		sessions: make(map[string]model.Session),
		messages: make(map[string][]model.Message),
		venues:   make(map[string]model.Venue),
	}
}

func (s *Store) GetSession(_ context.Context, sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	result := cloneSession(session)
	return &result, nil
}

func (s *Store) PutSession(_ context.Context, session *model.Session) error {
	if session == nil || session.SessionID == "" {
		return oops.In("memstore").Code(model.CodeValidation).Wrap(model.ErrSessionIDRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.SessionID] = cloneSession(*session)

	return nil
}

func (s *Store) UpdateContext(_ context.Context, sessionID string, cc model.ConversationContext, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return model.ErrSessionNotFound
	}

	session.Context = cc.Clone()
	session.UpdatedAt = updatedAt.Unix()
	s.sessions[sessionID] = session

	return nil
}

func (s *Store) PutMessage(_ context.Context, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)

	return nil
}

// QueryMessages returns the session's messages ordered by timestamp.
func (s *Store) QueryMessages(_ context.Context, sessionID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := slices.Clone(s.messages[sessionID])
	slices.SortStableFunc(result, func(a, b model.Message) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	return result, nil
}

func (s *Store) ScanVenues(_ context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Venue, 0, len(s.venues))
	for _, venue := range s.venues {
		if filter.Match(venue) {
			result = append(result, venue)
		}
	}

	// map iteration order is random
	slices.SortFunc(result, func(a, b model.Venue) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return result, nil
}

func (s *Store) PutVenue(_ context.Context, venue model.Venue) error {
	if venue.ID == "" {
		return oops.In("memstore").Code(model.CodeValidation).Errorf("venue id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.venues[venue.ID] = venue

	return nil
}

func cloneSession(session model.Session) model.Session {
	session.Context = session.Context.Clone()
	session.Metadata = maps.Clone(session.Metadata)

	return session
}
