package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

var (
	ErrBusy   = errors.New("another message of this session is being processed")
	ErrClosed = errors.New("turn queue is closed")
)

// Service lines up turns of the same session so that at most one of them is
// in flight at a time. Different sessions never wait for each other.
type Service struct {
	mu     sync.Mutex
	slots  map[string]*slot
	closed bool
}

type slot struct {
	token chan struct{}
	// number of turns holding or waiting for the token
	refs int
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		slots: make(map[string]*slot),
	}, nil
}

// Acquire waits until the session is free or ctx is done. The returned
// release func must be called exactly once.
func (s *Service) Acquire(ctx context.Context, sessionID string) (func(), error) {
	sl, err := s.join(sessionID)
	if err != nil {
		return nil, err
	}

	select {
	case sl.token <- struct{}{}:
	case <-ctx.Done():
		s.leave(sessionID, sl)
		slog.Warn("Turn queue wait expired", "session_id", sessionID)
		return nil, ErrBusy
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-sl.token
			s.leave(sessionID, sl)
		})
	}, nil
}

// Pending returns the number of sessions with a turn in flight or waiting.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.slots)
}

func (s *Service) join(sessionID string) (*slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	sl, ok := s.slots[sessionID]
	if !ok {
		sl = &slot{token: make(chan struct{}, 1)}
		s.slots[sessionID] = sl
	}
	sl.refs++

	return sl, nil
}

func (s *Service) leave(sessionID string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, sessionID)
	}
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}
