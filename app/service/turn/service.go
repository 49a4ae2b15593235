package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quietspot/app/model"
	"quietspot/app/service/dialogue"
	"quietspot/app/service/recommend"
	"quietspot/app/util/geo"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

type StartRequest struct {
	UserID   string
	Metadata map[string]string
}

type SessionInfo struct {
	SessionID string
	ExpiresAt time.Time
	Status    string
}

// Reply is what the assistant says back for one user message.
type Reply struct {
	Text        string
	Type        dialogue.ResponseType
	Suggestions []string
}

type Result struct {
	MessageID   string
	Reply       Reply
	Preferences model.Preferences
	Stage       model.Stage
	// Recommendations is nil unless this turn produced a round.
	Recommendations []model.Recommendation
}

type Recommendations struct {
	Recommendations []model.Recommendation
	TotalCount      int
	SearchCriteria  model.Preferences
}

type Service struct {
	store     model.Store
	dialogue  *dialogue.Service
	recommend *recommend.Service
	now       func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	return NewWithDeps(
		do.MustInvoke[model.Store](di),
		do.MustInvoke[*dialogue.Service](di),
		do.MustInvoke[*recommend.Service](di),
	), nil
}

func NewWithDeps(store model.Store, dialogueSvc *dialogue.Service, recommendSvc *recommend.Service) *Service {
	return &Service{
		store:     store,
		dialogue:  dialogueSvc,
		recommend: recommendSvc,
		now:       time.Now,
	}
}

func (s *Service) StartSession(ctx context.Context, req StartRequest) (*SessionInfo, error) {
	now := s.now()
	expiresAt := now.Add(model.SessionTTL)

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = "anonymous-" + uuid.NewString()
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	session := &model.Session{
		SessionID: "sess-" + uuid.NewString(),
		UserID:    userID,
		Status:    model.SessionStatusActive,
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
		ExpiresAt: expiresAt.Unix(),
		Context:   model.NewConversationContext(),
		Metadata:  metadata,
	}

	if err := s.store.PutSession(ctx, session); err != nil {
		return nil, storeError(err, "failed to create session", session.SessionID)
	}

	slog.Info("Session created", "session_id", session.SessionID, "user_id", userID)

	return &SessionInfo{
		SessionID: session.SessionID,
		ExpiresAt: time.Unix(session.ExpiresAt, 0).UTC(),
		Status:    session.Status,
	}, nil
}

// HandleMessage runs one conversational turn: the user message is recorded,
// the dialogue decides the reply, a recommendation round runs when the
// dialogue is ready and the updated context is persisted.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string, userLoc *geo.Point) (*Result, error) {
	text = strings.TrimSpace(text)

	if sessionID == "" {
		return nil, oops.In("turn").Code(model.CodeValidation).Wrap(model.ErrSessionIDRequired)
	}
	if text == "" {
		return nil, oops.In("turn").Code(model.CodeValidation).With("session_id", sessionID).Wrap(model.ErrMessageRequired)
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	timestamp := now.UnixMilli()

	s.saveMessage(ctx, model.Message{
		SessionID:   sessionID,
		Timestamp:   timestamp,
		MessageID:   newMessageID(),
		Role:        model.RoleUser,
		Content:     text,
		MessageType: model.MessageTypeText,
	})

	outcome := s.dialogue.Process(ctx, text, session.Context)

	replyMsg := model.Message{
		SessionID:   sessionID,
		Timestamp:   timestamp + 1,
		MessageID:   newMessageID(),
		Role:        model.RoleAssistant,
		Content:     outcome.Text,
		MessageType: model.MessageTypeResponse,
	}
	s.saveMessage(ctx, replyMsg)

	cc := outcome.Context
	cc.AppendTurn(model.RoleUser, text, time.UnixMilli(timestamp))
	cc.AppendTurn(model.RoleAssistant, outcome.Text, time.UnixMilli(replyMsg.Timestamp))

	var recs []model.Recommendation
	if outcome.Ready {
		recs = s.recommend.Recommend(ctx, cc.Preferences, userLoc)
		cc.LastRecommendations = recommend.IDs(recs)
		cc.Stage = model.StageRecommendationsProvided

		slog.Info("Recommendations provided",
			"session_id", sessionID,
			"count", len(recs),
			"ids", cc.LastRecommendations,
		)
	}

	if err = s.store.UpdateContext(ctx, sessionID, cc, now); err != nil {
		return nil, storeError(err, "failed to update context", sessionID)
	}

	return &Result{
		MessageID: replyMsg.MessageID,
		Reply: Reply{
			Text:        outcome.Text,
			Type:        outcome.Type,
			Suggestions: outcome.Suggestions,
		},
		Preferences:     cc.Preferences,
		Stage:           cc.Stage,
		Recommendations: recs,
	}, nil
}

// CurrentRecommendations runs a recommendation round on the stored
// preferences without touching the session.
func (s *Service) CurrentRecommendations(ctx context.Context, sessionID string, userLoc *geo.Point) (*Recommendations, error) {
	if sessionID == "" {
		return nil, oops.In("turn").Code(model.CodeValidation).Wrap(model.ErrSessionIDRequired)
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prefs := session.Context.Preferences
	recs := s.recommend.Recommend(ctx, prefs, userLoc)

	return &Recommendations{
		Recommendations: recs,
		TotalCount:      len(recs),
		SearchCriteria:  prefs,
	}, nil
}

// History returns the stored messages of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	if sessionID == "" {
		return nil, oops.In("turn").Code(model.CodeValidation).Wrap(model.ErrSessionIDRequired)
	}

	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.store.QueryMessages(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "failed to query messages", sessionID)
	}

	return messages, nil
}

// loadSession treats expired sessions like missing ones; the store may not
// have evicted them yet.
func (s *Service) loadSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "failed to load session", sessionID)
	}

	if session.ExpiresAt > 0 && s.now().Unix() >= session.ExpiresAt {
		return nil, oops.In("turn").Code(model.CodeSessionNotFound).With("session_id", sessionID).Wrapf(model.ErrSessionNotFound, "session expired")
	}

	return session, nil
}

func (s *Service) saveMessage(ctx context.Context, msg model.Message) {
	if err := s.store.PutMessage(ctx, msg); err != nil {
		slog.Warn("Failed to save message",
			"session_id", msg.SessionID,
			"role", msg.Role,
			"error", err,
		)
	}
}

// storeError keeps not-found distinct and classifies everything else as the
// store being unavailable.
func storeError(err error, msg, sessionID string) error {
	builder := oops.In("turn").With("session_id", sessionID)

	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return builder.Code(model.CodeSessionNotFound).Wrapf(err, "%s", msg)
	case errors.Is(err, model.ErrStoreUnavailable):
		return builder.Code(model.CodeStoreUnavailable).Wrapf(err, "%s", msg)
	default:
		return builder.Code(model.CodeStoreUnavailable).Wrapf(fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err), "%s", msg)
	}
}

func newMessageID() string {
	return "msg-" + uuid.NewString()
}
