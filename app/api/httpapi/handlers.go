package httpapi

import (
	"context"
	"strconv"
	"time"

	"quietspot/app/model"
	"quietspot/app/service/dialogue"
	"quietspot/app/service/turn"
	"quietspot/app/util/geo"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
)

type createSessionRequest struct {
	UserID   string            `json:"userId" validate:"omitempty,max=128"`
	Metadata map[string]string `json:"metadata" validate:"omitempty,max=32"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	ExpiresAt string `json:"expiresAt"`
	Status    string `json:"status"`
}

type sendMessageRequest struct {
	Message      string     `json:"message" validate:"max=2000"`
	UserLocation *geo.Point `json:"userLocation"`
}

type replyBody struct {
	Text        string                `json:"text"`
	Type        dialogue.ResponseType `json:"type"`
	Suggestions []string              `json:"suggestions"`
}

type contextBody struct {
	Preferences model.Preferences `json:"extractedPreferences"`
	Stage       model.Stage       `json:"conversationStage"`
}

type sendMessageResponse struct {
	MessageID       string                 `json:"messageId"`
	Response        replyBody              `json:"response"`
	Context         contextBody            `json:"context"`
	Recommendations []model.Recommendation `json:"recommendations,omitempty"`
}

type recommendationsResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
	TotalCount      int                    `json:"totalCount"`
	SearchCriteria  model.Preferences      `json:"searchCriteria"`
}

type messagesResponse struct {
	Messages []model.Message `json:"messages"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if len(c.Body()) > 0 {
		if err := s.parseBody(c, &req); err != nil {
			return err
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	info, err := s.turn.StartSession(ctx, turn.StartRequest{
		UserID:   req.UserID,
		Metadata: req.Metadata,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(createSessionResponse{
		SessionID: info.SessionID,
		ExpiresAt: info.ExpiresAt.Format(time.RFC3339),
		Status:    info.Status,
	})
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := s.parseBody(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sessionID := c.Params("sessionId")

	// the core assumes at most one turn per session in flight
	waitCtx, cancelWait := context.WithTimeout(ctx, s.turnWait)
	release, err := s.turns.Acquire(waitCtx, sessionID)
	cancelWait()
	if err != nil {
		return err
	}
	defer release()

	result, err := s.turn.HandleMessage(ctx, sessionID, req.Message, req.UserLocation)
	if err != nil {
		return err
	}

	suggestions := result.Reply.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return c.JSON(sendMessageResponse{
		MessageID: result.MessageID,
		Response: replyBody{
			Text:        result.Reply.Text,
			Type:        result.Reply.Type,
			Suggestions: suggestions,
		},
		Context: contextBody{
			Preferences: result.Preferences,
			Stage:       result.Stage,
		},
		Recommendations: result.Recommendations,
	})
}

func (s *Server) getRecommendations(c *fiber.Ctx) error {
	userLoc, err := s.queryLocation(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := s.turn.CurrentRecommendations(ctx, c.Params("sessionId"), userLoc)
	if err != nil {
		return err
	}

	return c.JSON(recommendationsResponse{
		Recommendations: result.Recommendations,
		TotalCount:      result.TotalCount,
		SearchCriteria:  result.SearchCriteria,
	})
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	messages, err := s.turn.History(ctx, c.Params("sessionId"))
	if err != nil {
		return err
	}

	return c.JSON(messagesResponse{Messages: messages})
}

// requestContext bounds every store and model call made for one request.
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), maxRequestDuration)
}

func (s *Server) parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return oops.In("http").Code(model.CodeValidation).Wrap(fiber.NewError(fiber.StatusBadRequest, "Invalid request body"))
	}

	if err := s.validate.Struct(out); err != nil {
		return oops.In("http").Code(model.CodeValidation).With("details", err.Error()).Wrap(fiber.NewError(fiber.StatusBadRequest, "Invalid request body"))
	}

	return nil
}

// queryLocation reads the optional lat/lng pair. Both or neither must be set.
func (s *Server) queryLocation(c *fiber.Ctx) (*geo.Point, error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}

	invalid := fiber.NewError(fiber.StatusBadRequest, "Invalid location")

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, invalid
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, invalid
	}

	point := &geo.Point{Lat: lat, Lng: lng}
	if err = s.validate.Struct(point); err != nil {
		return nil, invalid
	}

	return point, nil
}
