package model

import (
	"context"
	"errors"
	"time"
)

const (
	SessionTTL          = 24 * time.Hour
	SessionStatusActive = "active"
)

const (
	MessageTypeText     = "text"
	MessageTypeResponse = "response"
)

// Error codes attached to oops errors for log correlation.
const (
	CodeValidation       = "validation"
	CodeSessionNotFound  = "session_not_found"
	CodeStoreUnavailable = "store_unavailable"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionIDRequired = errors.New("session id required")
	ErrMessageRequired   = errors.New("message content required")
	ErrStoreUnavailable  = errors.New("record store unavailable")
)

// Session timestamps are unix seconds so that ExpiresAt can serve as the
// table TTL attribute. Message timestamps are unix milliseconds.
type Session struct {
	SessionID string              `json:"sessionId" dynamodbav:"sessionId"`
	UserID    string              `json:"userId" dynamodbav:"userId"`
	Status    string              `json:"status" dynamodbav:"status"`
	CreatedAt int64               `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt int64               `json:"updatedAt" dynamodbav:"updatedAt"`
	ExpiresAt int64               `json:"expiresAt" dynamodbav:"expiresAt"`
	Context   ConversationContext `json:"context" dynamodbav:"context"`
	Metadata  map[string]string   `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

type Message struct {
	SessionID   string `json:"sessionId" dynamodbav:"sessionId"`
	Timestamp   int64  `json:"timestamp" dynamodbav:"timestamp"`
	MessageID   string `json:"messageId" dynamodbav:"messageId"`
	Role        Role   `json:"role" dynamodbav:"role"`
	Content     string `json:"content" dynamodbav:"content"`
	MessageType string `json:"messageType" dynamodbav:"messageType"`
}

// Store is the record store the core persists sessions, messages and reads
// venues through.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	PutSession(ctx context.Context, session *Session) error
	UpdateContext(ctx context.Context, sessionID string, cc ConversationContext, updatedAt time.Time) error
	PutMessage(ctx context.Context, msg Message) error
	QueryMessages(ctx context.Context, sessionID string) ([]Message, error)
	ScanVenues(ctx context.Context, filter VenueFilter) ([]Venue, error)
	PutVenue(ctx context.Context, venue Venue) error
}
