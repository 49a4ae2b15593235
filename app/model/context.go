package model

import (
	"slices"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Stage string

const (
	StageInitial                 Stage = "initial"
	StageCategoryGathering       Stage = "category_gathering"
	StageLocationGathering       Stage = "location_gathering"
	StagePurposeGathering        Stage = "purpose_gathering"
	StageRecommendationsReady    Stage = "recommendations_ready"
	StageRecommendationsProvided Stage = "recommendations_provided"
	StageCompleted               Stage = "completed"
)

// GatheringStage returns the stage in which the given field is being asked for.
func GatheringStage(field Field) Stage {
	return Stage(string(field) + "_gathering")
}

type Turn struct {
	Role      Role      `json:"role" dynamodbav:"role"`
	Text      string    `json:"content" dynamodbav:"content"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// ConversationContext is the per-session dialogue state. It is passed into a
// turn by value and handed back for persistence.
type ConversationContext struct {
	History             []Turn      `json:"conversationHistory" dynamodbav:"conversationHistory"`
	Preferences         Preferences `json:"extractedPreferences" dynamodbav:"extractedPreferences"`
	Stage               Stage       `json:"conversationStage" dynamodbav:"conversationStage"`
	QuestionsAsked      []Field     `json:"questionsAsked" dynamodbav:"questionsAsked"`
	RecommendationCount int         `json:"recommendationCount" dynamodbav:"recommendationCount"`
	LastRecommendations []string    `json:"lastRecommendations" dynamodbav:"lastRecommendations"`
}

func NewConversationContext() ConversationContext {
	return ConversationContext{
		History:             []Turn{},
		Stage:               StageInitial,
		QuestionsAsked:      []Field{},
		LastRecommendations: []string{},
	}
}

// Clone returns a deep copy so that callers never share slices between turns.
func (c ConversationContext) Clone() ConversationContext {
	c.History = slices.Clone(c.History)
	c.QuestionsAsked = slices.Clone(c.QuestionsAsked)
	c.LastRecommendations = slices.Clone(c.LastRecommendations)
	c.Preferences = c.Preferences.Clone()

	return c
}

func (c *ConversationContext) AppendTurn(role Role, text string, ts time.Time) {
	c.History = append(c.History, Turn{
		Role:      role,
		Text:      text,
		Timestamp: ts.UTC(),
	})
}

// RecentHistory returns at most n trailing turns.
func (c ConversationContext) RecentHistory(n int) []Turn {
	if len(c.History) <= n {
		return c.History
	}

	return c.History[len(c.History)-n:]
}

func (c ConversationContext) WasAsked(field Field) bool {
	return slices.Contains(c.QuestionsAsked, field)
}

// ResetSearch clears everything gathered for the current search.
func (c *ConversationContext) ResetSearch() {
	c.Preferences = Preferences{}
	c.QuestionsAsked = []Field{}
	c.RecommendationCount = 0
	c.Stage = StageInitial
}
