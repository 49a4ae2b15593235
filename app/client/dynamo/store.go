package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"quietspot/app/config"
	"quietspot/app/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const maxLoadConfigDuration = 10 * time.Second

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Tables struct {
	Sessions string
	Messages string
	Venues   string
}

// Store keeps sessions keyed by sessionId, messages keyed by
// (sessionId, timestamp) and venues keyed by id.
type Store struct {
	client API
	tables Tables
}

var _ model.Store = (*Store)(nil)

func New(di *do.Injector) (*Store, error) {
	cfg := do.MustInvoke[*config.Config](di)
	dcfg := cfg.Store.DynamoDB

	ctx, cancel := context.WithTimeout(context.Background(), maxLoadConfigDuration)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(dcfg.Region))
	if err != nil {
		return nil, oops.In("dynamo").With("region", dcfg.Region).Wrapf(err, "failed to load AWS config")
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if dcfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(dcfg.Endpoint)
		}
	})

	slog.Info("DynamoDB store configured",
		"region", dcfg.Region,
		"endpoint", dcfg.Endpoint,
		"sessions_table", dcfg.SessionsTable,
	)

	return NewWithClient(client, Tables{
		Sessions: dcfg.SessionsTable,
		Messages: dcfg.MessagesTable,
		Venues:   dcfg.VenuesTable,
	}), nil
}

func NewWithClient(client API, tables Tables) *Store {
	return &Store{
		client: client,
		tables: tables,
	}
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Sessions),
		Key: map[string]dynamodbtypes.AttributeValue{
			"sessionId": &dynamodbtypes.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return nil, unavailable(err, "failed to get session", "session_id", sessionID)
	}

	if result.Item == nil {
		return nil, model.ErrSessionNotFound
	}

	var session model.Session
	if err = attributevalue.UnmarshalMap(result.Item, &session); err != nil {
		return nil, oops.In("dynamo").With("session_id", sessionID).Wrapf(err, "failed to unmarshal session")
	}

	return &session, nil
}

func (s *Store) PutSession(ctx context.Context, session *model.Session) error {
	if session == nil || session.SessionID == "" {
		return oops.In("dynamo").Code(model.CodeValidation).Wrap(model.ErrSessionIDRequired)
	}

	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Sessions),
		Item:      item,
	})
	if err != nil {
		return unavailable(err, "failed to save session", "session_id", session.SessionID)
	}

	return nil
}

// UpdateContext overwrites the conversation context of an existing session.
// It never creates a session.
func (s *Store) UpdateContext(ctx context.Context, sessionID string, cc model.ConversationContext, updatedAt time.Time) error {
	ctxValue, err := attributevalue.Marshal(cc)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tables.Sessions),
		Key: map[string]dynamodbtypes.AttributeValue{
			"sessionId": &dynamodbtypes.AttributeValueMemberS{Value: sessionID},
		},
		UpdateExpression:    aws.String("SET #ctx = :ctx, #updated = :updated"),
		ConditionExpression: aws.String("attribute_exists(sessionId)"),
		ExpressionAttributeNames: map[string]string{
			"#ctx":     "context",
			"#updated": "updatedAt",
		},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":ctx":     ctxValue,
			":updated": &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatInt(updatedAt.Unix(), 10)},
		},
	})
	if err != nil {
		var condErr *dynamodbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return model.ErrSessionNotFound
		}

		return unavailable(err, "failed to update context", "session_id", sessionID)
	}

	return nil
}

func (s *Store) PutMessage(ctx context.Context, msg model.Message) error {
	item, err := attributevalue.MarshalMap(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Messages),
		Item:      item,
	})
	if err != nil {
		return unavailable(err, "failed to save message", "session_id", msg.SessionID)
	}

	return nil
}

// QueryMessages returns all messages of a session in ascending timestamp order.
func (s *Store) QueryMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	var lastEvaluatedKey map[string]dynamodbtypes.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(s.tables.Messages),
			KeyConditionExpression: aws.String("sessionId = :sid"),
			ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
				":sid": &dynamodbtypes.AttributeValueMemberS{Value: sessionID},
			},
			ScanIndexForward: aws.Bool(true),
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, unavailable(err, "failed to query messages", "session_id", sessionID)
		}

		for _, item := range result.Items {
			var msg model.Message
			if err = attributevalue.UnmarshalMap(item, &msg); err != nil {
				slog.Warn("Failed to unmarshal message", "session_id", sessionID, "error", err)
				continue
			}
			messages = append(messages, msg)
		}

		lastEvaluatedKey = result.LastEvaluatedKey
		if lastEvaluatedKey == nil {
			break
		}
	}

	return messages, nil
}

// ScanVenues pushes the filter down as a FilterExpression and follows
// pagination until the table is exhausted.
func (s *Store) ScanVenues(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	expr, names, values, err := filterExpression(filter)
	if err != nil {
		return nil, err
	}

	venues := make([]model.Venue, 0)
	var lastEvaluatedKey map[string]dynamodbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(s.tables.Venues),
		}
		if expr != "" {
			input.FilterExpression = aws.String(expr)
			input.ExpressionAttributeNames = names
			input.ExpressionAttributeValues = values
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, unavailable(err, "failed to scan venues", "table", s.tables.Venues)
		}

		for _, item := range result.Items {
			var venue model.Venue
			if err = attributevalue.UnmarshalMap(item, &venue); err != nil {
				slog.Warn("Failed to unmarshal venue", "error", err)
				continue
			}
			venues = append(venues, venue)
		}

		lastEvaluatedKey = result.LastEvaluatedKey
		if lastEvaluatedKey == nil {
			break
		}
	}

	return venues, nil
}

func (s *Store) PutVenue(ctx context.Context, venue model.Venue) error {
	if venue.ID == "" {
		return oops.In("dynamo").Code(model.CodeValidation).Errorf("venue id is required")
	}

	item, err := attributevalue.MarshalMap(venue)
	if err != nil {
		return fmt.Errorf("failed to marshal venue: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Venues),
		Item:      item,
	})
	if err != nil {
		return unavailable(err, "failed to save venue", "venue_id", venue.ID)
	}

	return nil
}

func unavailable(err error, msg string, key string, value any) error {
	return oops.
		In("dynamo").
		Code(model.CodeStoreUnavailable).
		With(key, value).
		Wrapf(fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err), "%s", msg)
}
