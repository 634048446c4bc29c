package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"trailblaze-events-scraper/internal/models"
)

// DynamoDBService persists stored events and serves the reconciler's
// identity lookups. Events live in a single table keyed
// PK=EVENT#<source>#<externalID>, SK=DATE#<dateStart>, with a
// name-date-index GSI for the name+date identity fallback.
type DynamoDBService struct {
	client      *dynamodb.Client
	eventsTable string
}

// NewDynamoDBService creates a new DynamoDB-backed event store
func NewDynamoDBService(client *dynamodb.Client, eventsTable string) *DynamoDBService {
	return &DynamoDBService{
		client:      client,
		eventsTable: eventsTable,
	}
}

// GetByExternalID retrieves a stored event by its source ride id.
// Returns (nil, nil) when no such event exists.
func (s *DynamoDBService) GetByExternalID(ctx context.Context, source, externalID string) (*models.StoredEvent, error) {
	pk := models.CreateEventPK(source, externalID)

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.eventsTable),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query event by external id: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var event models.StoredEvent
	if err := attributevalue.UnmarshalMap(result.Items[0], &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored event: %w", err)
	}
	return &event, nil
}

// GetByNameAndDate retrieves a stored event by the name+date identity
// fallback. Returns (nil, nil) when no such event exists.
func (s *DynamoDBService) GetByNameAndDate(ctx context.Context, name, dateStart string) (*models.StoredEvent, error) {
	nameDateKey := models.GenerateNameDateKey(name, dateStart)

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.eventsTable),
		IndexName:              aws.String("name-date-index"),
		KeyConditionExpression: aws.String("NameDateKey = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: nameDateKey},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query event by name and date: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var event models.StoredEvent
	if err := attributevalue.UnmarshalMap(result.Items[0], &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored event: %w", err)
	}
	return &event, nil
}

// Insert stores a new event
func (s *DynamoDBService) Insert(ctx context.Context, event *models.StoredEvent) error {
	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stored event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.eventsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Update overwrites an existing stored event
func (s *DynamoDBService) Update(ctx context.Context, event *models.StoredEvent) error {
	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stored event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.eventsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}
