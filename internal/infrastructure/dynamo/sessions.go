package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/openmca/auth-api/internal/domain"
)

const sessionIDIndex = "session_id-index"

// sessionAPI is the slice of the DynamoDB client the session repo uses.
type sessionAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// SessionRepo provides typed DynamoDB operations for the sessions table.
//
// The table is keyed by user_id, so a user has at most one session item and
// a plain PutItem is an atomic whole-item replacement. Lookups by session id
// go through the session_id GSI and are confirmed against the base table,
// because the index lags writes.
type SessionRepo struct {
	client    sessionAPI
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	userID, err := r.resolveUserID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Strongly consistent read of the user's current session item. An index
	// row naming a session the user has since replaced fails the recheck.
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	if s.SessionID != sessionID {
		return nil, fmt.Errorf("session superseded: %w", domain.ErrNotFound)
	}
	return &s, nil
}

// ReplaceForUser installs a session as the user's only one. The item key is
// the user id, so the put overwrites whatever session the user held before;
// two concurrent verifications cannot both leave a live session.
func (r *SessionRepo) ReplaceForUser(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Delete removes the session only if it is still the user's current one. A
// conditional check failure means the session was already replaced or gone;
// either way it no longer validates, so that is success.
func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	userID, err := r.resolveUserID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldUserID, userID),
		ConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}

// resolveUserID maps a session id to the owning user via the GSI.
func (r *SessionRepo) resolveUserID(ctx context.Context, sessionID string) (string, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(sessionIDIndex),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return "", err
	}
	if len(out.Items) == 0 {
		return "", fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	uid, ok := out.Items[0][fieldUserID].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("session item missing user_id: %w", domain.ErrNotFound)
	}
	return uid.Value, nil
}
