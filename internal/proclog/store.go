package proclog

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/prismo-finance/prismo-ingest/internal/awsx"
)

// Store encapsulates the append-only processing log table.
type Store struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	idFunc    func() string
}

// NewStore creates a processing log Store bound to a table.
func NewStore(client awsx.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		idFunc:    uuid.NewString,
	}
}

// AppendSuccess writes a SUCCESS entry referencing the raw record.
func (s *Store) AppendSuccess(ctx context.Context, rawRecordID string) (*Entry, error) {
	return s.append(ctx, Entry{
		RawRecordID: rawRecordID,
		Status:      StatusSuccess,
	})
}

// AppendFailure writes a FAILURE entry carrying the attempt's error message.
func (s *Store) AppendFailure(ctx context.Context, rawRecordID, errorMessage string) (*Entry, error) {
	return s.append(ctx, Entry{
		RawRecordID:  rawRecordID,
		Status:       StatusFailure,
		ErrorMessage: errorMessage,
	})
}

func (s *Store) append(ctx context.Context, e Entry) (*Entry, error) {
	e.LogID = s.idFunc()
	e.CreatedAt = awsx.Timestamp(s.nowFunc().UTC())

	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("put entry: %w", err)
	}
	return &e, nil
}

// ListForRecord returns the attempt history for one raw record in creation
// order; operators use this to find stuck records.
func (s *Store) ListForRecord(ctx context.Context, rawRecordID string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	lim := int32(limit)
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(RecordIndex),
		KeyConditionExpression: awsString("raw_record_id = :r"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: rawRecordID},
		},
		Limit: &lim,
	})
	if err != nil {
		return nil, fmt.Errorf("query record index: %w", err)
	}

	entries := make([]*Entry, 0, len(out.Items))
	for _, item := range out.Items {
		var e Entry
		if err := attributevalue.UnmarshalMap(item, &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func awsString(s string) *string { return &s }
