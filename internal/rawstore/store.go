package rawstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/prismo-finance/prismo-ingest/internal/awsx"
)

// ErrDuplicateExternalID indicates an intake attempt reused an external id.
var ErrDuplicateExternalID = errors.New("external id already exists")

// ErrAlreadyProcessed indicates a processed=false precondition failed,
// i.e. another actor already completed the record.
var ErrAlreadyProcessed = errors.New("record already processed")

// Store encapsulates operations on the raw records table.
type Store struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	idFunc    func() string
}

// NewStore creates a raw record Store bound to a table.
func NewStore(client awsx.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		idFunc:    uuid.NewString,
	}
}

// Create inserts a new unprocessed record. The conditional put on
// external_id is the store-level uniqueness constraint; a duplicate intake
// returns ErrDuplicateExternalID.
func (s *Store) Create(ctx context.Context, externalID string, payload map[string]interface{}) (*RawRecord, error) {
	rec := RawRecord{
		ID:         s.idFunc(),
		ExternalID: externalID,
		Payload:    payload,
		Processed:  false,
		CreatedAt:  awsx.Timestamp(s.nowFunc().UTC()),
		Pending:    PendingFlag,
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(external_id)"),
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException" {
			return nil, ErrDuplicateExternalID
		}
		return nil, fmt.Errorf("put item: %w", err)
	}
	return &rec, nil
}

// Get fetches a record by external id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, externalID string) (*RawRecord, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"external_id": &types.AttributeValueMemberS{Value: externalID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec RawRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// ListUnprocessed claims up to limit unprocessed records in creation order.
// It queries the sparse pending-index so processed records never show up,
// and the created_at range key keeps older records ahead of newer ones.
func (s *Store) ListUnprocessed(ctx context.Context, limit int) ([]*RawRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	lim := int32(limit)
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(PendingIndex),
		KeyConditionExpression: awsString("pending = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: PendingFlag},
		},
		Limit: &lim,
	})
	if err != nil {
		return nil, fmt.Errorf("query pending index: %w", err)
	}

	records := make([]*RawRecord, 0, len(out.Items))
	for _, item := range out.Items {
		var rec RawRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

// LatestUnprocessed returns the most recently created unprocessed record,
// or (nil, nil) if nothing is pending.
func (s *Store) LatestUnprocessed(ctx context.Context) (*RawRecord, error) {
	lim := int32(1)
	forward := false
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(PendingIndex),
		KeyConditionExpression: awsString("pending = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: PendingFlag},
		},
		Limit:            &lim,
		ScanIndexForward: &forward,
	})
	if err != nil {
		return nil, fmt.Errorf("query pending index: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var rec RawRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// MarkProcessed flips the record to its terminal state: processed=true,
// processed_at set exactly once, pending flag dropped so the claim query
// stops returning it. The processed=false condition guards against a
// concurrent completion.
func (s *Store) MarkProcessed(ctx context.Context, externalID string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"external_id": &types.AttributeValueMemberS{Value: externalID},
		},
		UpdateExpression: awsString("SET processed = :true, processed_at = :pa REMOVE pending"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":pa":    &types.AttributeValueMemberS{Value: now.Format(awsx.TimestampLayout)},
		},
		ConditionExpression: awsString("processed = :false"),
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("update item (mark processed): %w", err)
	}
	return nil
}

// AppendError records a failed attempt without touching the processed flag.
// list_append preserves every prior error in order.
func (s *Store) AppendError(ctx context.Context, externalID, message string) error {
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"external_id": &types.AttributeValueMemberS{Value: externalID},
		},
		UpdateExpression: awsString("SET processing_errors = list_append(if_not_exists(processing_errors, :empty), :err)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":err": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: message},
			}},
		},
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("update item (append error): %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
