package rawstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory mock for the raw records table keyed by
// external_id. It implements only the expressions the store actually uses.
type mockDynamo struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue

	putErr    error
	updateErr error
	queryErr  error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func itemKey(item map[string]types.AttributeValue) (string, error) {
	attr, ok := item["external_id"]
	if !ok {
		return "", errors.New("missing external_id")
	}
	s, ok := attr.(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("external_id is not a string")
	}
	return s.Value, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	k, err := itemKey(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(external_id)" {
		if _, exists := m.table[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return nil, errors.New("item not found")
	}

	expr := ""
	if params.UpdateExpression != nil {
		expr = *params.UpdateExpression
	}

	switch {
	case strings.Contains(expr, "list_append"):
		var existing []types.AttributeValue
		if l, ok := item["processing_errors"].(*types.AttributeValueMemberL); ok {
			existing = l.Value
		}
		appended := params.ExpressionAttributeValues[":err"].(*types.AttributeValueMemberL)
		item["processing_errors"] = &types.AttributeValueMemberL{Value: append(existing, appended.Value...)}

	case strings.Contains(expr, "SET processed = :true"):
		if params.ConditionExpression != nil && *params.ConditionExpression == "processed = :false" {
			if b, ok := item["processed"].(*types.AttributeValueMemberBOOL); !ok || b.Value {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
		item["processed"] = params.ExpressionAttributeValues[":true"]
		item["processed_at"] = params.ExpressionAttributeValues[":pa"]
		delete(item, "pending")

	default:
		return nil, errors.New("unsupported update expression: " + expr)
	}

	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if params.IndexName == nil || *params.IndexName != PendingIndex {
		return nil, errors.New("unexpected index")
	}
	want := params.ExpressionAttributeValues[":p"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.table {
		if p, ok := item["pending"].(*types.AttributeValueMemberS); ok && p.Value == want {
			items = append(items, item)
		}
	}
	// range key order: created_at ascending unless ScanIndexForward is false
	sort.Slice(items, func(i, j int) bool {
		a := items[i]["created_at"].(*types.AttributeValueMemberS).Value
		b := items[j]["created_at"].(*types.AttributeValueMemberS).Value
		return a < b
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dyn.QueryOutput{Items: items}, nil
}
