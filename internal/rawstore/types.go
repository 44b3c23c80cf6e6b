package rawstore

import (
	"time"

	"github.com/prismo-finance/prismo-ingest/internal/awsx"
)

// PendingFlag marks an unprocessed record. The attribute is present while
// processed=false and removed on success, which keeps the pending-index GSI
// sparse: only records still awaiting processing appear in the claim query.
const PendingFlag = "true"

// PendingIndex is the GSI used to claim unprocessed records in creation order.
const PendingIndex = "pending-index"

// RawRecord is the item stored in the raw records DynamoDB table.
// external_id is the partition key; it doubles as the caller-supplied
// idempotency key, so a conditional put enforces store-level uniqueness.
// created_at is the pending-index range key and uses the fixed-width
// encoding so claims come back in creation order.
type RawRecord struct {
	ID               string                 `dynamodbav:"id" json:"id"`
	ExternalID       string                 `dynamodbav:"external_id" json:"externalId"` // PK
	Payload          map[string]interface{} `dynamodbav:"payload" json:"payload"`
	Processed        bool                   `dynamodbav:"processed" json:"processed"`
	ProcessedAt      *time.Time             `dynamodbav:"processed_at,omitempty" json:"processedAt,omitempty"`
	ProcessingErrors []string               `dynamodbav:"processing_errors,omitempty" json:"processingErrors,omitempty"`
	CreatedAt        awsx.Timestamp         `dynamodbav:"created_at" json:"createdAt"`
	Pending          string                 `dynamodbav:"pending,omitempty" json:"-"` // GSI hash attr
}
