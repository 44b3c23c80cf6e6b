package proclog

import "github.com/prismo-finance/prismo-ingest/internal/awsx"

// Entry statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// RecordIndex is the GSI used to list entries for one raw record.
const RecordIndex = "record-index"

// Entry is one processing attempt outcome. Entries are append-only: written
// exactly once per attempt, never mutated or deleted. created_at is the
// record-index range key and uses the fixed-width encoding so attempt
// history comes back in creation order.
type Entry struct {
	LogID        string         `dynamodbav:"log_id"` // PK
	RawRecordID  string         `dynamodbav:"raw_record_id"`
	Status       string         `dynamodbav:"status"` // SUCCESS | FAILURE
	ErrorMessage string         `dynamodbav:"error_message,omitempty"`
	CreatedAt    awsx.Timestamp `dynamodbav:"created_at"`
}
