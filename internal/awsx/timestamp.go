package awsx

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TimestampLayout keeps all nine fractional digits so the stored string is
// fixed width. RFC3339Nano drops trailing zeros, which breaks lexicographic
// range-key ordering ("...00Z" sorts after "...00.5Z").
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp is a time.Time whose DynamoDB encoding sorts lexicographically
// in chronological order, so it is safe to use as a range key.
type Timestamp time.Time

func (t Timestamp) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: time.Time(t).UTC().Format(TimestampLayout)}, nil
}

func (t *Timestamp) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("timestamp attribute is %T, want string", av)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s.Value)
	if err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error)  { return time.Time(t).MarshalJSON() }
func (t *Timestamp) UnmarshalJSON(b []byte) error { return (*time.Time)(t).UnmarshalJSON(b) }

func (t Timestamp) Time() time.Time        { return time.Time(t) }
func (t Timestamp) IsZero() bool           { return time.Time(t).IsZero() }
func (t Timestamp) After(o Timestamp) bool { return time.Time(t).After(time.Time(o)) }
