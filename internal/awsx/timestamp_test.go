package awsx

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestTimestampEncoding_FixedWidth(t *testing.T) {
	whole := Timestamp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	half := Timestamp(time.Date(2024, 3, 1, 12, 0, 0, 500_000_000, time.UTC))

	av1, err := whole.MarshalDynamoDBAttributeValue()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	av2, err := half.MarshalDynamoDBAttributeValue()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	s1 := av1.(*types.AttributeValueMemberS).Value
	s2 := av2.(*types.AttributeValueMemberS).Value
	if len(s1) != len(s2) {
		t.Fatalf("encodings differ in width: %q vs %q", s1, s2)
	}
	if !(s1 < s2) {
		t.Fatalf("expected %q to sort before %q", s1, s2)
	}

	var back Timestamp
	if err := back.UnmarshalDynamoDBAttributeValue(av2); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if !back.Time().Equal(half.Time()) {
		t.Fatalf("round trip changed value: %v vs %v", back.Time(), half.Time())
	}
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	ts := Timestamp(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))
	b, err := ts.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var back Timestamp
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if !back.Time().Equal(ts.Time()) {
		t.Fatalf("round trip changed value: %v vs %v", back.Time(), ts.Time())
	}
}
