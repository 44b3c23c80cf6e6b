package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"

	"github.com/prismo-finance/prismo-ingest/internal/awsx"
)

const namespace = "PrismoIngest"

// Publisher emits per-pass counters to CloudWatch. Publishing is best
// effort: failures are logged and never affect the pass outcome. A nil
// *Publisher is safe to call.
type Publisher struct {
	client  awsx.CloudWatchAPI
	log     zerolog.Logger
	nowFunc func() time.Time
}

// NewPublisher returns a Publisher bound to a CloudWatch client.
func NewPublisher(client awsx.CloudWatchAPI, log zerolog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		log:     log,
		nowFunc: time.Now,
	}
}

// RecordPass publishes the processed/failed counts for one processing pass.
func (p *Publisher) RecordPass(ctx context.Context, processed, failed int) {
	if p == nil {
		return
	}
	now := p.nowFunc().UTC()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString("RecordsProcessed"),
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      awsFloat(float64(processed)),
			},
			{
				MetricName: awsString("RecordsFailed"),
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      awsFloat(float64(failed)),
			},
		},
	}
	if _, err := p.client.PutMetricData(ctx, input); err != nil {
		p.log.Warn().Err(err).Msg("failed to publish pass metrics")
	}
}

func awsString(s string) *string  { return &s }
func awsFloat(f float64) *float64 { return &f }
