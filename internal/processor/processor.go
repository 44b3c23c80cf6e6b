package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prismo-finance/prismo-ingest/internal/mapper"
	"github.com/prismo-finance/prismo-ingest/internal/proclog"
	"github.com/prismo-finance/prismo-ingest/internal/rawstore"
	"github.com/prismo-finance/prismo-ingest/internal/writer"
)

// RawStore is the subset of the raw record store the processor drives.
type RawStore interface {
	ListUnprocessed(ctx context.Context, limit int) ([]*rawstore.RawRecord, error)
	MarkProcessed(ctx context.Context, externalID string) error
	AppendError(ctx context.Context, externalID, message string) error
}

// AuditLog is the append-only attempt log the processor writes to.
type AuditLog interface {
	AppendSuccess(ctx context.Context, rawRecordID string) (*proclog.Entry, error)
	AppendFailure(ctx context.Context, rawRecordID, errorMessage string) (*proclog.Entry, error)
}

// PassRecorder receives per-pass counters; may be nil (metrics disabled).
type PassRecorder interface {
	RecordPass(ctx context.Context, processed, failed int)
}

// Processor drives claimed records through the mapper and writer, updating
// record state and the audit log per attempt. Mapping and writer failures
// are recorded and retried on a later pass; only a failure of the
// bookkeeping layer itself escapes RunOnce.
type Processor struct {
	raw          RawStore
	auditLog     AuditLog
	mapper       *mapper.Mapper
	writer       writer.Writer
	metrics      PassRecorder
	log          zerolog.Logger
	batchSize    int
	writeTimeout time.Duration
}

// Options configures a Processor.
type Options struct {
	RawStore     RawStore
	AuditLog     AuditLog
	Writer       writer.Writer
	Metrics      PassRecorder
	Logger       zerolog.Logger
	BatchSize    int
	WriteTimeout time.Duration
}

// New returns a configured Processor.
func New(opts Options) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Processor{
		raw:          opts.RawStore,
		auditLog:     opts.AuditLog,
		mapper:       mapper.New(),
		writer:       opts.Writer,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		batchSize:    opts.BatchSize,
		writeTimeout: opts.WriteTimeout,
	}
}

// RunOnce executes a single processing pass: claim a bounded batch of
// unprocessed records in creation order and drive each independently.
// Invoking it with nothing pending is a no-op. The returned error is always
// a bookkeeping failure; per-record mapping and writer errors never abort
// the pass or surface here.
func (p *Processor) RunOnce(ctx context.Context) error {
	batch, err := p.raw.ListUnprocessed(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	var processed, failed int
	for _, rec := range batch {
		ok, err := p.processRecord(ctx, rec)
		if err != nil {
			// Bookkeeping failure: the audit trail can no longer be trusted
			// to match reality, so stop and surface it to the supervisor.
			return err
		}
		if ok {
			processed++
		} else {
			failed++
		}
	}

	p.log.Info().
		Int("processed", processed).
		Int("failed", failed).
		Msg("processing pass completed")

	if p.metrics != nil {
		p.metrics.RecordPass(ctx, processed, failed)
	}
	return nil
}

// processRecord runs one attempt for one record. Returns (true, nil) on
// success, (false, nil) when the attempt failed but was recorded, and a
// non-nil error only when persisting the outcome itself failed.
func (p *Processor) processRecord(ctx context.Context, rec *rawstore.RawRecord) (bool, error) {
	p.log.Info().Str("external_id", rec.ExternalID).Msg("processing transaction")

	attemptErr := p.attempt(ctx, rec)
	if attemptErr == nil {
		if err := p.raw.MarkProcessed(ctx, rec.ExternalID); err != nil {
			return false, fmt.Errorf("mark processed %s: %w", rec.ExternalID, err)
		}
		if _, err := p.auditLog.AppendSuccess(ctx, rec.ID); err != nil {
			return false, fmt.Errorf("append success entry %s: %w", rec.ExternalID, err)
		}
		p.log.Info().Str("external_id", rec.ExternalID).Msg("transaction processed successfully")
		return true, nil
	}

	msg := attemptErr.Error()
	p.log.Error().Str("external_id", rec.ExternalID).Str("error", msg).Msg("transaction processing failed")

	if err := p.raw.AppendError(ctx, rec.ExternalID, msg); err != nil {
		return false, fmt.Errorf("append processing error %s: %w", rec.ExternalID, err)
	}
	if _, err := p.auditLog.AppendFailure(ctx, rec.ID, msg); err != nil {
		return false, fmt.Errorf("append failure entry %s: %w", rec.ExternalID, err)
	}
	return false, nil
}

// attempt maps and writes one record. A panic in the mapper or writer is
// converted to a retriable failure so a single record can never take down
// the pass.
func (p *Processor) attempt(ctx context.Context, rec *rawstore.RawRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing record: %v", r)
		}
	}()

	st, err := p.mapper.Map(rec.Payload)
	if err != nil {
		return err
	}

	wctx := ctx
	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}
	if _, err := p.writer.Write(wctx, st); err != nil {
		return err
	}
	return nil
}
