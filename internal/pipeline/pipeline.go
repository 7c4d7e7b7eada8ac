package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
	"github.com/couchcryptid/glof-risk-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw readings from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw reading into a serialized risk event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the extract-assess-publish loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	backoff     time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// CheckReadiness returns nil once the pipeline has published at least one batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any assessments yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled. Extract and
// load failures back off exponentially from 200ms up to 5s.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		if !p.processBatch(ctx) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// processBatch runs one cycle. It returns false if the pipeline should stop.
// A partial batch returned alongside an extract error is still processed so
// that its messages are published before their offsets are committed.
func (p *Pipeline) processBatch(ctx context.Context) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if len(rawBatch) == 0 {
			if ctx.Err() != nil {
				return false
			}
			p.logger.Error("extract batch failed", "error", err)
			return p.waitBackoff(ctx)
		}
		p.logger.Warn("extract batch failed, processing partial batch",
			"error", err, "batch_size", len(rawBatch))
	}
	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	if err == nil {
		p.backoff = initialBackoff
	}

	loaded, ok := p.transformAndLoad(ctx, rawBatch)
	if !ok {
		return false
	}
	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad assesses each reading, publishes the successes and only
// then commits their offsets. Invalid readings are committed immediately so
// they are not redelivered. Any other transform or publish failure is retried
// with backoff until it succeeds or the context ends; nothing past the failed
// message is committed in the meantime.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEvent) (int, bool) {
	outBatch := make([]domain.OutputEvent, 0, len(rawBatch))
	pending := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		out, err := p.transform(ctx, raw)
		if errors.Is(err, domain.ErrInvalidReading) {
			p.logger.Warn("reading rejected, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		if err != nil {
			return 0, false
		}
		outBatch = append(outBatch, out)
		pending = append(pending, raw)
	}

	if len(outBatch) == 0 {
		return 0, true
	}

	if !p.load(ctx, outBatch) {
		return 0, false
	}
	p.metrics.MessagesProduced.Add(float64(len(outBatch)))

	for _, raw := range pending {
		p.commit(ctx, raw)
	}
	return len(outBatch), true
}

// transform retries transient failures. It returns ErrInvalidReading failures
// as-is and the context error once the context ends.
func (p *Pipeline) transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	for {
		out, err := p.transformer.Transform(ctx, raw)
		if err == nil || errors.Is(err, domain.ErrInvalidReading) {
			return out, err
		}
		p.metrics.TransformErrors.Inc()
		p.logger.Error("transform failed, retrying",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
			"backoff", p.backoff,
		)
		if !p.waitBackoff(ctx) {
			return domain.OutputEvent{}, context.Cause(ctx)
		}
	}
}

// load publishes the batch, retrying the same events until the loader
// accepts them. It returns false if the context ends first.
func (p *Pipeline) load(ctx context.Context, outBatch []domain.OutputEvent) bool {
	for {
		err := p.loader.LoadBatch(ctx, outBatch)
		if err == nil {
			p.backoff = initialBackoff
			return true
		}
		p.logger.Error("publish batch failed, retrying",
			"error", err, "batch_size", len(outBatch), "backoff", p.backoff)
		if !p.waitBackoff(ctx) {
			return false
		}
	}
}

// waitBackoff sleeps for the current backoff and doubles it. It returns
// false if the context ends first.
func (p *Pipeline) waitBackoff(ctx context.Context) bool {
	if ctx.Err() != nil || !retry.SleepWithContext(ctx, p.backoff) {
		return false
	}
	p.backoff = retry.NextBackoff(p.backoff, maxBackoff)
	return true
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
