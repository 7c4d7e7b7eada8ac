package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
	"github.com/couchcryptid/glof-risk-service/internal/observability"
)

// RiskTransformer implements Transformer. It looks up each reading's
// predecessor in the store, assesses the pair and persists the reading.
type RiskTransformer struct {
	store   domain.ReadingStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a RiskTransformer. Pass a nil store to assess every
// reading without a predecessor and skip persistence.
func NewTransformer(store domain.ReadingStore, logger *slog.Logger, metrics *observability.Metrics) *RiskTransformer {
	return &RiskTransformer{store: store, logger: logger, metrics: metrics}
}

func (t *RiskTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	reading, err := domain.ParseRawReading(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	previous, err := t.previous(ctx, reading.Timestamp)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	event := domain.NewRiskEvent(reading, previous)

	if t.store != nil {
		if err := t.store.SaveReading(ctx, reading); err != nil {
			return domain.OutputEvent{}, fmt.Errorf("persist reading: %w", err)
		}
	}

	out, err := domain.SerializeRiskEvent(event)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	t.record(event)
	return out, nil
}

func (t *RiskTransformer) previous(ctx context.Context, timestamp int64) (*domain.Reading, error) {
	if t.store == nil {
		return nil, nil
	}
	prev, err := t.store.PreviousReading(ctx, timestamp)
	if errors.Is(err, domain.ErrReadingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup previous reading: %w", err)
	}
	return &prev, nil
}

func (t *RiskTransformer) record(event domain.RiskEvent) {
	a := event.Assessment
	t.metrics.Assessments.WithLabelValues("water_level", a.WaterLevelRisk.String()).Inc()
	t.metrics.Assessments.WithLabelValues("temperature", a.TemperatureRisk.String()).Inc()
	t.metrics.Assessments.WithLabelValues("combined", a.CombinedRisk.String()).Inc()
	t.metrics.LatestCombinedRisk.Set(float64(a.CombinedRisk))
	if event.Spike {
		t.metrics.SpikesDetected.Inc()
	}

	logFn := t.logger.Debug
	if a.CombinedRisk == domain.RiskDanger {
		logFn = t.logger.Warn
	}
	logFn("reading assessed",
		"id", event.ID,
		"date", a.Date,
		"water_level_risk", a.WaterLevelRisk.String(),
		"temperature_risk", a.TemperatureRisk.String(),
		"combined_risk", a.CombinedRisk.String(),
		"spike", event.Spike,
	)
}
