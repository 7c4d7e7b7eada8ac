package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RiskEvent is a classified reading, the record published to the sink topic.
type RiskEvent struct {
	ID          string         `json:"id"`
	Reading     Reading        `json:"reading"`
	Assessment  RiskAssessment `json:"assessment"`
	HasPrevious bool           `json:"hasPrevious"`
	Spike       bool           `json:"spike"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// NewRiskEvent assesses current against previous (which may be nil) and
// stamps the result with the domain clock.
func NewRiskEvent(current Reading, previous *Reading) RiskEvent {
	return RiskEvent{
		ID:          generateID(current),
		Reading:     current,
		Assessment:  Assess(current, previous),
		HasPrevious: previous != nil,
		Spike:       IsSpike(current, previous),
		ProcessedAt: clock.Now().UTC(),
	}
}

// SerializeRiskEvent marshals a RiskEvent into an OutputEvent keyed by its ID.
func SerializeRiskEvent(event RiskEvent) (OutputEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize risk event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(event.ID),
		Value: data,
		Headers: map[string]string{
			"combined_risk": event.Assessment.CombinedRisk.String(),
			"processed_at":  event.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// generateID produces a deterministic ID from the reading's timestamp and
// values, so a replayed reading keeps its key on the sink topic.
func generateID(r Reading) string {
	input := fmt.Sprintf("%d|%.1f|%.1f|%.1f", r.Timestamp, r.WaterLevelRise, r.LakeTemperature, r.AirTemperature)
	hash := sha256.Sum256([]byte(input))
	return "risk-" + hex.EncodeToString(hash[:8])
}
