package domain

import (
	"fmt"
	"time"
)

// RiskLevel is a discrete GLOF risk classification. Levels are ordered so
// that combining two levels is a max operation.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskWarning
	RiskDanger
)

// Water-level thresholds in cm/day.
const (
	waterSafeBelow   = 5.0
	waterDangerAbove = 20.0
	waterSpikeDelta  = 10.0
)

// Temperature thresholds in °C.
const (
	airDangerAbove = 10.0
	airWarningFrom = 5.0
	lakeSafeMin    = 0.0
	lakeSafeMax    = 5.0
)

// displayDateLayout formats RiskAssessment.Date.
const displayDateLayout = "2006-01-02"

func (l RiskLevel) String() string {
	switch l {
	case RiskSafe:
		return "safe"
	case RiskWarning:
		return "warning"
	case RiskDanger:
		return "danger"
	default:
		return fmt.Sprintf("RiskLevel(%d)", int(l))
	}
}

// MarshalText encodes the level as its lowercase name.
func (l RiskLevel) MarshalText() ([]byte, error) {
	switch l {
	case RiskSafe, RiskWarning, RiskDanger:
		return []byte(l.String()), nil
	default:
		return nil, fmt.Errorf("marshal risk level: unknown level %d", int(l))
	}
}

// UnmarshalText decodes "safe", "warning" or "danger".
func (l *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// ParseRiskLevel converts a lowercase level name into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "safe":
		return RiskSafe, nil
	case "warning":
		return RiskWarning, nil
	case "danger":
		return RiskDanger, nil
	default:
		return RiskSafe, fmt.Errorf("parse risk level: unknown level %q", s)
	}
}

// RiskAssessment is the classification of a single reading. It is derived on
// demand and never stored as its own entity.
type RiskAssessment struct {
	Timestamp       int64     `json:"timestamp"`
	Date            string    `json:"date"`
	WaterLevelRisk  RiskLevel `json:"waterLevelRisk"`
	TemperatureRisk RiskLevel `json:"temperatureRisk"`
	CombinedRisk    RiskLevel `json:"combinedRisk"`
}

// ClassifyWaterLevel maps the current water-level rise to a risk level. When
// previous is non-nil, a jump of more than 10 cm/day over it is a spike and
// short-circuits the absolute thresholds.
func ClassifyWaterLevel(current float64, previous *float64) RiskLevel {
	if previous != nil && current-*previous > waterSpikeDelta {
		return RiskDanger
	}

	switch {
	case current < waterSafeBelow:
		return RiskSafe
	case current > waterDangerAbove:
		return RiskDanger
	default:
		return RiskWarning
	}
}

// ClassifyTemperature maps lake and air temperature to a risk level.
// previousAirTemp is optional and only feeds the persistence rule.
func ClassifyTemperature(lakeTemp, airTemp float64, previousAirTemp *float64) RiskLevel {
	if previousAirTemp != nil && airTemp > airDangerAbove && *previousAirTemp > airDangerAbove {
		return RiskDanger
	}

	switch {
	case airTemp > airDangerAbove:
		return RiskDanger
	case airTemp >= airWarningFrom:
		return RiskWarning
	case lakeTemp >= lakeSafeMin && lakeTemp <= lakeSafeMax:
		// airTemp < 5 is implied by the cases above.
		return RiskSafe
	default:
		return RiskWarning
	}
}

// ClassifyCombined returns the higher of the two dimension levels.
func ClassifyCombined(waterLevelRisk, temperatureRisk RiskLevel) RiskLevel {
	return max(waterLevelRisk, temperatureRisk)
}

// Assess classifies current, using previous (which may be nil) for spike and
// persistence detection. It performs no I/O and keeps no state.
func Assess(current Reading, previous *Reading) RiskAssessment {
	var prevRise, prevAir *float64
	if previous != nil {
		prevRise = &previous.WaterLevelRise
		prevAir = &previous.AirTemperature
	}

	water := ClassifyWaterLevel(current.WaterLevelRise, prevRise)
	temp := ClassifyTemperature(current.LakeTemperature, current.AirTemperature, prevAir)

	return RiskAssessment{
		Timestamp:       current.Timestamp,
		Date:            displayDate(current.Timestamp),
		WaterLevelRisk:  water,
		TemperatureRisk: temp,
		CombinedRisk:    ClassifyCombined(water, temp),
	}
}

// AssessWindow assesses a newest-last sequence of readings, pairing each one
// with the reading before it in the slice. The first reading is assessed
// without a predecessor. The result is in the same order as the input.
func AssessWindow(readings []Reading) []RiskAssessment {
	out := make([]RiskAssessment, len(readings))
	for i := range readings {
		var prev *Reading
		if i > 0 {
			prev = &readings[i-1]
		}
		out[i] = Assess(readings[i], prev)
	}
	return out
}

// IsSpike reports whether current rose more than the spike threshold over
// previous. It mirrors the first water-level rule for metrics and logs.
func IsSpike(current Reading, previous *Reading) bool {
	return previous != nil && current.WaterLevelRise-previous.WaterLevelRise > waterSpikeDelta
}

func displayDate(timestampMillis int64) string {
	return time.UnixMilli(timestampMillis).UTC().Format(displayDateLayout)
}
