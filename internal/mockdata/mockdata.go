// Package mockdata generates demonstration sensor readings: a warning
// scenario today preceded by two safe days and seasonal noise before that.
package mockdata

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
)

const day = 24 * time.Hour

// Generate returns days+1 daily readings ending at now, oldest first.
func Generate(now time.Time, days int, rng *rand.Rand) []domain.Reading {
	if days < 0 {
		days = 0
	}
	readings := make([]domain.Reading, 0, days+1)

	for i := days; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * day)
		f := float64(i)

		waterRise := 3 + math.Sin(f*0.5)*2 + rng.Float64()*2
		lakeTemp := 2 + math.Sin(f*0.3)*1.5 + rng.Float64()
		airTemp := 3 + math.Sin(f*0.4)*2 + rng.Float64()*2

		switch i {
		case 0:
			waterRise = 8 + rng.Float64()*2
			airTemp = 7 + rng.Float64()*2
		case 1:
			waterRise = 3 + rng.Float64()
			airTemp = 4 + rng.Float64()
		case 2:
			waterRise = 2 + rng.Float64()
			airTemp = 3 + rng.Float64()
		}

		battery := int(math.Round(math.Max(20, 100-f*2+rng.Float64()*5)))
		battery = min(battery, 100)

		readings = append(readings, domain.Reading{
			Timestamp:       ts.UnixMilli(),
			WaterLevelRise:  round1(waterRise),
			LakeTemperature: round1(lakeTemp),
			AirTemperature:  round1(airTemp),
			SensorBattery:   battery,
			SensorStatus:    domain.DeriveSensorStatus(battery),
		})
	}
	return readings
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
