package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SensorStatus is the station's health as reported alongside a reading.
type SensorStatus string

const (
	SensorActive  SensorStatus = "active"
	SensorWarning SensorStatus = "warning"
	SensorError   SensorStatus = "error"
)

// Reading is one timestamped observation from the lake sensor station.
type Reading struct {
	Timestamp       int64        `json:"timestamp" validate:"gt=0"`
	WaterLevelRise  float64      `json:"waterLevelRise"`
	LakeTemperature float64      `json:"lakeTemperature"`
	AirTemperature  float64      `json:"airTemperature"`
	SensorBattery   int          `json:"sensorBattery" validate:"min=0,max=100"`
	SensorStatus    SensorStatus `json:"sensorStatus" validate:"oneof=active warning error"`
}

// rawReading is the wire form of a Reading. Pointer fields distinguish a
// missing measurement from a zero one.
type rawReading struct {
	Timestamp       *int64   `json:"timestamp" validate:"required,gt=0"`
	WaterLevelRise  *float64 `json:"waterLevelRise" validate:"required"`
	LakeTemperature *float64 `json:"lakeTemperature" validate:"required"`
	AirTemperature  *float64 `json:"airTemperature" validate:"required"`
	SensorBattery   *int     `json:"sensorBattery" validate:"required,min=0,max=100"`
	SensorStatus    string   `json:"sensorStatus"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DeriveSensorStatus maps a battery percentage to a sensor status.
func DeriveSensorStatus(battery int) SensorStatus {
	switch {
	case battery > 30:
		return SensorActive
	case battery > 15:
		return SensorWarning
	default:
		return SensorError
	}
}

// ParseRawReading decodes a RawEvent's value into a Reading and validates it.
// Every measurement must be present. A missing sensor status is derived from
// the battery level. All failures wrap ErrInvalidReading.
func ParseRawReading(raw RawEvent) (Reading, error) {
	var in rawReading
	if err := json.Unmarshal(raw.Value, &in); err != nil {
		return Reading{}, fmt.Errorf("%w: decode: %w", ErrInvalidReading, err)
	}
	if err := validationError(validate.Struct(in)); err != nil {
		return Reading{}, err
	}

	r := Reading{
		Timestamp:       *in.Timestamp,
		WaterLevelRise:  *in.WaterLevelRise,
		LakeTemperature: *in.LakeTemperature,
		AirTemperature:  *in.AirTemperature,
		SensorBattery:   *in.SensorBattery,
		SensorStatus:    SensorStatus(strings.ToLower(strings.TrimSpace(in.SensorStatus))),
	}
	if r.SensorStatus == "" {
		r.SensorStatus = DeriveSensorStatus(r.SensorBattery)
	}

	if err := ValidateReading(r); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// ValidateReading checks the fields the ingest boundary is responsible for.
// The classifier itself accepts any numeric input.
func ValidateReading(r Reading) error {
	return validationError(validate.Struct(r))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidReading, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %w", ErrInvalidReading, err)
}
