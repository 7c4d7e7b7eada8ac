package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawReading(t *testing.T) {
	raw := RawEvent{Value: []byte(`{
		"timestamp": 1714111200000,
		"waterLevelRise": 8.4,
		"lakeTemperature": 2.1,
		"airTemperature": 6.5,
		"sensorBattery": 82,
		"sensorStatus": " Active "
	}`)}

	r, err := ParseRawReading(raw)

	require.NoError(t, err)
	assert.Equal(t, Reading{
		Timestamp:       1714111200000,
		WaterLevelRise:  8.4,
		LakeTemperature: 2.1,
		AirTemperature:  6.5,
		SensorBattery:   82,
		SensorStatus:    SensorActive,
	}, r)
}

func TestParseRawReading_DerivesMissingStatus(t *testing.T) {
	raw := RawEvent{Value: []byte(`{"timestamp":1714111200000,"waterLevelRise":3,"lakeTemperature":1,"airTemperature":2,"sensorBattery":20}`)}

	r, err := ParseRawReading(raw)

	require.NoError(t, err)
	assert.Equal(t, SensorWarning, r.SensorStatus)
}

func TestParseRawReading_ZeroMeasurementsAreKept(t *testing.T) {
	raw := RawEvent{Value: []byte(`{"timestamp":1714111200000,"waterLevelRise":0,"lakeTemperature":0,"airTemperature":0,"sensorBattery":0}`)}

	r, err := ParseRawReading(raw)

	require.NoError(t, err)
	assert.Equal(t, Reading{Timestamp: 1714111200000, SensorStatus: SensorError}, r)
}

func TestParseRawReading_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value string
		field string
	}{
		{"malformed json", `{not json`, "decode"},
		{"wrong type", `{"timestamp":"yesterday"}`, "decode"},
		{"only battery", `{"timestamp":1714111200000,"sensorBattery":80}`, "waterLevelRise"},
		{"missing timestamp", `{"waterLevelRise":3,"lakeTemperature":1,"airTemperature":2,"sensorBattery":50}`, "timestamp"},
		{"missing water level", `{"timestamp":1,"lakeTemperature":1,"airTemperature":2,"sensorBattery":50}`, "waterLevelRise"},
		{"missing lake temperature", `{"timestamp":1,"waterLevelRise":3,"airTemperature":2,"sensorBattery":50}`, "lakeTemperature"},
		{"missing air temperature", `{"timestamp":1,"waterLevelRise":3,"lakeTemperature":1,"sensorBattery":50}`, "airTemperature"},
		{"missing battery", `{"timestamp":1,"waterLevelRise":3,"lakeTemperature":1,"airTemperature":2}`, "sensorBattery"},
		{"null measurement", `{"timestamp":1,"waterLevelRise":null,"lakeTemperature":1,"airTemperature":2,"sensorBattery":50}`, "waterLevelRise"},
		{"zero timestamp", `{"timestamp":0,"waterLevelRise":3,"lakeTemperature":1,"airTemperature":2,"sensorBattery":50}`, "timestamp"},
		{"battery over 100", `{"timestamp":1,"waterLevelRise":3,"lakeTemperature":1,"airTemperature":2,"sensorBattery":140}`, "sensorBattery"},
		{"negative battery", `{"timestamp":1,"waterLevelRise":3,"lakeTemperature":1,"airTemperature":2,"sensorBattery":-1}`, "sensorBattery"},
		{"unknown status", `{"timestamp":1,"waterLevelRise":3,"lakeTemperature":1,"airTemperature":2,"sensorBattery":50,"sensorStatus":"sleeping"}`, "sensorStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRawReading(RawEvent{Value: []byte(tt.value)})
			require.ErrorIs(t, err, ErrInvalidReading)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateReading(t *testing.T) {
	valid := Reading{Timestamp: 1, SensorBattery: 50, SensorStatus: SensorActive}
	require.NoError(t, ValidateReading(valid))

	// The classifier accepts any numeric input; extreme values still validate.
	extreme := valid
	extreme.WaterLevelRise = -999
	extreme.AirTemperature = 60
	require.NoError(t, ValidateReading(extreme))

	bad := valid
	bad.SensorBattery = 101
	err := ValidateReading(bad)
	require.ErrorIs(t, err, ErrInvalidReading)
	assert.Contains(t, err.Error(), "sensorBattery")
}

func TestDeriveSensorStatus(t *testing.T) {
	tests := []struct {
		battery  int
		expected SensorStatus
	}{
		{100, SensorActive},
		{31, SensorActive},
		{30, SensorWarning},
		{16, SensorWarning},
		{15, SensorError},
		{0, SensorError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DeriveSensorStatus(tt.battery), "battery %d", tt.battery)
	}
}
