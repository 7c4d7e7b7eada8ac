// Package domain models glacial lake outburst flood (GLOF) monitoring data
// and the rules that classify it into risk levels.
//
// # Data Source
//
// Readings come from a lake-side sensor station, one observation per
// interval (daily in the current deployment). The station publishes each
// observation as flat JSON to the Kafka source topic:
//
//	{"timestamp":1714089600000,"waterLevelRise":8.2,"lakeTemperature":2.1,
//	 "airTemperature":7.4,"sensorBattery":88,"sensorStatus":"active"}
//
// Timestamps are milliseconds since the Unix epoch and strictly increase
// per station. Water-level rise is in cm/day with one decimal of precision.
// Temperatures are in degrees Celsius.
//
// Sensor status is derived from battery when the station omits it:
//
//	battery > 30  → active
//	battery > 15  → warning
//	otherwise     → error
//
// # Risk Classification
//
// Each reading is classified along two dimensions and the results combined.
// Classification is pure: the only history it sees is the previous reading,
// passed in explicitly by the caller.
//
//	Water level (cm/day):
//	  rise − previous rise > 10   → danger (spike, checked first)
//	  rise < 5                    → safe
//	  rise > 20                   → danger
//	  5 ≤ rise ≤ 20               → warning
//
//	Temperature (°C):
//	  air > 10 now and previously → danger (persistence)
//	  air > 10                    → danger
//	  5 ≤ air ≤ 10                → warning
//	  0 ≤ lake ≤ 5 and air < 5    → safe
//	  anything else               → warning
//
//	Combined: the higher of the two under safe < warning < danger.
//
// The persistence rule never changes an outcome: the unconditional air > 10
// rule yields the same level.
//
// # ID Generation
//
// Risk event IDs are deterministic SHA-256 hashes of the reading timestamp
// and values, so replaying a reading produces the same key on the sink
// topic. See [generateID].
package domain
