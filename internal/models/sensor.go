package models

import "time"

// RawSample is one reading of a three-axis sensor (accelerometer or gyroscope)
// as recorded by the device. Time is in seconds on the device clock.
type RawSample struct {
	Time float64 `json:"time"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// Sample is one fused row carrying all six channels at a single instant.
// It is both the aligned-table row and the serving boundary request item.
type Sample struct {
	Time float64 `json:"time"`
	Ax   float64 `json:"ax"`
	Ay   float64 `json:"ay"`
	Az   float64 `json:"az"`
	Gx   float64 `json:"gx"`
	Gy   float64 `json:"gy"`
	Gz   float64 `json:"gz"`
}

// SensorKind identifies which physical sensor a batch came from
type SensorKind string

const (
	SensorAccelerometer SensorKind = "accelerometer"
	SensorGyroscope     SensorKind = "gyroscope"
)

// SampleBatch is a group of readings received from one device for one sensor
type SampleBatch struct {
	DeviceID   string      `json:"device_id"`
	Sensor     SensorKind  `json:"sensor"`
	ReceivedAt time.Time   `json:"received_at"`
	Samples    []RawSample `json:"samples"`
}

// SampleBatchPayload is the MQTT message body published by devices
type SampleBatchPayload struct {
	Samples []RawSample `json:"samples"`
}

// Session control actions accepted on the control topic
const (
	ControlReset = "reset"
)

// SessionControl asks the backend to act on a device session
type SessionControl struct {
	DeviceID string `json:"device_id"`
	Action   string `json:"action"`
}
