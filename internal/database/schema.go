package database

import "fitcoach-backend/internal/models"

// SQL schemas for all ClickHouse tables

const (
	// SensorAccelerometerTableSQL creates the sensor_accelerometer table
	SensorAccelerometerTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_accelerometer (
			received_at DateTime64(3),
			device_id String,
			t Float64,
			x Float64,
			y Float64,
			z Float64
		) ENGINE = MergeTree()
		ORDER BY (device_id, received_at, t)
		PARTITION BY toYYYYMM(received_at)
	`

	// SensorGyroscopeTableSQL creates the sensor_gyroscope table
	SensorGyroscopeTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_gyroscope (
			received_at DateTime64(3),
			device_id String,
			t Float64,
			x Float64,
			y Float64,
			z Float64
		) ENGINE = MergeTree()
		ORDER BY (device_id, received_at, t)
		PARTITION BY toYYYYMM(received_at)
	`

	// RepPredictionsTableSQL creates the rep_predictions table
	RepPredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS rep_predictions (
			timestamp DateTime64(3),
			device_id String,
			session_id String,
			rep_index UInt32,
			start_time Float64,
			end_time Float64,
			label LowCardinality(String),
			confidence Float64,
			inference_time_ms Float64,
			model_version String
		) ENGINE = MergeTree()
		ORDER BY (device_id, session_id, rep_index)
		PARTITION BY toYYYYMM(timestamp)
	`

	// DeviceRegistryTableSQL creates the device_registry table
	DeviceRegistryTableSQL = `
		CREATE TABLE IF NOT EXISTS device_registry (
			device_id String,
			name String,
			registered_at DateTime64(3),
			last_seen DateTime64(3),
			is_active Bool
		) ENGINE = ReplacingMergeTree(last_seen)
		ORDER BY device_id
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		SensorAccelerometerTableSQL,
		SensorGyroscopeTableSQL,
		RepPredictionsTableSQL,
		DeviceRegistryTableSQL,
	}
}

// sampleTable maps a sensor to the table its raw samples go to
func sampleTable(sensor models.SensorKind) (string, bool) {
	switch sensor {
	case models.SensorAccelerometer:
		return "sensor_accelerometer", true
	case models.SensorGyroscope:
		return "sensor_gyroscope", true
	}
	return "", false
}
