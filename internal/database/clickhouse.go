package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"fitcoach-backend/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveSamples writes a batch of raw sensor samples with a single insert
func (db *ClickHouseDB) SaveSamples(batch *models.SampleBatch) error {
	table, ok := sampleTable(batch.Sensor)
	if !ok {
		return fmt.Errorf("no table for sensor %q", batch.Sensor)
	}
	if len(batch.Samples) == 0 {
		return nil
	}

	ctx := context.Background()
	insert, err := db.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (received_at, device_id, t, x, y, z)", table))
	if err != nil {
		return fmt.Errorf("failed to prepare %s batch: %w", table, err)
	}

	for _, s := range batch.Samples {
		if err := insert.Append(batch.ReceivedAt, batch.DeviceID, s.Time, s.X, s.Y, s.Z); err != nil {
			return fmt.Errorf("failed to append %s sample: %w", table, err)
		}
	}

	if err := insert.Send(); err != nil {
		return fmt.Errorf("failed to insert %d %s samples: %w", len(batch.Samples), batch.Sensor, err)
	}
	return nil
}

// SaveRepResult saves one classified rep
func (db *ClickHouseDB) SaveRepResult(result *models.RepResult) error {
	ctx := context.Background()

	query := `
		INSERT INTO rep_predictions (timestamp, device_id, session_id, rep_index, start_time, end_time, label, confidence, inference_time_ms, model_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		result.Timestamp,
		result.DeviceID,
		result.SessionID,
		uint32(result.Index),
		result.StartTime,
		result.EndTime,
		result.Label,
		result.Confidence,
		result.InferenceTimeMs,
		result.ModelVersion,
	)

	if err != nil {
		return fmt.Errorf("failed to insert rep prediction: %w", err)
	}

	return nil
}

// UpsertDevice inserts or updates a device in the registry
func (db *ClickHouseDB) UpsertDevice(device *models.Device) error {
	ctx := context.Background()

	query := `
		INSERT INTO device_registry (device_id, name, registered_at, last_seen, is_active)
		VALUES (?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		device.DeviceID,
		device.Name,
		device.RegisteredAt,
		device.LastSeen,
		device.IsActive,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}

	return nil
}

// GetRecentReps returns the latest rep results of a device, newest first
func (db *ClickHouseDB) GetRecentReps(deviceID string, limit int) ([]models.RepResult, error) {
	ctx := context.Background()

	query := `
		SELECT timestamp, device_id, session_id, rep_index, start_time, end_time, label, confidence, inference_time_ms, model_version
		FROM rep_predictions
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rep predictions: %w", err)
	}
	defer rows.Close()

	var results []models.RepResult
	for rows.Next() {
		var r models.RepResult
		var index uint32
		if err := rows.Scan(&r.Timestamp, &r.DeviceID, &r.SessionID, &index, &r.StartTime, &r.EndTime,
			&r.Label, &r.Confidence, &r.InferenceTimeMs, &r.ModelVersion); err != nil {
			return nil, fmt.Errorf("failed to scan rep prediction: %w", err)
		}
		r.Index = int(index)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rep predictions: %w", err)
	}

	return results, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
