// Package sqlite implements the reading and alert stores on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	timestamp        INTEGER PRIMARY KEY,
	water_level_rise REAL NOT NULL,
	lake_temperature REAL NOT NULL,
	air_temperature  REAL NOT NULL,
	sensor_battery   INTEGER NOT NULL,
	sensor_status    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	message    TEXT NOT NULL,
	created_by TEXT NOT NULL,
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);`

// Store persists readings and alerts. It satisfies domain.ReadingStore and
// domain.AlertStore.
type Store struct {
	db *sql.DB
}

var (
	_ domain.ReadingStore = (*Store)(nil)
	_ domain.AlertStore   = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveReading inserts r, replacing any reading with the same timestamp.
func (s *Store) SaveReading(ctx context.Context, r domain.Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings(timestamp, water_level_rise, lake_temperature, air_temperature, sensor_battery, sensor_status)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(timestamp) DO UPDATE SET
			water_level_rise=excluded.water_level_rise,
			lake_temperature=excluded.lake_temperature,
			air_temperature=excluded.air_temperature,
			sensor_battery=excluded.sensor_battery,
			sensor_status=excluded.sensor_status`,
		r.Timestamp, r.WaterLevelRise, r.LakeTemperature, r.AirTemperature, r.SensorBattery, string(r.SensorStatus),
	)
	if err != nil {
		return fmt.Errorf("save reading %d: %w", r.Timestamp, err)
	}
	return nil
}

// PreviousReading returns the latest reading strictly older than beforeMillis.
func (s *Store) PreviousReading(ctx context.Context, beforeMillis int64) (domain.Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT timestamp, water_level_rise, lake_temperature, air_temperature, sensor_battery, sensor_status
		FROM readings
		WHERE timestamp < ?
		ORDER BY timestamp DESC
		LIMIT 1`, beforeMillis)

	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reading{}, domain.ErrReadingNotFound
	}
	if err != nil {
		return domain.Reading{}, fmt.Errorf("previous reading before %d: %w", beforeMillis, err)
	}
	return r, nil
}

// FetchRecent returns at most n of the newest readings, oldest first.
func (s *Store) FetchRecent(ctx context.Context, n int) ([]domain.Reading, error) {
	if n <= 0 {
		return []domain.Reading{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, water_level_rise, lake_temperature, air_temperature, sensor_battery, sensor_status
		FROM (
			SELECT * FROM readings ORDER BY timestamp DESC LIMIT ?
		)
		ORDER BY timestamp ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("fetch recent readings: %w", err)
	}
	defer rows.Close()

	readings := make([]domain.Reading, 0, n)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return readings, nil
}

// DeleteReadingsBefore removes readings older than cutoff.
func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete readings before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SaveAlert stores a.
func (s *Store) SaveAlert(ctx context.Context, a domain.Alert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts(id, message, created_by, timestamp) VALUES(?, ?, ?, ?)`,
		a.ID, a.Message, a.CreatedBy, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save alert %s: %w", a.ID, err)
	}
	return nil
}

// ListAlerts returns at most limit alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, created_by, timestamp
		FROM alerts
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []domain.Alert{}
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.Message, &a.CreatedBy, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(sc scanner) (domain.Reading, error) {
	var (
		r      domain.Reading
		status string
	)
	if err := sc.Scan(&r.Timestamp, &r.WaterLevelRise, &r.LakeTemperature, &r.AirTemperature, &r.SensorBattery, &status); err != nil {
		return domain.Reading{}, err
	}
	r.SensorStatus = domain.SensorStatus(status)
	return r, nil
}
