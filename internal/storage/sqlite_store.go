package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// SqliteStore implements Store on a single SQLite database file. Writes go
// through a WAL connection, reads through a separate read-only connection,
// so queries of other flights proceed concurrently with an in-progress
// import.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened lazily; the schema is initialized on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		// SQLite allows one writer; serialize write transactions in the
		// pool instead of bouncing on SQLITE_BUSY.
		db.SetMaxOpenConns(1)

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	// The write connection goes first so the schema exists before any
	// read-only open.
	if _, err := s.getWriteDB(); err != nil {
		return nil, err
	}

	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro&_journal_mode=WAL"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) FlightIDByHash(ctx context.Context, hash string) (id int64, found bool, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	switch err = db.QueryRowContext(ctx, selectFlightIDByHashSQL, hash).Scan(&id); {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		err = fmt.Errorf("querying flight by hash: %w", err)
	default:
		found = true
	}
	return
}

func (s *SqliteStore) ImportFlight(ctx context.Context, meta *flight.Metadata, points []flight.TelemetryPoint) (flightID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertFlightSQL,
		meta.FileName,
		meta.FileHash,
		nullStr(meta.DroneModel),
		nullStr(meta.DroneSerial),
		nullTime(meta.StartTime),
		nullTime(meta.EndTime),
		nullFloat(meta.DurationSecs),
		nullFloat(meta.TotalDistance),
		nullFloat(meta.MaxAltitude),
		nullFloat(meta.MaxSpeed),
		nullFloat(meta.AvgSpeed),
		nullInt(meta.MinBattery),
		nullFloat(meta.HomeLatitude),
		nullFloat(meta.HomeLongitude),
		int64(len(points)),
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: hash %s", ErrDuplicateFlight, meta.FileHash)
			return
		}
		err = fmt.Errorf("inserting flight: %w", err)
		return
	}

	if flightID, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting flight ID: %w", err)
		return
	}

	stmt, err := tx.PrepareContext(ctx, insertTelemetrySQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	for i := range points {
		row := toTelemetryRow(flightID, &points[i])
		if _, err = stmt.ExecContext(ctx,
			row.FlightID,
			row.TimestampMS,
			row.Latitude,
			row.Longitude,
			row.Altitude,
			row.AltitudeAbs,
			row.Speed,
			row.VelocityX,
			row.VelocityY,
			row.VelocityZ,
			row.Pitch,
			row.Roll,
			row.Yaw,
			row.GimbalPitch,
			row.GimbalRoll,
			row.GimbalYaw,
			row.BatteryPercent,
			row.BatteryVoltage,
			row.BatteryCurrent,
			row.BatteryTemp,
			row.FlightMode,
			row.GPSSignal,
			row.Satellites,
			row.RCSignal,
		); err != nil {
			err = fmt.Errorf("inserting telemetry: %w", err)
			return
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing transaction: %w", err)
	}
	return
}

func (s *SqliteStore) Flights(ctx context.Context) (flights []flight.Flight, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectFlightsSQL)
	if err != nil {
		err = fmt.Errorf("querying flights: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r flightRow
		if err = scanFlightSummary(rows, &r); err != nil {
			err = fmt.Errorf("scanning flight: %w", err)
			return
		}
		flights = append(flights, toFlight(&r))
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) Flight(ctx context.Context, id int64) (*flight.Flight, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var r flightRow
	switch err = scanFlightSummary(db.QueryRowContext(ctx, selectFlightSQL, id), &r); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("scanning flight: %w", err)
	}

	f := toFlight(&r)
	return &f, nil
}

func (s *SqliteStore) Telemetry(ctx context.Context, id int64) (records []flight.TelemetryRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectTelemetrySQL, id)
	if err != nil {
		err = fmt.Errorf("querying telemetry: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r telemetryRow
		if err = rows.Scan(
			&r.TimestampMS,
			&r.Latitude,
			&r.Longitude,
			&r.Altitude,
			&r.Speed,
			&r.BatteryPercent,
			&r.Pitch,
			&r.Roll,
			&r.Yaw,
			&r.Satellites,
			&r.FlightMode,
		); err != nil {
			err = fmt.Errorf("scanning telemetry: %w", err)
			return
		}
		records = append(records, toTelemetryRecord(&r))
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) FlightData(ctx context.Context, id int64) (*flight.DataResponse, error) {
	f, err := s.Flight(ctx, id)
	if err != nil {
		return nil, err
	}

	records, err := s.Telemetry(ctx, id)
	if err != nil {
		return nil, err
	}

	return &flight.DataResponse{
		Flight:    *f,
		Telemetry: flight.NewTelemetryData(records),
		Track:     flight.NewTrack(records),
	}, nil
}

func (s *SqliteStore) Stats(ctx context.Context, id int64) (*flight.Stats, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var (
		duration, distance, maxAlt, maxSpeed, avgSpeed sql.NullFloat64
		minBattery                                     sql.NullInt64
		homeLat, homeLon                               sql.NullFloat64
	)
	switch err = db.QueryRowContext(ctx, selectStatsSQL, id).Scan(
		&duration, &distance, &maxAlt, &maxSpeed, &avgSpeed, &minBattery, &homeLat, &homeLon,
	); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("scanning stats: %w", err)
	}

	stats := flight.Stats{
		DurationSecs:   duration.Float64,
		TotalDistanceM: distance.Float64,
		MaxAltitudeM:   maxAlt.Float64,
		MaxSpeedMS:     maxSpeed.Float64,
		AvgSpeedMS:     avgSpeed.Float64,
		MinBattery:     minBattery.Int64,
	}
	if homeLat.Valid && homeLon.Valid {
		stats.HomeLocation = &[2]float64{homeLat.Float64, homeLon.Float64}
	}
	return &stats, nil
}

func (s *SqliteStore) DeleteFlight(ctx context.Context, id int64) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if _, err = tx.ExecContext(ctx, deleteTelemetrySQL, id); err != nil {
		return fmt.Errorf("deleting telemetry: %w", err)
	}

	result, err := tx.ExecContext(ctx, deleteFlightSQL, id)
	if err != nil {
		return fmt.Errorf("deleting flight: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlightSummary(row rowScanner, r *flightRow) error {
	return row.Scan(
		&r.ID,
		&r.FileName,
		&r.DroneModel,
		&r.DroneSerial,
		&r.StartTime,
		&r.DurationSecs,
		&r.TotalDistance,
		&r.MaxAltitude,
		&r.MaxSpeed,
		&r.PointCount,
	)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
