package storage

import (
	"database/sql"
)

type flightRow struct {
	ID            int64
	FileName      string
	FileHash      string
	DroneModel    sql.NullString
	DroneSerial   sql.NullString
	StartTime     sql.NullTime
	EndTime       sql.NullTime
	DurationSecs  sql.NullFloat64
	TotalDistance sql.NullFloat64
	MaxAltitude   sql.NullFloat64
	MaxSpeed      sql.NullFloat64
	AvgSpeed      sql.NullFloat64
	MinBattery    sql.NullInt64
	HomeLat       sql.NullFloat64
	HomeLon       sql.NullFloat64
	PointCount    int64
}

type telemetryRow struct {
	ID             int64
	FlightID       int64
	TimestampMS    int64
	Latitude       sql.NullFloat64
	Longitude      sql.NullFloat64
	Altitude       sql.NullFloat64
	AltitudeAbs    sql.NullFloat64
	Speed          sql.NullFloat64
	VelocityX      sql.NullFloat64
	VelocityY      sql.NullFloat64
	VelocityZ      sql.NullFloat64
	Pitch          sql.NullFloat64
	Roll           sql.NullFloat64
	Yaw            sql.NullFloat64
	GimbalPitch    sql.NullFloat64
	GimbalRoll     sql.NullFloat64
	GimbalYaw      sql.NullFloat64
	BatteryPercent sql.NullInt64
	BatteryVoltage sql.NullFloat64
	BatteryCurrent sql.NullFloat64
	BatteryTemp    sql.NullFloat64
	FlightMode     sql.NullString
	GPSSignal      sql.NullInt64
	Satellites     sql.NullInt64
	RCSignal       sql.NullInt64
}
