package storage

import (
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const (
	selectFlightIDByHashSQL = `
SELECT
    id
FROM flights
WHERE
    file_hash = ?`

	insertFlightSQL = `
INSERT INTO flights (file_name,
                     file_hash,
                     drone_model,
                     drone_serial,
                     start_time,
                     end_time,
                     duration_secs,
                     total_distance,
                     max_altitude,
                     max_speed,
                     avg_speed,
                     min_battery,
                     home_lat,
                     home_lon,
                     point_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertTelemetrySQL = `
INSERT INTO telemetry (flight_id,
                       timestamp_ms,
                       latitude,
                       longitude,
                       altitude,
                       altitude_abs,
                       speed,
                       velocity_x,
                       velocity_y,
                       velocity_z,
                       pitch,
                       roll,
                       yaw,
                       gimbal_pitch,
                       gimbal_roll,
                       gimbal_yaw,
                       battery_percent,
                       battery_voltage,
                       battery_current,
                       battery_temp,
                       flight_mode,
                       gps_signal,
                       satellites,
                       rc_signal)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectFlightSQL = `
SELECT
    id,
    file_name,
    drone_model,
    drone_serial,
    start_time,
    duration_secs,
    total_distance,
    max_altitude,
    max_speed,
    point_count
FROM flights
WHERE
    id = ?`

	selectFlightsSQL = `
SELECT
    id,
    file_name,
    drone_model,
    drone_serial,
    start_time,
    duration_secs,
    total_distance,
    max_altitude,
    max_speed,
    point_count
FROM flights
ORDER BY
    start_time IS NULL,
    start_time DESC,
    id DESC`

	selectTelemetrySQL = `
SELECT
    timestamp_ms,
    latitude,
    longitude,
    altitude,
    speed,
    battery_percent,
    pitch,
    roll,
    yaw,
    satellites,
    flight_mode
FROM telemetry
WHERE
    flight_id = ?
ORDER BY
    timestamp_ms`

	selectStatsSQL = `
SELECT
    duration_secs,
    total_distance,
    max_altitude,
    max_speed,
    avg_speed,
    min_battery,
    home_lat,
    home_lon
FROM flights
WHERE
    id = ?`

	deleteTelemetrySQL = `DELETE FROM telemetry WHERE flight_id = ?`
	deleteFlightSQL    = `DELETE FROM flights WHERE id = ?`
)
