// Package flight holds the domain model shared by the log decoder, the
// storage layer and the HTTP surface: raw telemetry samples, per-flight
// metadata and the read-side projections consumed by the viewer.
package flight

import (
	"time"
)

// Metadata is one row per imported log file. It is created once at import
// time and never mutated afterwards; re-importing identical bytes is
// detected through FileHash.
type Metadata struct {
	ID          int64
	FileName    string
	FileHash    string
	DroneModel  string
	DroneSerial string

	StartTime *time.Time
	EndTime   *time.Time

	DurationSecs  *float64
	TotalDistance *float64 // Cumulative ground track in meters
	MaxAltitude   *float64 // Meters relative to takeoff
	MaxSpeed      *float64 // m/s
	AvgSpeed      *float64 // m/s
	MinBattery    *int64   // Percent

	HomeLatitude  *float64
	HomeLongitude *float64

	PointCount int64
}

// TelemetryPoint is one decoded sample. The source format emits sparse
// updates, so every field except the timestamp is optional; absent means
// the value was never reported up to this sample.
type TelemetryPoint struct {
	TimestampMS int64 // Unix epoch milliseconds

	Latitude    *float64 // GPS latitude in degrees
	Longitude   *float64 // GPS longitude in degrees
	Altitude    *float64 // Altitude relative to takeoff in meters
	AltitudeAbs *float64 // Absolute (ASL) altitude in meters

	Speed     *float64 // Ground speed in m/s
	VelocityX *float64 // North velocity component in m/s
	VelocityY *float64 // East velocity component in m/s
	VelocityZ *float64 // Vertical velocity component in m/s

	Pitch *float64 // Pitch angle in degrees
	Roll  *float64 // Roll angle in degrees
	Yaw   *float64 // Yaw angle in degrees

	GimbalPitch *float64 // Gimbal pitch in degrees
	GimbalRoll  *float64 // Gimbal roll in degrees
	GimbalYaw   *float64 // Gimbal yaw in degrees

	BatteryPercent *int64   // Remaining charge in percent
	BatteryVoltage *float64 // Pack voltage in volts
	BatteryCurrent *float64 // Pack current in amperes
	BatteryTemp    *float64 // Pack temperature in °C

	FlightMode *string // Firmware flight mode name
	GPSSignal  *int64  // GPS signal level 0..5
	Satellites *int64  // Locked satellite count
	RCSignal   *int64  // Remote controller link quality in percent
}

// HasFix reports whether the point carries a usable GPS position.
func (p *TelemetryPoint) HasFix() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// ImportResult is the transient outcome of one import attempt. It is
// returned to the caller and never persisted.
type ImportResult struct {
	Success    bool   `json:"success"`
	FlightID   *int64 `json:"flightId"`
	Message    string `json:"message"`
	PointCount int    `json:"pointCount"`
	Warnings   int    `json:"warnings,omitempty"`
}
