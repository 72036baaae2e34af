package storage

import (
	"database/sql"
	"time"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil && cErr != sql.ErrTxDone {
		*err = cErr
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toFlight(r *flightRow) flight.Flight {
	f := flight.Flight{
		ID:            r.ID,
		FileName:      r.FileName,
		DroneModel:    r.DroneModel.String,
		DroneSerial:   r.DroneSerial.String,
		DurationSecs:  floatPtr(r.DurationSecs),
		TotalDistance: floatPtr(r.TotalDistance),
		MaxAltitude:   floatPtr(r.MaxAltitude),
		MaxSpeed:      floatPtr(r.MaxSpeed),
		PointCount:    r.PointCount,
	}
	if r.StartTime.Valid {
		s := r.StartTime.Time.UTC().Format(time.RFC3339)
		f.StartTime = &s
	}
	return f
}

func toTelemetryRecord(r *telemetryRow) flight.TelemetryRecord {
	return flight.TelemetryRecord{
		TimestampMS:    r.TimestampMS,
		Latitude:       floatPtr(r.Latitude),
		Longitude:      floatPtr(r.Longitude),
		Altitude:       floatPtr(r.Altitude),
		Speed:          floatPtr(r.Speed),
		BatteryPercent: intPtr(r.BatteryPercent),
		Pitch:          floatPtr(r.Pitch),
		Roll:           floatPtr(r.Roll),
		Yaw:            floatPtr(r.Yaw),
		Satellites:     intPtr(r.Satellites),
		FlightMode:     stringPtr(r.FlightMode),
	}
}

func toTelemetryRow(flightID int64, p *flight.TelemetryPoint) *telemetryRow {
	return &telemetryRow{
		FlightID:       flightID,
		TimestampMS:    p.TimestampMS,
		Latitude:       nullFloat(p.Latitude),
		Longitude:      nullFloat(p.Longitude),
		Altitude:       nullFloat(p.Altitude),
		AltitudeAbs:    nullFloat(p.AltitudeAbs),
		Speed:          nullFloat(p.Speed),
		VelocityX:      nullFloat(p.VelocityX),
		VelocityY:      nullFloat(p.VelocityY),
		VelocityZ:      nullFloat(p.VelocityZ),
		Pitch:          nullFloat(p.Pitch),
		Roll:           nullFloat(p.Roll),
		Yaw:            nullFloat(p.Yaw),
		GimbalPitch:    nullFloat(p.GimbalPitch),
		GimbalRoll:     nullFloat(p.GimbalRoll),
		GimbalYaw:      nullFloat(p.GimbalYaw),
		BatteryPercent: nullInt(p.BatteryPercent),
		BatteryVoltage: nullFloat(p.BatteryVoltage),
		BatteryCurrent: nullFloat(p.BatteryCurrent),
		BatteryTemp:    nullFloat(p.BatteryTemp),
		FlightMode:     nullString(p.FlightMode),
		GPSSignal:      nullInt(p.GPSSignal),
		Satellites:     nullInt(p.Satellites),
		RCSignal:       nullInt(p.RCSignal),
	}
}
