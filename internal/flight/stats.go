package flight

import (
	"math"
)

// Mean Earth radius in meters, per IUGG.
const earthRadiusM = 6371008.8

// Haversine returns the great-circle distance in meters between two
// WGS84 coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ComputeStats derives the aggregate flight statistics from a time-ordered
// point sequence. Total distance sums great-circle legs between consecutive
// points that both carry a GPS fix; points without a fix neither contribute
// nor break the chain.
func ComputeStats(points []TelemetryPoint) Stats {
	var stats Stats

	if len(points) == 0 {
		return stats
	}

	stats.DurationSecs = float64(points[len(points)-1].TimestampMS-points[0].TimestampMS) / 1000.0

	var prev *TelemetryPoint
	var haveBattery bool
	for i := range points {
		p := &points[i]

		if p.Altitude != nil && *p.Altitude > stats.MaxAltitudeM {
			stats.MaxAltitudeM = *p.Altitude
		}
		if p.Speed != nil && *p.Speed > stats.MaxSpeedMS {
			stats.MaxSpeedMS = *p.Speed
		}
		if p.BatteryPercent != nil && (!haveBattery || *p.BatteryPercent < stats.MinBattery) {
			stats.MinBattery = *p.BatteryPercent
			haveBattery = true
		}

		if !p.HasFix() {
			continue
		}
		if prev != nil {
			stats.TotalDistanceM += Haversine(*prev.Latitude, *prev.Longitude, *p.Latitude, *p.Longitude)
		}
		prev = p
	}

	if stats.DurationSecs > 0 {
		stats.AvgSpeedMS = stats.TotalDistanceM / stats.DurationSecs
	}
	return stats
}

// ApplyStats copies computed statistics into a metadata draft, filling the
// derived columns stored alongside the flight row.
func ApplyStats(meta *Metadata, stats Stats, pointCount int) {
	meta.PointCount = int64(pointCount)

	if pointCount == 0 {
		return
	}

	duration := stats.DurationSecs
	distance := stats.TotalDistanceM
	maxAlt := stats.MaxAltitudeM
	maxSpeed := stats.MaxSpeedMS
	avgSpeed := stats.AvgSpeedMS
	minBattery := stats.MinBattery

	meta.DurationSecs = &duration
	meta.TotalDistance = &distance
	meta.MaxAltitude = &maxAlt
	meta.MaxSpeed = &maxSpeed
	meta.AvgSpeed = &avgSpeed
	meta.MinBattery = &minBattery
}
