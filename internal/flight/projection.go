package flight

// Flight is the summary projection used by the flight list.
type Flight struct {
	ID            int64    `json:"id"`
	FileName      string   `json:"fileName"`
	DroneModel    string   `json:"droneModel,omitempty"`
	DroneSerial   string   `json:"droneSerial,omitempty"`
	StartTime     *string  `json:"startTime"`
	DurationSecs  *float64 `json:"durationSecs"`
	TotalDistance *float64 `json:"totalDistance"`
	MaxAltitude   *float64 `json:"maxAltitude"`
	MaxSpeed      *float64 `json:"maxSpeed"`
	PointCount    int64    `json:"pointCount"`
}

// TelemetryRecord is the per-sample projection backing the chart series.
type TelemetryRecord struct {
	TimestampMS    int64    `json:"timestampMs"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Altitude       *float64 `json:"altitude"`
	Speed          *float64 `json:"speed"`
	BatteryPercent *int64   `json:"batteryPercent"`
	Pitch          *float64 `json:"pitch"`
	Roll           *float64 `json:"roll"`
	Yaw            *float64 `json:"yaw"`
	Satellites     *int64   `json:"satellites"`
	FlightMode     *string  `json:"flightMode"`
}

// TelemetryData is the field-of-arrays projection for charting. All slices
// share the same length and index; Time is seconds relative to the first
// sample of the flight.
type TelemetryData struct {
	Time       []float64  `json:"time"`
	Altitude   []*float64 `json:"altitude"`
	Speed      []*float64 `json:"speed"`
	Battery    []*int64   `json:"battery"`
	Satellites []*int64   `json:"satellites"`
	Pitch      []*float64 `json:"pitch"`
	Roll       []*float64 `json:"roll"`
	Yaw        []*float64 `json:"yaw"`
}

// DataResponse bundles everything the viewer needs to render one flight:
// the summary, the chart series and the [lng, lat, alt] map track.
type DataResponse struct {
	Flight    Flight        `json:"flight"`
	Telemetry TelemetryData `json:"telemetry"`
	Track     [][3]float64  `json:"track"`
}

// Stats is the aggregate projection computed at import time.
type Stats struct {
	DurationSecs   float64     `json:"durationSecs"`
	TotalDistanceM float64     `json:"totalDistanceM"`
	MaxAltitudeM   float64     `json:"maxAltitudeM"`
	MaxSpeedMS     float64     `json:"maxSpeedMs"`
	AvgSpeedMS     float64     `json:"avgSpeedMs"`
	MinBattery     int64       `json:"minBattery"`
	HomeLocation   *[2]float64 `json:"homeLocation"`
}

// NewTelemetryData converts time-ordered records into the field-of-arrays
// layout. The time axis is relative to the first record.
func NewTelemetryData(records []TelemetryRecord) TelemetryData {
	data := TelemetryData{
		Time:       make([]float64, len(records)),
		Altitude:   make([]*float64, len(records)),
		Speed:      make([]*float64, len(records)),
		Battery:    make([]*int64, len(records)),
		Satellites: make([]*int64, len(records)),
		Pitch:      make([]*float64, len(records)),
		Roll:       make([]*float64, len(records)),
		Yaw:        make([]*float64, len(records)),
	}
	if len(records) == 0 {
		return data
	}

	base := records[0].TimestampMS
	for i, r := range records {
		data.Time[i] = float64(r.TimestampMS-base) / 1000.0
		data.Altitude[i] = r.Altitude
		data.Speed[i] = r.Speed
		data.Battery[i] = r.BatteryPercent
		data.Satellites[i] = r.Satellites
		data.Pitch[i] = r.Pitch
		data.Roll[i] = r.Roll
		data.Yaw[i] = r.Yaw
	}
	return data
}

// NewTrack extracts the [lng, lat, alt] map track from time-ordered records.
// Records without a position are skipped; altitude defaults to zero when
// unknown so the track stays renderable.
func NewTrack(records []TelemetryRecord) [][3]float64 {
	track := make([][3]float64, 0, len(records))
	for _, r := range records {
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}
		var alt float64
		if r.Altitude != nil {
			alt = *r.Altitude
		}
		track = append(track, [3]float64{*r.Longitude, *r.Latitude, alt})
	}
	return track
}
