package app

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

func record(lat, lon, speed float64) flight.TelemetryRecord {
	return flight.TelemetryRecord{Latitude: &lat, Longitude: &lon, Speed: &speed}
}

func TestProjection_FitsWithinMargins(t *testing.T) {
	records := []flight.TelemetryRecord{
		record(-33.8688, 151.2093, 0),
		record(-33.8720, 151.2150, 5),
		record(-33.8700, 151.2200, 8),
	}

	const width, height = 800, 600
	proj, err := newProjection(records, width, height)
	require.NoError(t, err)

	for _, r := range records {
		pt := proj.point(*r.Latitude, *r.Longitude)
		assert.GreaterOrEqual(t, pt.X, trackMargin-1)
		assert.LessOrEqual(t, pt.X, width-trackMargin+1)
		assert.GreaterOrEqual(t, pt.Y, trackMargin-1)
		assert.LessOrEqual(t, pt.Y, height-trackMargin+1)
	}

	// North must map above south.
	north := proj.point(-33.8688, 151.2093)
	south := proj.point(-33.8720, 151.2093)
	assert.Less(t, north.Y, south.Y)
}

func TestProjection_HoverDoesNotBlowUp(t *testing.T) {
	records := []flight.TelemetryRecord{
		record(-33.8688, 151.2093, 0),
		record(-33.8688, 151.2093, 0),
	}

	proj, err := newProjection(records, 400, 400)
	require.NoError(t, err)
	assert.False(t, proj.scale <= 0)

	pt := proj.point(-33.8688, 151.2093)
	assert.True(t, pt.In(image.Rect(0, 0, 400, 400)))
}

func TestRenderTrack_NoPositions(t *testing.T) {
	records := []flight.TelemetryRecord{{TimestampMS: 1000}}

	_, _, err := renderTrack(records, &flight.Stats{}, 400, 400)
	assert.ErrorIs(t, err, errNoTrack)
}

func TestRenderTrack_DrawsSegments(t *testing.T) {
	records := []flight.TelemetryRecord{
		record(-33.8688, 151.2093, 1),
		record(-33.8690, 151.2095, 6),
	}
	stats := &flight.Stats{MaxSpeedMS: 6, HomeLocation: &[2]float64{-33.8688, 151.2093}}

	img, proj, err := renderTrack(records, stats, 400, 400)
	require.NoError(t, err)
	require.NotNil(t, proj)

	// At least the two endpoints must differ from the background.
	for _, r := range records {
		pt := proj.point(*r.Latitude, *r.Longitude)
		assert.NotEqual(t, backgroundColor, img.RGBAAt(pt.X, pt.Y))
	}
}
