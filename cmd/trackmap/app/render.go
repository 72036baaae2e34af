package app

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

const (
	trackMargin    = 60 // pixels kept clear around the track
	trackThickness = 2

	homeMarkerRadius  = 8
	startMarkerRadius = 5
)

var (
	backgroundColor = color.RGBA{R: 0x10, G: 0x10, B: 0x14, A: 0xff}
	homeColor       = color.RGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}
	startColor      = color.RGBA{G: 0xc8, B: 0x50, A: 0xff}
	endColor        = color.RGBA{R: 0xe0, G: 0x40, B: 0x40, A: 0xff}

	errNoTrack = errors.New("flight has no positioned telemetry")
)

// projection maps geographic coordinates onto image pixels. It is a flat
// equirectangular fit: longitude is scaled by cos(midLat) so tracks keep
// their shape at the flight's latitude, which is plenty for the few
// kilometres a battery allows.
type projection struct {
	minLat, maxLat float64
	minLon, maxLon float64
	lonScale       float64

	scale   float64
	offsetX float64
	offsetY float64
}

func newProjection(records []flight.TelemetryRecord, width, height int) (*projection, error) {
	p := projection{
		minLat: math.Inf(1), maxLat: math.Inf(-1),
		minLon: math.Inf(1), maxLon: math.Inf(-1),
	}

	var positioned int
	for _, r := range records {
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}
		positioned++
		p.minLat = math.Min(p.minLat, *r.Latitude)
		p.maxLat = math.Max(p.maxLat, *r.Latitude)
		p.minLon = math.Min(p.minLon, *r.Longitude)
		p.maxLon = math.Max(p.maxLon, *r.Longitude)
	}
	if positioned == 0 {
		return nil, errNoTrack
	}

	midLat := (p.minLat + p.maxLat) / 2
	p.lonScale = math.Cos(midLat * math.Pi / 180)

	spanX := (p.maxLon - p.minLon) * p.lonScale
	spanY := p.maxLat - p.minLat

	// A hover produces a zero-area bounding box; give it a nominal span so
	// the scale stays finite.
	const minSpan = 1e-5
	spanX = math.Max(spanX, minSpan)
	spanY = math.Max(spanY, minSpan)

	fitW := float64(width - 2*trackMargin)
	fitH := float64(height - 2*trackMargin)
	p.scale = math.Min(fitW/spanX, fitH/spanY)

	// Center the track within the margins.
	p.offsetX = (fitW-spanX*p.scale)/2 + trackMargin
	p.offsetY = (fitH-spanY*p.scale)/2 + trackMargin

	return &p, nil
}

// point converts a coordinate to pixel space. Y grows downwards, so
// latitude is flipped.
func (p *projection) point(lat, lon float64) image.Point {
	x := (lon-p.minLon)*p.lonScale*p.scale + p.offsetX
	y := (p.maxLat-lat)*p.scale + p.offsetY
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

// metersPerPixel derives the ground resolution from the projection scale.
func (p *projection) metersPerPixel() float64 {
	const metersPerDegree = 111_194.9 // mean earth, 2*pi*R/360
	return metersPerDegree / p.scale
}

// renderTrack draws the flight path colored by ground speed, plus home,
// start and end markers.
func renderTrack(records []flight.TelemetryRecord, stats *flight.Stats, width, height int) (*image.RGBA, *projection, error) {
	proj, err := newProjection(records, width, height)
	if err != nil {
		return nil, nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	mapper := NewSpeedMapper(stats.MaxSpeedMS)

	var prev *image.Point
	var prevSpeed *float64
	var first, last image.Point
	var havePoints bool

	for i := range records {
		r := &records[i]
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}

		pt := proj.point(*r.Latitude, *r.Longitude)
		if !havePoints {
			first, havePoints = pt, true
		}
		last = pt

		if prev != nil {
			// Color each segment by the speed at its start.
			drawLine(img, *prev, pt, mapper.GetColor(prevSpeed), trackThickness)
		}
		prev, prevSpeed = &pt, r.Speed
	}

	if stats.HomeLocation != nil {
		home := proj.point(stats.HomeLocation[0], stats.HomeLocation[1])
		drawMarker(img, home, homeMarkerRadius, homeColor)
	}
	if havePoints {
		drawMarker(img, first, startMarkerRadius, startColor)
		drawMarker(img, last, startMarkerRadius, endColor)
	}

	return img, proj, nil
}

// drawLine rasterizes a segment with Bresenham's algorithm, stamping a
// small square at each step for thickness.
func drawLine(img *image.RGBA, from, to image.Point, c color.Color, thickness int) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)

	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}

	x, y := from.X, from.Y
	e := dx + dy
	for {
		stamp(img, x, y, thickness, c)
		if x == to.X && y == to.Y {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x += sx
		} else {
			e += dx
			y += sy
		}
	}
}

func drawMarker(img *image.RGBA, at image.Point, radius int, c color.Color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				img.Set(at.X+dx, at.Y+dy, c)
			}
		}
	}
}

func stamp(img *image.RGBA, x, y, thickness int, c color.Color) {
	for dy := 0; dy < thickness; dy++ {
		for dx := 0; dx < thickness; dx++ {
			img.Set(x+dx, y+dy, c)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
