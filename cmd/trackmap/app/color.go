package app

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	hueStart = 236.0 // slow, blue
	hueEnd   = 0.0   // fast, red

	colorMapSize = 256
)

// noSpeedColor marks samples without a speed reading.
var noSpeedColor = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}

// SpeedMapper maps ground speed onto a blue-to-red gradient using a
// pre-computed lookup table.
type SpeedMapper struct {
	colorMap      []color.Color
	maxSpeed      float64
	speedPerIndex float64
}

func NewSpeedMapper(maxSpeed float64) *SpeedMapper {
	if maxSpeed <= 0 {
		maxSpeed = 1
	}

	sm := &SpeedMapper{
		colorMap:      make([]color.Color, colorMapSize),
		maxSpeed:      maxSpeed,
		speedPerIndex: maxSpeed / float64(colorMapSize-1),
	}
	for i := range sm.colorMap {
		normalized := float64(i) / float64(colorMapSize-1)
		hue := hueStart - (normalized * (hueStart - hueEnd))
		sm.colorMap[i] = colorful.Hsv(hue, 1, 0.90)
	}
	return sm
}

func (sm *SpeedMapper) GetColor(speed *float64) color.Color {
	if speed == nil {
		return noSpeedColor
	}

	index := int(*speed / sm.speedPerIndex)
	if index < 0 {
		return sm.colorMap[0]
	}
	if index >= colorMapSize {
		return sm.colorMap[colorMapSize-1]
	}
	return sm.colorMap[index]
}
