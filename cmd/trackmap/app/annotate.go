package app

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

const (
	dpi     float64 = 72
	size    float64 = 16
	spacing float64 = 1.1
)

type Annotator struct {
	context *freetype.Context
}

func NewAnnotator(fontFile string) (*Annotator, error) {
	fontBytes, err := os.ReadFile(fontFile)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetSrc(image.White)
	context.SetHinting(font.HintingFull)

	return &Annotator{context: context}, nil
}

func (a *Annotator) Annotate(img *image.RGBA, f *flight.Flight, stats *flight.Stats, proj *projection) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawInfo(img, f, stats); err != nil {
		return fmt.Errorf("drawing info: %w", err)
	}
	if err := a.drawScaleBar(img, proj); err != nil {
		return fmt.Errorf("drawing scale bar: %w", err)
	}
	return nil
}

func (a *Annotator) drawInfo(img *image.RGBA, f *flight.Flight, stats *flight.Stats) error {
	title := f.FileName
	if f.DroneModel != "" {
		title = fmt.Sprintf("%s (%s)", title, f.DroneModel)
	}

	start := "unknown start time"
	if f.StartTime != nil {
		start = *f.StartTime
	}

	lines := []string{
		title,
		"Start: " + start,
		"Duration: " + (time.Duration(stats.DurationSecs * float64(time.Second))).Round(time.Second).String(),
		fmt.Sprintf("Distance: %s", humanMeters(stats.TotalDistanceM)),
		fmt.Sprintf("Max altitude: %0.1f m", stats.MaxAltitudeM),
		fmt.Sprintf("Max speed: %0.1f m/s", stats.MaxSpeedMS),
	}

	pt := freetype.Pt(10, 10+int(a.context.PointToFixed(size)>>6))
	for _, s := range lines {
		if _, err := a.context.DrawString(s, pt); err != nil {
			return err
		}
		pt.Y += a.context.PointToFixed(size * spacing)
	}
	return nil
}

// drawScaleBar puts a ground-distance reference in the bottom left corner.
func (a *Annotator) drawScaleBar(img *image.RGBA, proj *projection) error {
	const barPixels = 150

	meters := proj.metersPerPixel() * barPixels

	imgSize := img.Bounds().Size()
	top, left := imgSize.Y-30, 10

	for i := 0; i <= barPixels; i++ {
		img.Set(left+i, top, image.White)
		img.Set(left+i, top+1, image.White)
	}
	for i := 0; i < 6; i++ {
		img.Set(left, top-i, image.White)
		img.Set(left+barPixels, top-i, image.White)
	}

	pt := freetype.Pt(left+barPixels+8, top+4)
	_, err := a.context.DrawString(humanMeters(meters), pt)
	return err
}

func humanMeters(m float64) string {
	fract, suffix := humanize.ComputeSI(m)
	return fmt.Sprintf("%0.1f %sm", fract, suffix)
}
