package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	FlightID      int64
	OutputFile    string
	Format        ImageFormat
	Width         int
	Height        int
	FontFile      string
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
		Width:  1600,
		Height: 1200,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat string
	flag.StringVar(&c.DBPath, "db", "", "Path to the database file")
	flag.Int64Var(&c.FlightID, "id", 1, "Flight ID")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.IntVar(&c.Width, "w", c.Width, "Image width in pixels")
	flag.IntVar(&c.Height, "h", c.Height, "Image height in pixels")
	flag.StringVar(&c.FontFile, "font", "", "Path to a TTF font used for annotations")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable flight info and scale annotations")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.FlightID <= 0 {
		err = errors.New("flight id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if c.Width < 200 || c.Height < 200 {
		err = errors.New("image must be at least 200x200 pixels")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if !c.NoAnnotations && c.FontFile == "" {
		err = errors.New("a font file is required for annotations, pass -font or -no-annotations")
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
