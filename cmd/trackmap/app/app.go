package app

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/roman-kulish/flight-log-viewer/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	f, err := store.Flight(ctx, config.FlightID)
	if err != nil {
		return fmt.Errorf("loading flight %d: %w", config.FlightID, err)
	}
	stats, err := store.Stats(ctx, config.FlightID)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	records, err := store.Telemetry(ctx, config.FlightID)
	if err != nil {
		return fmt.Errorf("loading telemetry: %w", err)
	}

	logger.Info("rendering track",
		slog.String("file", f.FileName),
		slog.Int("points", len(records)))

	img, proj, err := renderTrack(records, stats, config.Width, config.Height)
	if err != nil {
		return err
	}

	if !config.NoAnnotations {
		annotator, err := NewAnnotator(config.FontFile)
		if err != nil {
			return err
		}
		if err = annotator.Annotate(img, f, stats, proj); err != nil {
			return err
		}
	}

	if err = saveImage(img, config.OutputFile, config.Format); err != nil {
		return err
	}

	logger.Info("track image written", slog.String("path", config.OutputFile))
	return nil
}

func saveImage(img image.Image, path string, format ImageFormat) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing output file: %w", closeErr)
		}
	}()

	switch format {
	case ImageJPEG:
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	return nil
}
