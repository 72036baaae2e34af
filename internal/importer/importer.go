// Package importer drives the import pipeline: raw log bytes are hashed,
// decoded and persisted as one transactional flight.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
	"github.com/roman-kulish/flight-log-viewer/internal/logfile"
	"github.com/roman-kulish/flight-log-viewer/internal/storage"
)

// Service imports flight logs. Independent files may be imported
// concurrently; the decoder's key source coalesces credential fetches and
// the store serializes conflicting writes.
type Service struct {
	store   storage.Store
	decoder *logfile.Decoder
	logger  *slog.Logger
}

func New(store storage.Store, decoder *logfile.Decoder, logger *slog.Logger) *Service {
	return &Service{store: store, decoder: decoder, logger: logger}
}

// ImportFile imports a log file from disk.
func (s *Service) ImportFile(ctx context.Context, path string) (*flight.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	return s.Import(ctx, filepath.Base(path), data)
}

// Import decodes and persists one log. A duplicate of an already imported
// file yields ImportResult.Success == false with the existing flight id
// and no error; decode and storage failures are returned as errors and
// leave the store untouched.
func (s *Service) Import(ctx context.Context, fileName string, data []byte) (*flight.ImportResult, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if id, found, err := s.store.FlightIDByHash(ctx, hash); err != nil {
		return nil, fmt.Errorf("checking for existing flight: %w", err)
	} else if found {
		s.logger.Info("skipping duplicate import",
			slog.String("file", fileName),
			slog.Int64("flightID", id))
		return &flight.ImportResult{
			FlightID: &id,
			Message:  fmt.Sprintf("%s is already imported as flight %d", fileName, id),
		}, nil
	}

	decoded, err := s.decoder.Decode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", fileName, err)
	}

	meta := decoded.Metadata
	meta.FileName = fileName
	meta.FileHash = hash
	flight.ApplyStats(&meta, flight.ComputeStats(decoded.Points), len(decoded.Points))

	id, err := s.store.ImportFlight(ctx, &meta, decoded.Points)
	switch {
	case errors.Is(err, storage.ErrDuplicateFlight):
		// A concurrent import of the same bytes won between the hash
		// pre-check and the insert; report it the way the pre-check does.
		return s.duplicateResult(ctx, fileName, hash, err)
	case err != nil:
		return nil, fmt.Errorf("storing flight: %w", err)
	}

	s.logger.Info("imported flight",
		slog.String("file", fileName),
		slog.Int64("flightID", id),
		slog.Int("points", len(decoded.Points)),
		slog.Int("warnings", decoded.Warnings))

	message := fmt.Sprintf("imported %d telemetry points", len(decoded.Points))
	if decoded.Warnings > 0 {
		message = fmt.Sprintf("%s (%d unreadable records skipped)", message, decoded.Warnings)
	}

	return &flight.ImportResult{
		Success:    true,
		FlightID:   &id,
		Message:    message,
		PointCount: len(decoded.Points),
		Warnings:   decoded.Warnings,
	}, nil
}

// duplicateResult resolves the winning flight after a unique-hash conflict
// and produces the same non-error duplicate outcome as the pre-check path.
func (s *Service) duplicateResult(ctx context.Context, fileName, hash string, cause error) (*flight.ImportResult, error) {
	id, found, err := s.store.FlightIDByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("resolving duplicate flight: %w", errors.Join(cause, err))
	}
	if !found {
		return nil, fmt.Errorf("storing flight: %w", cause)
	}

	s.logger.Info("skipping duplicate import",
		slog.String("file", fileName),
		slog.Int64("flightID", id))
	return &flight.ImportResult{
		FlightID: &id,
		Message:  fmt.Sprintf("%s is already imported as flight %d", fileName, id),
	}, nil
}
