package storage

import (
	"context"
	"errors"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

var (
	// ErrNotFound reports a query for a flight id that does not exist.
	ErrNotFound = errors.New("flight not found")

	// ErrDuplicateFlight reports an import whose file hash is already
	// present. Re-imports of identical bytes are expected user behavior,
	// so the caller decides how to surface this.
	ErrDuplicateFlight = errors.New("flight already imported")
)

// Store provides an interface for managing flight log storage operations.
// It handles flight metadata rows and their telemetry samples. All
// operations that write to the database are atomic: an import is either
// fully visible or not at all.
type Store interface {
	// FlightIDByHash looks up an existing flight by its content hash.
	//
	// Returns:
	//   - id: Flight identifier, valid only when found is true
	//   - found: Whether a flight with this hash exists
	//   - error: If the lookup fails or context is cancelled
	FlightIDByHash(ctx context.Context, hash string) (id int64, found bool, err error)

	// ImportFlight persists a decoded flight: the metadata row plus all
	// telemetry samples in a single transaction. Points must already be
	// in non-decreasing timestamp order.
	//
	// Returns:
	//   - flightID: Identifier assigned to the new flight row
	//   - error: ErrDuplicateFlight if the hash is taken, otherwise any
	//     storage failure; nothing is written on error
	ImportFlight(ctx context.Context, meta *flight.Metadata, points []flight.TelemetryPoint) (flightID int64, err error)

	// Flights returns all flight summaries, most recent start time first;
	// flights without a start time sort last by descending id.
	Flights(ctx context.Context) ([]flight.Flight, error)

	// Flight returns one flight summary. Returns ErrNotFound for an
	// unknown id.
	Flight(ctx context.Context, id int64) (*flight.Flight, error)

	// Telemetry returns the flight's samples in timestamp order.
	Telemetry(ctx context.Context, id int64) ([]flight.TelemetryRecord, error)

	// FlightData assembles the full detail response for one flight: the
	// summary, the field-of-arrays chart series and the map track.
	FlightData(ctx context.Context, id int64) (*flight.DataResponse, error)

	// Stats returns the aggregate statistics stored with the flight at
	// import time.
	Stats(ctx context.Context, id int64) (*flight.Stats, error)

	// DeleteFlight removes the metadata row and all associated telemetry
	// in a single transaction. Deleting an unknown id returns ErrNotFound.
	DeleteFlight(ctx context.Context, id int64) error

	// Close releases all database connections and resources. After Close
	// is called, the store instance cannot be reused. It is safe to call
	// Close multiple times.
	Close() error
}
