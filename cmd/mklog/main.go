// Command mklog generates synthetic flight log containers for testing the
// import pipeline without real drone hardware.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"

	"github.com/roman-kulish/flight-log-viewer/internal/logfile"
)

type config struct {
	outputFile string
	version    uint
	model      string
	serial     string
	points     int
	keyHex     string
	keyIDHex   string
	seed       int64
	lat        float64
	lon        float64
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var c config
	flag.StringVar(&c.outputFile, "o", "", "Path to the output file")
	flag.UintVar(&c.version, "version", 7, "Container format version")
	flag.StringVar(&c.model, "model", "Mavic 3", "Drone model placed in the header")
	flag.StringVar(&c.serial, "serial", "SN0001", "Drone serial placed in the header")
	flag.IntVar(&c.points, "points", 600, "Number of telemetry samples")
	flag.StringVar(&c.keyHex, "key", "", "Hex AES-256 key, required for encrypted versions")
	flag.StringVar(&c.keyIDHex, "key-id", "", "Hex 16-byte key ID placed in the header")
	flag.Int64Var(&c.seed, "seed", 1, "Random seed for the flight path")
	flag.Float64Var(&c.lat, "lat", -33.8688, "Home latitude")
	flag.Float64Var(&c.lon, "lon", 151.2093, "Home longitude")
	flag.Parse()

	if err := run(&c); err != nil {
		logger.Error(err.Error())
		flag.Usage()
		os.Exit(1)
	}
	logger.Info("log written", slog.String("path", c.outputFile), slog.Int("points", c.points))
}

func run(c *config) error {
	if c.outputFile == "" {
		return fmt.Errorf("output file is required")
	}
	if c.version < logfile.MinVersion || c.version > logfile.MaxVersion {
		return fmt.Errorf("version must be between %d and %d", logfile.MinVersion, logfile.MaxVersion)
	}
	if c.points <= 0 {
		return fmt.Errorf("points must be positive")
	}

	enc := logfile.NewEncoder(uint8(c.version))
	enc.SetDrone(c.model, c.serial)

	if c.version >= logfile.EncryptedVersion {
		key, err := hex.DecodeString(c.keyHex)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("encrypted versions need -key with 64 hex characters")
		}

		var keyID [16]byte
		id, err := hex.DecodeString(c.keyIDHex)
		if err != nil || len(id) != len(keyID) {
			return fmt.Errorf("encrypted versions need -key-id with 32 hex characters")
		}
		copy(keyID[:], id)

		enc.SetKey(keyID, key)
	}

	writeFlight(enc, c)

	data, err := enc.Bytes()
	if err != nil {
		return fmt.Errorf("encoding log: %w", err)
	}
	if err = os.WriteFile(c.outputFile, data, 0o644); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}

// writeFlight produces an outward spiral from the home point with a climb,
// cruise and descent phase. The shape does not matter much; it only has to
// exercise every record type with plausible values.
func writeFlight(enc *logfile.Encoder, c *config) {
	rng := rand.New(rand.NewSource(c.seed))

	enc.Home(c.lat, c.lon)
	enc.FlightMode("GPS_Atti")

	const sampleMS = 100
	start := int64(1_700_000_000_000)

	for i := 0; i < c.points; i++ {
		progress := float64(i) / float64(c.points)
		angle := progress * 6 * math.Pi
		radius := 0.0005 * progress // roughly 50 m at full spiral

		lat := c.lat + radius*math.Sin(angle)
		lon := c.lon + radius*math.Cos(angle)

		// Triangular altitude profile, up to ~80 m mid flight.
		alt := 80 * (1 - math.Abs(2*progress-1))
		speed := 4 + 3*math.Sin(angle/2) + rng.Float64()

		enc.Position(lat, lon, alt, alt+12)
		enc.Velocity(speed, speed*math.Cos(angle), speed*math.Sin(angle), 0)
		enc.Attitude(rng.Float64()*6-3, rng.Float64()*6-3, angle*180/math.Pi)
		enc.Gimbal(-45+rng.Float64()*5, 0, 0)
		enc.Battery(uint8(100-int(progress*60)), 15.8-progress, 4+rng.Float64(), 24+rng.Float64()*6)
		enc.Signal(4, uint8(14+rng.Intn(5)), 4)

		if i == c.points/2 {
			enc.FlightMode("Sport")
		}

		enc.Tick(start + int64(i*sampleMS))
	}
}
