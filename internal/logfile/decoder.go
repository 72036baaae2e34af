package logfile

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// KeySource resolves per-file decryption key material for encrypted
// containers. Implemented by dji.Client.
type KeySource interface {
	FetchKey(ctx context.Context, version uint8, keyID [16]byte) ([]byte, error)
}

// DecodedLog is the decoder output: a metadata draft, the time-ordered
// point sequence and the count of records skipped as unknown or corrupt.
type DecodedLog struct {
	Metadata flight.Metadata
	Points   []flight.TelemetryPoint
	Warnings int
}

// Decoder turns raw log bytes into a DecodedLog. A single Decoder is safe
// for concurrent use; the KeySource coalesces concurrent key fetches.
type Decoder struct {
	keys   KeySource
	logger *slog.Logger
}

func NewDecoder(keys KeySource, logger *slog.Logger) *Decoder {
	return &Decoder{keys: keys, logger: logger}
}

// DecodeFile reads and decodes a log file from disk.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*DecodedLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}

	log, err := d.Decode(ctx, data)
	if err != nil {
		return nil, err
	}
	log.Metadata.FileName = filepath.Base(path)
	return log, nil
}

// Decode parses the container header, decrypts the record stream when the
// version requires it and decodes the records. Format and decryption
// failures are fatal and return no partial result; individual unknown or
// malformed records are skipped and surfaced via DecodedLog.Warnings.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*DecodedLog, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	payload := data[headerSize : headerSize+int(header.PayloadLen)]

	if header.Encrypted() {
		if payload, err = d.decrypt(ctx, header, payload); err != nil {
			return nil, err
		}
	}

	if len(payload) < len(recordMarker) || [4]byte(payload[:4]) != recordMarker {
		if header.Encrypted() {
			return nil, fmt.Errorf("%w: plaintext marker mismatch", ErrDecryptionFailed)
		}
		return nil, fmt.Errorf("%w: record stream marker missing", ErrUnsupportedFormat)
	}

	log := decodeRecords(payload[4:])
	log.Metadata.DroneModel = header.DroneModel
	log.Metadata.DroneSerial = header.DroneSerial

	if log.Warnings > 0 && d.logger != nil {
		d.logger.Warn("skipped unreadable records",
			slog.Int("count", log.Warnings),
			slog.String("serial", header.DroneSerial))
	}
	return log, nil
}

func (d *Decoder) decrypt(ctx context.Context, header *Header, payload []byte) ([]byte, error) {
	if d.keys == nil {
		return nil, fmt.Errorf("container version %d is encrypted and no key source is configured", header.Version)
	}
	if len(payload) < aes.BlockSize {
		return nil, fmt.Errorf("%w: payload shorter than IV", ErrDecryptionFailed)
	}

	key, err := d.keys.FetchKey(ctx, header.Version, header.KeyID)
	if err != nil {
		return nil, fmt.Errorf("fetching decryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	iv, ciphertext := payload[:aes.BlockSize], payload[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// accumulator is the rolling "current sample" state. Record handlers
// assign fresh values, so points flushed earlier are never aliased.
type accumulator struct {
	cur flight.TelemetryPoint
}

func decodeRecords(stream []byte) *DecodedLog {
	var (
		log DecodedLog
		acc accumulator
	)

	for pos := 0; pos < len(stream); {
		if len(stream)-pos < 2 {
			log.Warnings++ // dangling tag byte
			break
		}

		tag, length := stream[pos], int(stream[pos+1])
		pos += 2

		if len(stream)-pos < length {
			// Declared length runs past the buffer: the tail is corrupt and
			// there is no frame marker to resync on, so keep the head.
			log.Warnings++
			break
		}

		payload := stream[pos : pos+length]
		pos += length

		if tag == tagTick {
			if length != lenTick {
				log.Warnings++
				continue
			}
			point := acc.cur
			point.TimestampMS = int64(binary.LittleEndian.Uint64(payload))
			log.Points = append(log.Points, point)
			continue
		}

		if !acc.apply(&log.Metadata, tag, payload) {
			log.Warnings++
		}
	}

	finishDecodedLog(&log)
	return &log
}

// apply dispatches one record into the rolling state. It returns false for
// unknown tags and known tags with an unexpected payload size.
func (a *accumulator) apply(meta *flight.Metadata, tag byte, payload []byte) bool {
	switch tag {
	case tagPosition:
		if len(payload) != lenPosition {
			return false
		}
		lat := f64At(payload, 0)
		lon := f64At(payload, 8)
		alt := f32At(payload, 16)
		altAbs := f32At(payload, 20)
		a.cur.Latitude = &lat
		a.cur.Longitude = &lon
		a.cur.Altitude = &alt
		a.cur.AltitudeAbs = &altAbs

	case tagVelocity:
		if len(payload) != lenVelocity {
			return false
		}
		speed := f32At(payload, 0)
		vx := f32At(payload, 4)
		vy := f32At(payload, 8)
		vz := f32At(payload, 12)
		a.cur.Speed = &speed
		a.cur.VelocityX = &vx
		a.cur.VelocityY = &vy
		a.cur.VelocityZ = &vz

	case tagAttitude:
		if len(payload) != lenAttitude {
			return false
		}
		pitch := f32At(payload, 0)
		roll := f32At(payload, 4)
		yaw := f32At(payload, 8)
		a.cur.Pitch = &pitch
		a.cur.Roll = &roll
		a.cur.Yaw = &yaw

	case tagGimbal:
		if len(payload) != lenGimbal {
			return false
		}
		pitch := f32At(payload, 0)
		roll := f32At(payload, 4)
		yaw := f32At(payload, 8)
		a.cur.GimbalPitch = &pitch
		a.cur.GimbalRoll = &roll
		a.cur.GimbalYaw = &yaw

	case tagBattery:
		if len(payload) != lenBattery {
			return false
		}
		percent := int64(payload[0])
		voltage := f32At(payload, 1)
		current := f32At(payload, 5)
		temp := f32At(payload, 9)
		a.cur.BatteryPercent = &percent
		a.cur.BatteryVoltage = &voltage
		a.cur.BatteryCurrent = &current
		a.cur.BatteryTemp = &temp

	case tagFlightMode:
		mode := string(payload)
		a.cur.FlightMode = &mode

	case tagSignal:
		if len(payload) != lenSignal {
			return false
		}
		gps := int64(payload[0])
		sats := int64(payload[1])
		rc := int64(payload[2])
		a.cur.GPSSignal = &gps
		a.cur.Satellites = &sats
		a.cur.RCSignal = &rc

	case tagHome:
		if len(payload) != lenHome {
			return false
		}
		lat := f64At(payload, 0)
		lon := f64At(payload, 8)
		meta.HomeLatitude = &lat
		meta.HomeLongitude = &lon

	default:
		return false
	}
	return true
}

// finishDecodedLog enforces the non-decreasing timestamp contract and
// derives the metadata time bounds from the point sequence.
func finishDecodedLog(log *DecodedLog) {
	points := log.Points
	if !sort.SliceIsSorted(points, func(i, j int) bool {
		return points[i].TimestampMS < points[j].TimestampMS
	}) {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].TimestampMS < points[j].TimestampMS
		})
	}

	if len(points) == 0 {
		return
	}

	start := time.UnixMilli(points[0].TimestampMS).UTC()
	end := time.UnixMilli(points[len(points)-1].TimestampMS).UTC()
	log.Metadata.StartTime = &start
	log.Metadata.EndTime = &end
}

func f32At(b []byte, off int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[off:])))
}

func f64At(b []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
}
