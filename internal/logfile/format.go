// Package logfile decodes proprietary drone flight logs: a fixed container
// header followed by a tagged, length-prefixed record stream. Containers
// from firmware V13 onwards carry the record stream AES-256-CTR encrypted
// with per-file key material fetched from the vendor key service.
package logfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// headerSize is the fixed container header length in bytes.
	headerSize = 80

	// MinVersion and MaxVersion bound the container versions this decoder
	// understands. EncryptedVersion is the first firmware generation whose
	// record stream is encrypted.
	MinVersion       = 4
	EncryptedVersion = 13
	MaxVersion       = 15
)

var (
	// fileMagic opens every container; recordMarker opens the plaintext
	// record stream and doubles as the decryption check.
	fileMagic    = [4]byte{'D', 'J', 'I', 'L'}
	recordMarker = [4]byte{'T', 'R', 'E', 'C'}
)

// Record tags. Every record is [tag u8][length u8][payload]; unknown tags
// are skipped by their declared length.
const (
	tagTick       = 0x01 // timestamp_ms u64, sampling boundary
	tagPosition   = 0x02 // lat f64, lon f64, alt f32, altAbs f32
	tagVelocity   = 0x03 // speed f32, vx f32, vy f32, vz f32
	tagAttitude   = 0x04 // pitch f32, roll f32, yaw f32
	tagGimbal     = 0x05 // pitch f32, roll f32, yaw f32
	tagBattery    = 0x06 // percent u8, voltage f32, current f32, temp f32
	tagFlightMode = 0x07 // UTF-8 mode name
	tagSignal     = 0x08 // gps u8, satellites u8, rc u8
	tagHome       = 0x09 // lat f64, lon f64
)

// Fixed payload sizes per tag; tagFlightMode is variable length.
const (
	lenTick     = 8
	lenPosition = 24
	lenVelocity = 16
	lenAttitude = 12
	lenGimbal   = 12
	lenBattery  = 13
	lenSignal   = 3
	lenHome     = 16
)

var (
	// ErrUnsupportedFormat reports a container this decoder cannot read:
	// wrong magic, truncated header or an unknown version.
	ErrUnsupportedFormat = errors.New("unsupported log format")

	// ErrDecryptionFailed reports that the record stream did not decrypt
	// to a valid plaintext, usually a wrong or expired key.
	ErrDecryptionFailed = errors.New("log decryption failed")
)

// Header is the parsed container header.
type Header struct {
	Version     uint8
	Flags       uint8
	PayloadLen  uint64
	DroneModel  string
	DroneSerial string
	KeyID       [16]byte
}

// Encrypted reports whether this container's record stream requires the
// remote-key decryption path.
func (h *Header) Encrypted() bool {
	return h.Version >= EncryptedVersion
}

// ParseHeader reads and validates the fixed container header.
//
// Layout (little-endian):
//
//	0   [4]byte  magic "DJIL"
//	4   u8       container version
//	5   u8       flags (reserved)
//	6   u16      reserved
//	8   u64      payload length in bytes
//	16  [16]byte drone model, zero padded
//	32  [16]byte drone serial, zero padded
//	48  [16]byte key request material (zero for plaintext containers)
//	64  [16]byte reserved
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: file shorter than header (%d bytes)", ErrUnsupportedFormat, len(data))
	}
	if [4]byte(data[0:4]) != fileMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrUnsupportedFormat, data[0:4])
	}

	h := Header{
		Version:    data[4],
		Flags:      data[5],
		PayloadLen: binary.LittleEndian.Uint64(data[8:16]),
	}
	if h.Version < MinVersion || h.Version > MaxVersion {
		return nil, fmt.Errorf("%w: container version %d", ErrUnsupportedFormat, h.Version)
	}

	h.DroneModel = trimPadded(data[16:32])
	h.DroneSerial = trimPadded(data[32:48])
	copy(h.KeyID[:], data[48:64])

	// Compare against the remaining bytes rather than adding to PayloadLen,
	// which a crafted header can overflow.
	if h.PayloadLen > uint64(len(data)-headerSize) {
		return nil, fmt.Errorf("%w: payload truncated, header declares %d bytes", ErrUnsupportedFormat, h.PayloadLen)
	}
	return &h, nil
}

func trimPadded(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
