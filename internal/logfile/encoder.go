package logfile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder is the write side of the container format. It exists for the
// mklog fixture tool and for tests; the application itself never writes
// logs.
type Encoder struct {
	version uint8
	model   string
	serial  string
	keyID   [16]byte
	key     []byte

	stream []byte
}

func NewEncoder(version uint8) *Encoder {
	return &Encoder{version: version}
}

// SetDrone sets the model and serial embedded in the header. Values longer
// than 16 bytes are truncated, matching the fixed header fields.
func (e *Encoder) SetDrone(model, serial string) {
	e.model = model
	e.serial = serial
}

// SetKey configures the key request material placed in the header and the
// key used to encrypt the record stream for V13+ containers.
func (e *Encoder) SetKey(keyID [16]byte, key []byte) {
	e.keyID = keyID
	e.key = key
}

// Tick appends a sampling boundary record.
func (e *Encoder) Tick(timestampMS int64) {
	var p [lenTick]byte
	binary.LittleEndian.PutUint64(p[:], uint64(timestampMS))
	e.Record(tagTick, p[:])
}

func (e *Encoder) Position(lat, lon, alt, altAbs float64) {
	var p [lenPosition]byte
	putF64(p[0:], lat)
	putF64(p[8:], lon)
	putF32(p[16:], alt)
	putF32(p[20:], altAbs)
	e.Record(tagPosition, p[:])
}

func (e *Encoder) Velocity(speed, vx, vy, vz float64) {
	var p [lenVelocity]byte
	putF32(p[0:], speed)
	putF32(p[4:], vx)
	putF32(p[8:], vy)
	putF32(p[12:], vz)
	e.Record(tagVelocity, p[:])
}

func (e *Encoder) Attitude(pitch, roll, yaw float64) {
	var p [lenAttitude]byte
	putF32(p[0:], pitch)
	putF32(p[4:], roll)
	putF32(p[8:], yaw)
	e.Record(tagAttitude, p[:])
}

func (e *Encoder) Gimbal(pitch, roll, yaw float64) {
	var p [lenGimbal]byte
	putF32(p[0:], pitch)
	putF32(p[4:], roll)
	putF32(p[8:], yaw)
	e.Record(tagGimbal, p[:])
}

func (e *Encoder) Battery(percent uint8, voltage, current, temp float64) {
	var p [lenBattery]byte
	p[0] = percent
	putF32(p[1:], voltage)
	putF32(p[5:], current)
	putF32(p[9:], temp)
	e.Record(tagBattery, p[:])
}

func (e *Encoder) FlightMode(mode string) {
	e.Record(tagFlightMode, []byte(mode))
}

func (e *Encoder) Signal(gps, satellites, rc uint8) {
	e.Record(tagSignal, []byte{gps, satellites, rc})
}

func (e *Encoder) Home(lat, lon float64) {
	var p [lenHome]byte
	putF64(p[0:], lat)
	putF64(p[8:], lon)
	e.Record(tagHome, p[:])
}

// Record appends a raw record. Payloads longer than 255 bytes cannot be
// framed and are silently truncated; fixture payloads never get there.
func (e *Encoder) Record(tag byte, payload []byte) {
	if len(payload) > math.MaxUint8 {
		payload = payload[:math.MaxUint8]
	}
	e.stream = append(e.stream, tag, byte(len(payload)))
	e.stream = append(e.stream, payload...)
}

// Bytes assembles the container: header plus the (possibly encrypted)
// record stream.
func (e *Encoder) Bytes() ([]byte, error) {
	payload := make([]byte, 0, len(recordMarker)+len(e.stream))
	payload = append(payload, recordMarker[:]...)
	payload = append(payload, e.stream...)

	if e.version >= EncryptedVersion {
		if len(e.key) == 0 {
			return nil, fmt.Errorf("container version %d requires a key", e.version)
		}

		block, err := aes.NewCipher(e.key)
		if err != nil {
			return nil, fmt.Errorf("creating cipher: %w", err)
		}

		iv := make([]byte, aes.BlockSize)
		if _, err := rand.Read(iv); err != nil {
			return nil, fmt.Errorf("generating IV: %w", err)
		}

		ciphertext := make([]byte, len(payload))
		cipher.NewCTR(block, iv).XORKeyStream(ciphertext, payload)
		payload = append(iv, ciphertext...)
	}

	out := make([]byte, headerSize, headerSize+len(payload))
	copy(out[0:4], fileMagic[:])
	out[4] = e.version
	binary.LittleEndian.PutUint64(out[8:16], uint64(len(payload)))
	copy(out[16:32], e.model)
	copy(out[32:48], e.serial)
	copy(out[48:64], e.keyID[:])

	return append(out, payload...), nil
}

func putF32(b []byte, v float64) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
}

func putF64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
